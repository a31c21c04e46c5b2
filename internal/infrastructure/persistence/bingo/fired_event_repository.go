package bingo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
)

// FiredEventRepository is the append-only audit log of event firings.
type FiredEventRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewFiredEventRepository(db *sql.DB, logger *logging.ChanneledLogger) *FiredEventRepository {
	return &FiredEventRepository{
		db:     db,
		logger: logger,
	}
}

func (r *FiredEventRepository) Append(ctx context.Context, fired *bingo.FiredEvent) error {
	var payloadJSON sql.NullString
	if fired.Payload != nil {
		data, err := json.Marshal(fired.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal trigger payload: %w", err)
		}
		payloadJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fired_events (id, episode_id, event_definition_id, fired_at, fired_by, cards_affected, trigger_payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fired.ID, fired.EpisodeID, fired.EventID, formatTime(fired.FiredAt),
		fired.FiredBy, fired.CardsAffected, payloadJSON)
	if err != nil {
		return fmt.Errorf("failed to append fired event %s: %w", fired.ID, err)
	}
	return nil
}

func (r *FiredEventRepository) FindByEpisodeID(ctx context.Context, episodeID string) ([]*bingo.FiredEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, episode_id, event_definition_id, fired_at, fired_by, cards_affected, trigger_payload
		 FROM fired_events WHERE episode_id = ? ORDER BY fired_at`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fired events for episode %s: %w", episodeID, err)
	}
	defer rows.Close()

	var fired []*bingo.FiredEvent
	for rows.Next() {
		var (
			fe          bingo.FiredEvent
			firedAt     string
			payloadJSON sql.NullString
		)
		if err := rows.Scan(&fe.ID, &fe.EpisodeID, &fe.EventID, &firedAt, &fe.FiredBy,
			&fe.CardsAffected, &payloadJSON); err != nil {
			return nil, err
		}
		fe.FiredAt = parseTime(firedAt)
		if payloadJSON.Valid && payloadJSON.String != "" {
			if err := json.Unmarshal([]byte(payloadJSON.String), &fe.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal trigger payload for %s: %w", fe.ID, err)
			}
		}
		fired = append(fired, &fe)
	}
	return fired, rows.Err()
}
