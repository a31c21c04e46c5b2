package bingo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/infrastructure/caching/interfaces"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
)

type EventDefinitionRepository struct {
	db     *sql.DB
	cache  interfaces.EpisodeCache
	logger *logging.ChanneledLogger
}

func NewEventDefinitionRepository(db *sql.DB, cache interfaces.EpisodeCache, logger *logging.ChanneledLogger) *EventDefinitionRepository {
	return &EventDefinitionRepository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

func (r *EventDefinitionRepository) FindByID(ctx context.Context, id string) (*bingo.EventDefinition, error) {
	if def, found := r.cache.GetEventDefinition(id); found {
		return def, nil
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT id, episode_id, name, icon, kind, config, fired_at, fired_count, last_triggered_at
		 FROM event_definitions WHERE id = ?`, id)

	def, err := scanEventDefinition(row)
	if err == sql.ErrNoRows {
		return nil, domainerrors.NewNotFound("event definition %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load event definition %s: %w", id, err)
	}

	r.cache.SetEventDefinition(def)
	return def, nil
}

// FindByEpisodeID retrieves all event definitions for an episode,
// employing a cache-first strategy on the master ID list.
func (r *EventDefinitionRepository) FindByEpisodeID(ctx context.Context, episodeID string) ([]*bingo.EventDefinition, error) {
	if ids, found := r.cache.GetEpisodeEventIDs(episodeID); found {
		defs := make([]*bingo.EventDefinition, 0, len(ids))
		allCached := true
		for _, id := range ids {
			def, exists := r.cache.GetEventDefinition(id)
			if !exists {
				allCached = false
				break
			}
			defs = append(defs, def)
		}
		if allCached {
			return defs, nil
		}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, episode_id, name, icon, kind, config, fired_at, fired_count, last_triggered_at
		 FROM event_definitions WHERE episode_id = ? ORDER BY id`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query event definitions for episode %s: %w", episodeID, err)
	}
	defer rows.Close()

	var defs []*bingo.EventDefinition
	var ids []string
	for rows.Next() {
		def, err := scanEventDefinition(rows)
		if err != nil {
			return nil, err
		}
		r.cache.SetEventDefinition(def)
		defs = append(defs, def)
		ids = append(ids, def.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.cache.SetEpisodeEventIDs(episodeID, ids)
	return defs, nil
}

func (r *EventDefinitionRepository) Store(ctx context.Context, def *bingo.EventDefinition) error {
	configJSON, err := json.Marshal(def.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_definitions (id, episode_id, name, icon, kind, config, fired_at, fired_count, last_triggered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID, def.EpisodeID, def.Name, def.Icon, string(def.Kind), string(configJSON),
		formatTimePtr(def.FiredAt), def.FiredCount, formatTimePtr(def.LastTriggeredAt))
	if err != nil {
		return fmt.Errorf("failed to insert event definition %s: %w", def.ID, err)
	}

	r.cache.SetEventDefinition(def)
	r.cache.InvalidateEpisodeEvents(def.EpisodeID)
	return nil
}

// UpdateFireState persists only the fire-related fields; everything else
// is immutable once the episode is live.
func (r *EventDefinitionRepository) UpdateFireState(ctx context.Context, def *bingo.EventDefinition) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE event_definitions SET fired_at = ?, fired_count = ?, last_triggered_at = ? WHERE id = ?`,
		formatTimePtr(def.FiredAt), def.FiredCount, formatTimePtr(def.LastTriggeredAt), def.ID)
	if err != nil {
		return fmt.Errorf("failed to update fire state for event %s: %w", def.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainerrors.NewNotFound("event definition %s", def.ID)
	}

	r.cache.SetEventDefinition(def)
	return nil
}

func scanEventDefinition(row rowScanner) (*bingo.EventDefinition, error) {
	var (
		def             bingo.EventDefinition
		icon            sql.NullString
		kind            string
		configJSON      string
		firedAt         sql.NullString
		lastTriggeredAt sql.NullString
	)

	err := row.Scan(&def.ID, &def.EpisodeID, &def.Name, &icon, &kind, &configJSON,
		&firedAt, &def.FiredCount, &lastTriggeredAt)
	if err != nil {
		return nil, err
	}

	def.Icon = icon.String
	def.Kind = bingo.TriggerKind(kind)
	if err := json.Unmarshal([]byte(configJSON), &def.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger config for %s: %w", def.ID, err)
	}
	def.FiredAt = parseTimePtr(firedAt)
	def.LastTriggeredAt = parseTimePtr(lastTriggeredAt)
	return &def, nil
}
