// Package bingo provides the SQL repositories for the bingo entities.
package bingo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/infrastructure/caching/interfaces"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
)

type EpisodeRepository struct {
	db     *sql.DB
	cache  interfaces.EpisodeCache
	logger *logging.ChanneledLogger
}

func NewEpisodeRepository(db *sql.DB, cache interfaces.EpisodeCache, logger *logging.ChanneledLogger) *EpisodeRepository {
	return &EpisodeRepository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

func (r *EpisodeRepository) FindByID(ctx context.Context, id string) (*bingo.Episode, error) {
	if episode, found := r.cache.GetEpisode(id); found {
		return episode, nil
	}

	episode, err := r.loadFromDB(ctx, id)
	if err != nil {
		return nil, err
	}
	if episode == nil {
		return nil, domainerrors.NewNotFound("episode %s", id)
	}

	r.cache.SetEpisode(episode)
	return episode, nil
}

func (r *EpisodeRepository) FindByStatus(ctx context.Context, status bingo.EpisodeStatus) ([]*bingo.Episode, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, broadcaster_id, title, status, grid_dimension, entry_price,
		        capacity, minted_count, revenue, free_center, created_at, started_at, ended_at
		 FROM episodes WHERE status = ?`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes by status: %w", err)
	}
	defer rows.Close()

	var episodes []*bingo.Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		r.cache.SetEpisode(episode)
		episodes = append(episodes, episode)
	}
	return episodes, rows.Err()
}

func (r *EpisodeRepository) Store(ctx context.Context, episode *bingo.Episode) error {
	capacity := sql.NullInt64{}
	if episode.Capacity != nil {
		capacity = sql.NullInt64{Int64: int64(*episode.Capacity), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO episodes (id, broadcaster_id, title, status, grid_dimension, entry_price,
		                       capacity, minted_count, revenue, free_center, created_at, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		episode.ID, episode.BroadcasterID, episode.Title, string(episode.Status),
		episode.GridDimension, episode.EntryPrice, capacity, episode.MintedCount,
		episode.RevenueCents, episode.FreeCenter,
		formatTime(episode.CreatedAt), formatTimePtr(episode.StartedAt), formatTimePtr(episode.EndedAt))
	if err != nil {
		return fmt.Errorf("failed to insert episode %s: %w", episode.ID, err)
	}

	r.cache.SetEpisode(episode)
	return nil
}

func (r *EpisodeRepository) Update(ctx context.Context, episode *bingo.Episode) error {
	capacity := sql.NullInt64{}
	if episode.Capacity != nil {
		capacity = sql.NullInt64{Int64: int64(*episode.Capacity), Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE episodes SET status = ?, minted_count = ?, revenue = ?, capacity = ?,
		                     started_at = ?, ended_at = ?
		 WHERE id = ?`,
		string(episode.Status), episode.MintedCount, episode.RevenueCents, capacity,
		formatTimePtr(episode.StartedAt), formatTimePtr(episode.EndedAt), episode.ID)
	if err != nil {
		return fmt.Errorf("failed to update episode %s: %w", episode.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainerrors.NewNotFound("episode %s", episode.ID)
	}

	r.cache.SetEpisode(episode)
	return nil
}

func (r *EpisodeRepository) loadFromDB(ctx context.Context, id string) (*bingo.Episode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, broadcaster_id, title, status, grid_dimension, entry_price,
		        capacity, minted_count, revenue, free_center, created_at, started_at, ended_at
		 FROM episodes WHERE id = ?`, id)

	episode, err := scanEpisode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load episode %s: %w", id, err)
	}
	return episode, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner) (*bingo.Episode, error) {
	var (
		episode   bingo.Episode
		status    string
		capacity  sql.NullInt64
		createdAt string
		startedAt sql.NullString
		endedAt   sql.NullString
	)

	err := row.Scan(&episode.ID, &episode.BroadcasterID, &episode.Title, &status,
		&episode.GridDimension, &episode.EntryPrice, &capacity, &episode.MintedCount,
		&episode.RevenueCents, &episode.FreeCenter, &createdAt, &startedAt, &endedAt)
	if err != nil {
		return nil, err
	}

	episode.Status = bingo.EpisodeStatus(status)
	if capacity.Valid {
		c := int(capacity.Int64)
		episode.Capacity = &c
	}
	episode.CreatedAt = parseTime(createdAt)
	episode.StartedAt = parseTimePtr(startedAt)
	episode.EndedAt = parseTimePtr(endedAt)
	return &episode, nil
}

// Timestamps are persisted as RFC3339 UTC strings.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}
