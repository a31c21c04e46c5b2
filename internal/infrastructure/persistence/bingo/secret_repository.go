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

// TriggerSecretRepository is the read-through store behind the process
// secret cache. Durable rows survive restarts; the cache is invalidated
// on creation and revocation.
type TriggerSecretRepository struct {
	db     *sql.DB
	cache  interfaces.SecretCache
	logger *logging.ChanneledLogger
}

func NewTriggerSecretRepository(db *sql.DB, cache interfaces.SecretCache, logger *logging.ChanneledLogger) *TriggerSecretRepository {
	return &TriggerSecretRepository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

func (r *TriggerSecretRepository) FindActiveByProvider(ctx context.Context, provider string) ([]*bingo.TriggerSecret, error) {
	if secrets, found := r.cache.GetProviderSecrets(provider); found {
		return secrets, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, provider, episode_id, subscription_id, secret, active, created_at, revoked_at
		 FROM trigger_secrets WHERE provider = ? AND active = 1`, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger secrets for provider %s: %w", provider, err)
	}
	defer rows.Close()

	secrets, err := collectSecrets(rows)
	if err != nil {
		return nil, err
	}

	r.cache.SetProviderSecrets(provider, secrets)
	return secrets, nil
}

// FindActiveByEpisodeID returns the active secrets an episode registered
// at go-live. Uncached: this only runs at end-of-episode teardown.
func (r *TriggerSecretRepository) FindActiveByEpisodeID(ctx context.Context, episodeID string) ([]*bingo.TriggerSecret, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, provider, episode_id, subscription_id, secret, active, created_at, revoked_at
		 FROM trigger_secrets WHERE episode_id = ? AND active = 1`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger secrets for episode %s: %w", episodeID, err)
	}
	defer rows.Close()

	return collectSecrets(rows)
}

func collectSecrets(rows *sql.Rows) ([]*bingo.TriggerSecret, error) {
	var secrets []*bingo.TriggerSecret
	for rows.Next() {
		var (
			secret    bingo.TriggerSecret
			createdAt string
			revokedAt sql.NullString
		)
		if err := rows.Scan(&secret.ID, &secret.Provider, &secret.EpisodeID, &secret.SubscriptionID,
			&secret.Secret, &secret.Active, &createdAt, &revokedAt); err != nil {
			return nil, err
		}
		secret.CreatedAt = parseTime(createdAt)
		secret.RevokedAt = parseTimePtr(revokedAt)
		secrets = append(secrets, &secret)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return secrets, nil
}

func (r *TriggerSecretRepository) Store(ctx context.Context, secret *bingo.TriggerSecret) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO trigger_secrets (id, provider, episode_id, subscription_id, secret, active, created_at, revoked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		secret.ID, secret.Provider, secret.EpisodeID, secret.SubscriptionID, secret.Secret,
		secret.Active, formatTime(secret.CreatedAt), formatTimePtr(secret.RevokedAt))
	if err != nil {
		return fmt.Errorf("failed to insert trigger secret %s: %w", secret.ID, err)
	}

	r.cache.InvalidateProvider(secret.Provider)
	return nil
}

func (r *TriggerSecretRepository) Revoke(ctx context.Context, id string) error {
	var provider string
	err := r.db.QueryRowContext(ctx, `SELECT provider FROM trigger_secrets WHERE id = ?`, id).Scan(&provider)
	if err == sql.ErrNoRows {
		return domainerrors.NewNotFound("trigger secret %s", id)
	}
	if err != nil {
		return fmt.Errorf("failed to look up trigger secret %s: %w", id, err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE trigger_secrets SET active = 0, revoked_at = ? WHERE id = ?`,
		formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to revoke trigger secret %s: %w", id, err)
	}

	r.cache.InvalidateProvider(provider)
	return nil
}
