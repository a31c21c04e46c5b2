package bingo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
)

// PendingPaymentRepository tracks in-flight paid entry attempts. Lookups
// always hit the database: payment resolution is the idempotency anchor
// for completion webhooks and must never act on stale cache state.
type PendingPaymentRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewPendingPaymentRepository(db *sql.DB, logger *logging.ChanneledLogger) *PendingPaymentRepository {
	return &PendingPaymentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *PendingPaymentRepository) FindByExternalRef(ctx context.Context, ref string) (*bingo.PendingPayment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, episode_id, user_id, user_email, external_ref, amount, status, created_at, expires_at, resolved_at
		 FROM pending_payments WHERE external_ref = ?`, ref)

	payment, err := scanPendingPayment(row)
	if err == sql.ErrNoRows {
		return nil, domainerrors.NewNotFound("pending payment %s", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending payment %s: %w", ref, err)
	}
	return payment, nil
}

func (r *PendingPaymentRepository) FindPendingByEpisodeAndUser(ctx context.Context, episodeID, userID string) (*bingo.PendingPayment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, episode_id, user_id, user_email, external_ref, amount, status, created_at, expires_at, resolved_at
		 FROM pending_payments WHERE episode_id = ? AND user_id = ? AND status = 'pending'`, episodeID, userID)

	payment, err := scanPendingPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending payment for episode %s user %s: %w", episodeID, userID, err)
	}
	return payment, nil
}

func (r *PendingPaymentRepository) Store(ctx context.Context, payment *bingo.PendingPayment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pending_payments (id, episode_id, user_id, user_email, external_ref, amount, status, created_at, expires_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.EpisodeID, payment.UserID, payment.UserEmail, payment.ExternalRef,
		payment.AmountCents, string(payment.Status), formatTime(payment.CreatedAt),
		formatTime(payment.ExpiresAt), formatTimePtr(payment.ResolvedAt))
	if err != nil {
		return fmt.Errorf("failed to insert pending payment %s: %w", payment.ID, err)
	}
	return nil
}

// UpdateStatus transitions a payment out of the given status. The WHERE
// clause requires the row to still hold that status, so a concurrent
// duplicate transition loses and gets an invalid-state error back.
func (r *PendingPaymentRepository) UpdateStatus(ctx context.Context, payment *bingo.PendingPayment, from bingo.PaymentStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE pending_payments SET status = ?, resolved_at = ? WHERE id = ? AND status = ?`,
		string(payment.Status), formatTimePtr(payment.ResolvedAt), payment.ID, string(from))
	if err != nil {
		return fmt.Errorf("failed to resolve pending payment %s: %w", payment.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainerrors.NewInvalidState("pending payment %s is not %s", payment.ID, from)
	}
	return nil
}

// ExpireStale marks pending payments past their TTL as failed and
// returns the number expired.
func (r *PendingPaymentRepository) ExpireStale(ctx context.Context) (int, error) {
	now := formatTime(time.Now())
	result, err := r.db.ExecContext(ctx,
		`UPDATE pending_payments SET status = 'failed', resolved_at = ? WHERE status = 'pending' AND expires_at < ?`,
		now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale payments: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

func scanPendingPayment(row rowScanner) (*bingo.PendingPayment, error) {
	var (
		payment    bingo.PendingPayment
		userEmail  sql.NullString
		status     string
		createdAt  string
		expiresAt  string
		resolvedAt sql.NullString
	)

	err := row.Scan(&payment.ID, &payment.EpisodeID, &payment.UserID, &userEmail,
		&payment.ExternalRef, &payment.AmountCents, &status, &createdAt, &expiresAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	payment.UserEmail = userEmail.String
	payment.Status = bingo.PaymentStatus(status)
	payment.CreatedAt = parseTime(createdAt)
	payment.ExpiresAt = parseTime(expiresAt)
	payment.ResolvedAt = parseTimePtr(resolvedAt)
	return &payment, nil
}
