package payments

import (
	"context"
	"time"

	"github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/pkg/config"
	"github.com/cenkalti/backoff/v4"
)

// RetryingProcessor wraps a Processor with bounded exponential backoff on
// transient failures. Deterministic rejections pass through immediately,
// and compensation is deliberately NOT retried: the single-attempt
// guarantee lives here, not just in the service layer.
type RetryingProcessor struct {
	inner          Processor
	logger         *logging.ChanneledLogger
	maxRetries     uint64
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewRetryingProcessor wraps inner with the configured retry policy.
func NewRetryingProcessor(inner Processor, logger *logging.ChanneledLogger) *RetryingProcessor {
	return &RetryingProcessor{
		inner:          inner,
		logger:         logger,
		maxRetries:     uint64(config.UpstreamMaxRetries),
		initialBackoff: config.UpstreamInitialBackoff,
		maxBackoff:     config.UpstreamMaxBackoff,
	}
}

func (r *RetryingProcessor) policy(ctx context.Context) backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.initialBackoff
	policy.MaxInterval = r.maxBackoff
	return backoff.WithContext(backoff.WithMaxRetries(policy, r.maxRetries), ctx)
}

func (r *RetryingProcessor) CreatePendingCharge(ctx context.Context, episodeID, userID string, amountCents int64) (string, error) {
	var ref string
	attempt := 0
	operation := func() error {
		attempt++
		created, err := r.inner.CreatePendingCharge(ctx, episodeID, userID, amountCents)
		if err == nil {
			ref = created
			return nil
		}
		if !errors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		r.logger.Payment().Warn("Retrying charge creation", "episodeId", episodeID, "userId", userID, "attempt", attempt, "error", err)
		return err
	}
	if err := backoff.Retry(operation, r.policy(ctx)); err != nil {
		return "", err
	}
	return ref, nil
}

func (r *RetryingProcessor) ConfirmCharge(ctx context.Context, externalRef string, amountCents int64) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := r.inner.ConfirmCharge(ctx, externalRef, amountCents)
		if err == nil {
			return nil
		}
		if !errors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		r.logger.Payment().Warn("Retrying charge confirmation", "externalRef", externalRef, "attempt", attempt, "error", err)
		return err
	}
	return backoff.Retry(operation, r.policy(ctx))
}

// IssueCompensation forwards without retry. A compensation attempt that
// fails must surface as a failure for the manual followup log; a retry
// could double-refund when the first attempt succeeded upstream but the
// response was lost.
func (r *RetryingProcessor) IssueCompensation(ctx context.Context, externalRef string, amountCents int64, reason string) (string, error) {
	return r.inner.IssueCompensation(ctx, externalRef, amountCents, reason)
}
