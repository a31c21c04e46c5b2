package services

import (
	"context"
	"time"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/domain/repositories"
	"github.com/bingocast/bingocast-go/internal/infrastructure/email"
	"github.com/bingocast/bingocast-go/internal/infrastructure/messaging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/payments"
)

// CompensationService refunds captured payments whose card could not be
// issued. Compensation is not idempotent upstream, so each payment gets
// exactly one attempt; a failed attempt is flagged for manual follow-up
// on the alert channel, never retried.
type CompensationService struct {
	payments  repositories.PendingPaymentRepository
	episodes  repositories.EpisodeRepository
	processor payments.Processor
	hub       messaging.Broadcaster
	email     email.Service
	logger    *logging.ChanneledLogger
}

// NewCompensationService creates a new compensation service. The email
// service may be nil when RESEND_API_KEY is not configured.
func NewCompensationService(
	paymentRepo repositories.PendingPaymentRepository,
	episodes repositories.EpisodeRepository,
	processor payments.Processor,
	hub messaging.Broadcaster,
	emailService email.Service,
	logger *logging.ChanneledLogger,
) *CompensationService {
	return &CompensationService{
		payments:  paymentRepo,
		episodes:  episodes,
		processor: processor,
		hub:       hub,
		email:     emailService,
		logger:    logger,
	}
}

// Compensate refunds one claimed payment whose mint failed. The payment
// must hold the completed status its claimer gave it; it is marked failed
// whether or not the refund succeeds, so a later duplicate completion
// remains a no-op.
func (s *CompensationService) Compensate(ctx context.Context, payment *bingo.PendingPayment, reason string) error {
	now := time.Now().UTC()
	payment.Status = bingo.PaymentFailed
	payment.ResolvedAt = &now
	if err := s.payments.UpdateStatus(ctx, payment, bingo.PaymentCompleted); err != nil {
		// Already failed by a concurrent path; do not refund twice.
		if domainerrors.KindOf(err) == domainerrors.KindInvalidState {
			s.logger.Payment().Warn("Skipping compensation for already-resolved payment",
				"externalRef", payment.ExternalRef)
			return nil
		}
		return err
	}

	compensationRef, err := s.processor.IssueCompensation(ctx, payment.ExternalRef, payment.AmountCents, reason)
	if err != nil {
		s.logger.LogCompensationFollowup(payment.ExternalRef, reason, err)
		return domainerrors.NewCompensationFailure(err, "compensation failed for %s", payment.ExternalRef)
	}

	s.logger.Payment().Info("Payment compensated",
		"externalRef", payment.ExternalRef, "compensationRef", compensationRef,
		"amount", payment.AmountCents, "reason", reason)

	s.hub.SendToUser(payment.UserID, messaging.NewMessage(messaging.TypePaymentCompensated, messaging.PaymentCompensatedPayload{
		Reason:          reason,
		CompensationRef: compensationRef,
		EpisodeID:       payment.EpisodeID,
	}))

	if s.email != nil && payment.UserEmail != "" {
		title := payment.EpisodeID
		if episode, err := s.episodes.FindByID(ctx, payment.EpisodeID); err == nil {
			title = episode.Title
		}
		if err := s.email.SendCompensationNotice(payment.UserEmail, title, compensationRef, payment.AmountCents); err != nil {
			s.logger.Payment().Warn("Failed to send compensation notice",
				"externalRef", payment.ExternalRef, "error", err)
		}
	}
	return nil
}
