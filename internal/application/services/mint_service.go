package services

import (
	"context"
	"fmt"
	"time"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/domain/grid"
	"github.com/bingocast/bingocast-go/internal/domain/repositories"
	"github.com/bingocast/bingocast-go/internal/infrastructure/messaging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/payments"
	"github.com/bingocast/bingocast-go/internal/infrastructure/security"
	"github.com/bingocast/bingocast-go/pkg/config"
)

// MintService issues cards into live episodes, paid or free.
type MintService struct {
	episodes  repositories.EpisodeRepository
	events    repositories.EventDefinitionRepository
	cards     repositories.CardRepository
	payments  repositories.PendingPaymentRepository
	processor payments.Processor
	stats     *StatsService
	hub       messaging.Broadcaster
	logger    *logging.ChanneledLogger
	mintMu    chanLock
}

// chanLock is a context-aware mutex; it keeps the capacity check and the
// minted-count increment atomic without blocking forever on shutdown.
type chanLock chan struct{}

func newChanLock() chanLock { return make(chanLock, 1) }

func (l chanLock) lock(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l chanLock) unlock() { <-l }

// NewMintService creates a new mint service.
func NewMintService(
	episodes repositories.EpisodeRepository,
	events repositories.EventDefinitionRepository,
	cards repositories.CardRepository,
	paymentsRepo repositories.PendingPaymentRepository,
	processor payments.Processor,
	stats *StatsService,
	hub messaging.Broadcaster,
	logger *logging.ChanneledLogger,
) *MintService {
	return &MintService{
		episodes:  episodes,
		events:    events,
		cards:     cards,
		payments:  paymentsRepo,
		processor: processor,
		stats:     stats,
		hub:       hub,
		logger:    logger,
		mintMu:    newChanLock(),
	}
}

// BeginPaidEntry opens a charge with the processor and records it as a
// pending payment before the holder is sent to checkout. The external
// reference is assigned by the processor, never by the client, and is
// the idempotency anchor for the eventual completion trigger.
func (s *MintService) BeginPaidEntry(ctx context.Context, episodeID, userID, userEmail string) (*bingo.PendingPayment, error) {
	episode, err := s.episodes.FindByID(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if err := s.checkMintable(ctx, episode, userID); err != nil {
		return nil, err
	}
	if episode.EntryPrice == 0 {
		return nil, domainerrors.NewValidation("episode %s is free entry; no payment required", episodeID)
	}

	if existing, err := s.payments.FindPendingByEpisodeAndUser(ctx, episodeID, userID); err == nil && existing != nil {
		return nil, domainerrors.NewInvalidState("user %s already has a pending entry for episode %s", userID, episodeID)
	}

	externalRef, err := s.processor.CreatePendingCharge(ctx, episodeID, userID, episode.EntryPrice)
	if err != nil {
		s.logger.Payment().Error("Charge creation failed",
			"episodeId", episodeID, "userId", userID, "error", err)
		return nil, err
	}

	now := time.Now().UTC()
	payment := &bingo.PendingPayment{
		ID:          security.GenerateULID(),
		EpisodeID:   episodeID,
		UserID:      userID,
		UserEmail:   userEmail,
		ExternalRef: externalRef,
		AmountCents: episode.EntryPrice,
		Status:      bingo.PaymentPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(config.PendingPaymentTTL),
	}
	if err := s.payments.Store(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to store pending payment: %w", err)
	}
	s.logger.Payment().Info("Pending entry recorded",
		"episodeId", episodeID, "userId", userID, "externalRef", externalRef, "amount", payment.AmountCents)
	return payment, nil
}

// MintFree issues a card directly for a zero-entry-price episode.
func (s *MintService) MintFree(ctx context.Context, episodeID, userID string) (*bingo.Card, error) {
	episode, err := s.episodes.FindByID(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if episode.EntryPrice != 0 {
		return nil, domainerrors.NewValidation("episode %s requires paid entry", episodeID)
	}
	return s.mint(ctx, episode, userID, 0)
}

// MintPaid issues a card after a verified payment completion.
func (s *MintService) MintPaid(ctx context.Context, episodeID, userID string, amountCents int64) (*bingo.Card, error) {
	episode, err := s.episodes.FindByID(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	return s.mint(ctx, episode, userID, amountCents)
}

func (s *MintService) checkMintable(ctx context.Context, episode *bingo.Episode, userID string) error {
	if !episode.IsLive() {
		return domainerrors.NewInvalidState("episode %s is %s, not live", episode.ID, episode.Status)
	}
	if episode.AtCapacity() {
		return domainerrors.NewInvalidState("episode %s is at capacity", episode.ID)
	}
	if existing, err := s.cards.FindByEpisodeAndHolder(ctx, episode.ID, userID); err == nil && existing != nil {
		return domainerrors.NewInvalidState("user %s already holds a card in episode %s", userID, episode.ID)
	}
	return nil
}

func (s *MintService) mint(ctx context.Context, episode *bingo.Episode, userID string, paidCents int64) (*bingo.Card, error) {
	if err := s.mintMu.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mintMu.unlock()

	// Re-read inside the critical section so two concurrent mints cannot
	// both pass the capacity check.
	episode, err := s.episodes.FindByID(ctx, episode.ID)
	if err != nil {
		return nil, err
	}
	if err := s.checkMintable(ctx, episode, userID); err != nil {
		return nil, err
	}

	defs, err := s.events.FindByEpisodeID(ctx, episode.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event definitions for %s: %w", episode.ID, err)
	}

	squares, err := grid.Generate(defs, episode.GridDimension, grid.Options{FreeCenter: episode.FreeCenter})
	if err != nil {
		return nil, err
	}

	card := &bingo.Card{
		ID:         security.GenerateULID(),
		EpisodeID:  episode.ID,
		HolderID:   userID,
		CardNumber: episode.MintedCount + 1,
		Grid:       squares,
		Patterns:   nil,
		Status:     bingo.CardActive,
		CreatedAt:  time.Now().UTC(),
	}
	card.MarkedSquares = card.CountMarked() // free center counts

	if err := s.cards.Store(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to store card: %w", err)
	}

	episode.MintedCount++
	episode.RevenueCents += paidCents
	if err := s.episodes.Update(ctx, episode); err != nil {
		return nil, fmt.Errorf("failed to update minted count for %s: %w", episode.ID, err)
	}

	s.logger.Episode().Info("Card minted",
		"episodeId", episode.ID, "cardId", card.ID, "holderId", userID, "cardNumber", card.CardNumber)
	s.stats.BroadcastUpdate(ctx, episode.ID)
	return card, nil
}
