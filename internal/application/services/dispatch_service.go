// Package services contains the application services orchestrating the
// bingo engine: episode lifecycle, dispatch, minting, trigger ingest,
// compensation, stats, and auth.
package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/domain/grid"
	"github.com/bingocast/bingocast-go/internal/domain/repositories"
	"github.com/bingocast/bingocast-go/internal/infrastructure/messaging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/performance"
	"github.com/bingocast/bingocast-go/internal/infrastructure/security"
)

// cardLockStripes bounds the lock table; cards hash onto stripes so two
// concurrent fires serialize per card without a lock per card.
const cardLockStripes = 64

// DispatchService applies a fired event to every active card in an
// episode and fans the results out to connected clients.
type DispatchService struct {
	episodes    repositories.EpisodeRepository
	events      repositories.EventDefinitionRepository
	cards       repositories.CardRepository
	firedEvents repositories.FiredEventRepository
	broadcaster messaging.Broadcaster
	stats       *StatsService
	logger      *logging.ChanneledLogger
	perf        *performance.Tracker
	cardLocks   [cardLockStripes]sync.Mutex
}

// NewDispatchService creates a new dispatch service.
func NewDispatchService(
	episodes repositories.EpisodeRepository,
	events repositories.EventDefinitionRepository,
	cards repositories.CardRepository,
	firedEvents repositories.FiredEventRepository,
	broadcaster messaging.Broadcaster,
	stats *StatsService,
	logger *logging.ChanneledLogger,
	perf *performance.Tracker,
) *DispatchService {
	return &DispatchService{
		episodes:    episodes,
		events:      events,
		cards:       cards,
		firedEvents: firedEvents,
		broadcaster: broadcaster,
		stats:       stats,
		logger:      logger,
		perf:        perf,
	}
}

func (s *DispatchService) lockFor(cardID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(cardID))
	return &s.cardLocks[h.Sum32()%cardLockStripes]
}

// Fire marks every active card holding squares for eventID, recomputes
// derived state, appends the audit record, and notifies clients. Firing
// an already-fired event is a no-op per card: marks only go false to
// true, so cards with no change are neither persisted nor notified.
func (s *DispatchService) Fire(ctx context.Context, episodeID, eventID, firedBy string, payload map[string]any) (*bingo.FiredEvent, error) {
	marker := s.perf.StartOperation("dispatch_fire", episodeID)
	defer marker.Complete()

	episode, err := s.episodes.FindByID(ctx, episodeID)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	if !episode.IsLive() {
		err := domainerrors.NewInvalidState("episode %s is %s, not live", episodeID, episode.Status)
		marker.SetError(err)
		return nil, err
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	if event.EpisodeID != episodeID {
		err := domainerrors.NewNotFound("event %s does not belong to episode %s", eventID, episodeID)
		marker.SetError(err)
		return nil, err
	}

	activeCards, err := s.cards.FindActiveByEpisodeID(ctx, episodeID)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to load active cards for %s: %w", episodeID, err)
	}

	firedAt := time.Now().UTC()
	affected := 0
	for _, card := range activeCards {
		changed, err := s.applyToCard(ctx, card, eventID, firedAt)
		if err != nil {
			// One bad card must not abort the fanout for the rest.
			s.logger.Dispatch().Error("Failed to apply fire to card",
				"episodeId", episodeID, "eventId", eventID, "cardId", card.ID, "error", err)
			continue
		}
		if changed {
			affected++
		}
	}

	fired := &bingo.FiredEvent{
		ID:            security.GenerateULID(),
		EpisodeID:     episodeID,
		EventID:       eventID,
		FiredAt:       firedAt,
		FiredBy:       firedBy,
		CardsAffected: affected,
		Payload:       payload,
	}
	if err := s.firedEvents.Append(ctx, fired); err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to append fired event: %w", err)
	}

	if event.FiredAt == nil {
		event.FiredAt = &firedAt
	}
	event.FiredCount++
	event.LastTriggeredAt = &firedAt
	if err := s.events.UpdateFireState(ctx, event); err != nil {
		s.logger.Dispatch().Error("Failed to update event fire state",
			"episodeId", episodeID, "eventId", eventID, "error", err)
	}

	s.broadcaster.BroadcastToEpisode(episodeID, messaging.NewMessage(messaging.TypeEventFired, messaging.EventFiredPayload{
		EpisodeID: episodeID,
		EventID:   eventID,
		EventName: event.Name,
		Timestamp: firedAt,
	}))
	s.stats.BroadcastUpdate(ctx, episodeID)

	marker.AddMetadata("cardsAffected", affected)
	marker.SetSuccess(true)
	s.logger.Dispatch().Info("Event fired",
		"episodeId", episodeID, "eventId", eventID, "firedBy", firedBy, "cardsAffected", affected)
	return fired, nil
}

// applyToCard serializes the read-modify-write for one card and reports
// whether anything changed.
func (s *DispatchService) applyToCard(ctx context.Context, card *bingo.Card, eventID string, firedAt time.Time) (bool, error) {
	lock := s.lockFor(card.ID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: the cached slice may be stale relative to
	// a concurrent fire that already marked this card.
	current, err := s.cards.FindByID(ctx, card.ID)
	if err != nil {
		return false, err
	}
	if current.Status != bingo.CardActive {
		return false, nil
	}

	if current.MarkMatching(eventID, firedAt) == 0 {
		return false, nil
	}

	before := current.Patterns
	current.MarkedSquares = current.CountMarked()
	current.Patterns = grid.DetectPatterns(current.Grid)

	if err := s.cards.UpdateState(ctx, current); err != nil {
		return false, err
	}

	s.broadcaster.SendToCard(current.ID, messaging.NewMessage(messaging.TypeCardUpdated, messaging.CardUpdatedPayload{
		CardID:        current.ID,
		MarkedSquares: current.MarkedSquares,
		NewPatterns:   bingo.DiffPatterns(before, current.Patterns),
		Patterns:      current.Patterns,
	}))
	return true, nil
}
