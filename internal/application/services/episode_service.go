package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/domain/repositories"
	"github.com/bingocast/bingocast-go/internal/infrastructure/messaging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/security"
	"github.com/bingocast/bingocast-go/internal/infrastructure/streaming"
	"github.com/bingocast/bingocast-go/pkg/config"
)

// EventDefinitionInput describes one triggerable event at creation time.
type EventDefinitionInput struct {
	Name   string              `json:"name"`
	Icon   string              `json:"icon,omitempty"`
	Kind   bingo.TriggerKind   `json:"kind"`
	Config bingo.TriggerConfig `json:"config"`
}

// CreateEpisodeInput is the creation request for an episode.
type CreateEpisodeInput struct {
	Title         string                 `json:"title"`
	GridDimension int                    `json:"gridDimension"`
	EntryPrice    int64                  `json:"entryPrice"`
	Capacity      *int                   `json:"capacity,omitempty"`
	FreeCenter    bool                   `json:"freeCenter"`
	Events        []EventDefinitionInput `json:"events"`
}

// EpisodeService owns episode lifecycle, from creation through archive.
type EpisodeService struct {
	episodes repositories.EpisodeRepository
	events   repositories.EventDefinitionRepository
	cards    repositories.CardRepository
	secrets  repositories.TriggerSecretRepository
	platform streaming.Platform
	hub      messaging.Broadcaster
	logger   *logging.ChanneledLogger
}

// NewEpisodeService creates a new episode service.
func NewEpisodeService(
	episodes repositories.EpisodeRepository,
	events repositories.EventDefinitionRepository,
	cards repositories.CardRepository,
	secrets repositories.TriggerSecretRepository,
	platform streaming.Platform,
	hub messaging.Broadcaster,
	logger *logging.ChanneledLogger,
) *EpisodeService {
	return &EpisodeService{
		episodes: episodes,
		events:   events,
		cards:    cards,
		secrets:  secrets,
		platform: platform,
		hub:      hub,
		logger:   logger,
	}
}

// Create validates and stores a draft episode with its event definitions.
func (s *EpisodeService) Create(ctx context.Context, broadcasterID string, input CreateEpisodeInput) (*bingo.Episode, error) {
	if input.Title == "" {
		return nil, domainerrors.NewValidation("title must not be empty")
	}
	if input.GridDimension < config.GridDimensionMin || input.GridDimension > config.GridDimensionMax {
		return nil, domainerrors.NewValidation("grid dimension %d outside [%d,%d]",
			input.GridDimension, config.GridDimensionMin, config.GridDimensionMax)
	}
	if input.EntryPrice < 0 {
		return nil, domainerrors.NewValidation("entry price must not be negative")
	}
	if input.Capacity != nil && *input.Capacity < 1 {
		return nil, domainerrors.NewValidation("capacity must be at least 1")
	}
	if len(input.Events) == 0 {
		return nil, domainerrors.NewValidation("episode needs at least one event definition")
	}
	for i, ev := range input.Events {
		if err := validateEventInput(ev); err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, ev.Name, err)
		}
	}

	episode := &bingo.Episode{
		ID:            security.GenerateULID(),
		BroadcasterID: broadcasterID,
		Title:         input.Title,
		Status:        bingo.EpisodeDraft,
		GridDimension: input.GridDimension,
		EntryPrice:    input.EntryPrice,
		Capacity:      input.Capacity,
		FreeCenter:    input.FreeCenter,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.episodes.Store(ctx, episode); err != nil {
		return nil, fmt.Errorf("failed to store episode: %w", err)
	}

	for _, ev := range input.Events {
		def := &bingo.EventDefinition{
			ID:        security.GenerateULID(),
			EpisodeID: episode.ID,
			Name:      ev.Name,
			Icon:      ev.Icon,
			Kind:      ev.Kind,
			Config:    ev.Config,
		}
		if err := s.events.Store(ctx, def); err != nil {
			return nil, fmt.Errorf("failed to store event definition %s: %w", ev.Name, err)
		}
	}

	s.logger.Episode().Info("Episode created",
		"episodeId", episode.ID, "broadcasterId", broadcasterID, "events", len(input.Events))
	return episode, nil
}

func validateEventInput(ev EventDefinitionInput) error {
	if ev.Name == "" {
		return domainerrors.NewValidation("name must not be empty")
	}
	switch ev.Kind {
	case bingo.TriggerManual:
	case bingo.TriggerExternalSignal:
		if ev.Config.SignalType == "" {
			return domainerrors.NewValidation("external-signal event needs a signalType")
		}
	case bingo.TriggerChatKeyword, bingo.TriggerCustomWebhook:
		if ev.Config.Keyword == "" {
			return domainerrors.NewValidation("keyword event needs a keyword")
		}
		if ev.Config.MatchMode == bingo.MatchPattern {
			// Invalid patterns fail here, at configuration time, not in
			// the hot trigger path.
			if _, err := regexp.Compile(ev.Config.Keyword); err != nil {
				return domainerrors.NewValidation("invalid keyword pattern %q: %v", ev.Config.Keyword, err)
			}
		}
	default:
		return domainerrors.NewValidation("unknown trigger kind %q", ev.Kind)
	}
	if ev.Config.CooldownSeconds < 0 {
		return domainerrors.NewValidation("cooldown must not be negative")
	}
	return nil
}

// GoLive transitions a draft episode to live, registers platform
// subscriptions for its external-signal events, and issues a relay
// secret when the episode has keyword or custom-webhook events. The
// relay secret is returned once, here; it is never readable again.
func (s *EpisodeService) GoLive(ctx context.Context, episodeID string) (*bingo.Episode, string, error) {
	episode, err := s.transition(ctx, episodeID, bingo.EpisodeLive)
	if err != nil {
		return nil, "", err
	}

	defs, err := s.events.FindByEpisodeID(ctx, episodeID)
	if err != nil {
		return nil, "", err
	}
	needsRelay := false
	for _, def := range defs {
		if def.Kind == bingo.TriggerChatKeyword || def.Kind == bingo.TriggerCustomWebhook {
			needsRelay = true
		}
		if def.Kind != bingo.TriggerExternalSignal {
			continue
		}
		subID, secret, err := s.platform.Subscribe(ctx, episode.BroadcasterID, def.Config.SignalType)
		if err != nil {
			s.logger.Episode().Error("Platform subscription failed",
				"episodeId", episodeID, "signalType", def.Config.SignalType, "error", err)
			continue
		}
		if err := s.secrets.Store(ctx, &bingo.TriggerSecret{
			ID:             security.GenerateULID(),
			Provider:       ProviderPlatform,
			EpisodeID:      episodeID,
			SubscriptionID: subID,
			Secret:         secret,
			Active:         true,
			CreatedAt:      time.Now().UTC(),
		}); err != nil {
			s.logger.Episode().Error("Failed to store subscription secret",
				"episodeId", episodeID, "subscriptionId", subID, "error", err)
		}
	}

	relaySecret := ""
	if needsRelay {
		relaySecret, err = security.GenerateSecureKey(64)
		if err != nil {
			return nil, "", fmt.Errorf("failed to generate relay secret: %w", err)
		}
		if err := s.secrets.Store(ctx, &bingo.TriggerSecret{
			ID:             security.GenerateULID(),
			Provider:       ProviderCustom,
			EpisodeID:      episodeID,
			SubscriptionID: "relay-" + episodeID,
			Secret:         relaySecret,
			Active:         true,
			CreatedAt:      time.Now().UTC(),
		}); err != nil {
			return nil, "", fmt.Errorf("failed to store relay secret: %w", err)
		}
	}

	return episode, relaySecret, nil
}

// End transitions a live episode to ended and finalizes every active
// card, pushing each holder their final state.
func (s *EpisodeService) End(ctx context.Context, episodeID string) (*bingo.Episode, error) {
	episode, err := s.transition(ctx, episodeID, bingo.EpisodeEnded)
	if err != nil {
		return nil, err
	}

	activeCards, err := s.cards.FindActiveByEpisodeID(ctx, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards to finalize: %w", err)
	}
	for _, card := range activeCards {
		card.Status = bingo.CardFinalized
		if err := s.cards.UpdateState(ctx, card); err != nil {
			s.logger.Episode().Error("Failed to finalize card",
				"episodeId", episodeID, "cardId", card.ID, "error", err)
			continue
		}
		s.hub.SendToCard(card.ID, messaging.NewMessage(messaging.TypeCardFinalized, messaging.CardFinalizedPayload{
			CardID:     card.ID,
			FinalState: card,
		}))
	}

	s.teardownTriggers(ctx, episodeID)

	s.logger.Episode().Info("Episode ended", "episodeId", episodeID, "cardsFinalized", len(activeCards))
	return episode, nil
}

// teardownTriggers unsubscribes the episode's platform subscriptions and
// revokes its secrets. Best effort: a dead subscription on an ended
// episode is a hygiene problem, not a correctness one, so failures are
// logged and the end proceeds.
func (s *EpisodeService) teardownTriggers(ctx context.Context, episodeID string) {
	active, err := s.secrets.FindActiveByEpisodeID(ctx, episodeID)
	if err != nil {
		s.logger.Episode().Error("Failed to load trigger secrets for teardown",
			"episodeId", episodeID, "error", err)
		return
	}
	for _, secret := range active {
		if secret.Provider == ProviderPlatform {
			if err := s.platform.Unsubscribe(ctx, secret.SubscriptionID); err != nil {
				s.logger.Episode().Error("Platform unsubscribe failed",
					"episodeId", episodeID, "subscriptionId", secret.SubscriptionID, "error", err)
			}
		}
		if err := s.secrets.Revoke(ctx, secret.ID); err != nil {
			s.logger.Episode().Error("Failed to revoke trigger secret",
				"episodeId", episodeID, "secretId", secret.ID, "error", err)
		}
	}
}

// Archive transitions an ended episode to archived.
func (s *EpisodeService) Archive(ctx context.Context, episodeID string) (*bingo.Episode, error) {
	return s.transition(ctx, episodeID, bingo.EpisodeArchived)
}

// Get returns the episode with its event definitions.
func (s *EpisodeService) Get(ctx context.Context, episodeID string) (*bingo.Episode, []*bingo.EventDefinition, error) {
	episode, err := s.episodes.FindByID(ctx, episodeID)
	if err != nil {
		return nil, nil, err
	}
	defs, err := s.events.FindByEpisodeID(ctx, episodeID)
	if err != nil {
		return nil, nil, err
	}
	return episode, defs, nil
}

func (s *EpisodeService) transition(ctx context.Context, episodeID string, next bingo.EpisodeStatus) (*bingo.Episode, error) {
	episode, err := s.episodes.FindByID(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if !episode.CanTransitionTo(next) {
		return nil, domainerrors.NewInvalidState("episode %s cannot go %s -> %s", episodeID, episode.Status, next)
	}

	now := time.Now().UTC()
	episode.Status = next
	switch next {
	case bingo.EpisodeLive:
		episode.StartedAt = &now
	case bingo.EpisodeEnded:
		episode.EndedAt = &now
	}
	if err := s.episodes.Update(ctx, episode); err != nil {
		return nil, fmt.Errorf("failed to update episode status: %w", err)
	}

	s.hub.BroadcastToEpisode(episodeID, messaging.NewMessage(messaging.TypeEpisodeState, messaging.EpisodeStatePayload{
		EpisodeID: episodeID,
		Status:    next,
	}))
	s.logger.Episode().Info("Episode transitioned", "episodeId", episodeID, "status", string(next))
	return episode, nil
}
