package services

import (
	"context"
	"time"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	"github.com/bingocast/bingocast-go/internal/domain/repositories"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
)

// CacheWarmer pre-populates the cache stores before the server accepts
// traffic, so the first trigger after a restart does not pay a cold
// read for every card in a live episode.
type CacheWarmer struct {
	episodes repositories.EpisodeRepository
	events   repositories.EventDefinitionRepository
	cards    repositories.CardRepository
	secrets  repositories.TriggerSecretRepository
	logger   *logging.ChanneledLogger
}

// NewCacheWarmer creates a new cache warmer.
func NewCacheWarmer(
	episodes repositories.EpisodeRepository,
	events repositories.EventDefinitionRepository,
	cards repositories.CardRepository,
	secrets repositories.TriggerSecretRepository,
	logger *logging.ChanneledLogger,
) *CacheWarmer {
	return &CacheWarmer{
		episodes: episodes,
		events:   events,
		cards:    cards,
		secrets:  secrets,
		logger:   logger,
	}
}

// WarmLiveEpisodes loads every live episode, its event definitions, its
// active cards, and the provider secrets through the cache-aside
// repositories, which populates the stores as a side effect.
func (w *CacheWarmer) WarmLiveEpisodes(ctx context.Context) error {
	start := time.Now()

	live, err := w.episodes.FindByStatus(ctx, bingo.EpisodeLive)
	if err != nil {
		return err
	}

	cardsWarmed := 0
	for _, episode := range live {
		if _, err := w.events.FindByEpisodeID(ctx, episode.ID); err != nil {
			w.logger.Cache().Warn("Failed to warm event definitions", "episodeId", episode.ID, "error", err)
		}
		cards, err := w.cards.FindActiveByEpisodeID(ctx, episode.ID)
		if err != nil {
			w.logger.Cache().Warn("Failed to warm cards", "episodeId", episode.ID, "error", err)
			continue
		}
		cardsWarmed += len(cards)
	}

	for _, provider := range []string{ProviderPlatform, ProviderCustom} {
		if _, err := w.secrets.FindActiveByProvider(ctx, provider); err != nil {
			w.logger.Cache().Warn("Failed to warm trigger secrets", "provider", provider, "error", err)
		}
	}

	w.logger.Startup().Info("Cache warmed",
		"liveEpisodes", len(live), "cards", cardsWarmed, "duration", time.Since(start).String())
	return nil
}
