package services

import (
	"context"
	"sort"

	"github.com/bingocast/bingocast-go/internal/domain/repositories"
	"github.com/bingocast/bingocast-go/internal/infrastructure/messaging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
)

const leaderboardSize = 10

// StatsService computes episode running totals and the leaderboard.
type StatsService struct {
	episodes repositories.EpisodeRepository
	cards    repositories.CardRepository
	hub      messaging.Broadcaster
	logger   *logging.ChanneledLogger
}

// NewStatsService creates a new stats service.
func NewStatsService(
	episodes repositories.EpisodeRepository,
	cards repositories.CardRepository,
	hub messaging.Broadcaster,
	logger *logging.ChanneledLogger,
) *StatsService {
	return &StatsService{
		episodes: episodes,
		cards:    cards,
		hub:      hub,
		logger:   logger,
	}
}

// Snapshot computes the current stats payload for an episode.
func (s *StatsService) Snapshot(ctx context.Context, episodeID string) (*messaging.StatsUpdatePayload, error) {
	episode, err := s.episodes.FindByID(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	cards, err := s.cards.FindActiveByEpisodeID(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	entries := make([]messaging.LeaderboardEntry, 0, len(cards))
	for _, card := range cards {
		entries = append(entries, messaging.LeaderboardEntry{
			HolderID:      card.HolderID,
			CardID:        card.ID,
			Patterns:      len(card.Patterns),
			MarkedSquares: card.MarkedSquares,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Patterns != entries[j].Patterns {
			return entries[i].Patterns > entries[j].Patterns
		}
		return entries[i].MarkedSquares > entries[j].MarkedSquares
	})
	if len(entries) > leaderboardSize {
		entries = entries[:leaderboardSize]
	}

	return &messaging.StatsUpdatePayload{
		EpisodeID:   episodeID,
		CardsMinted: episode.MintedCount,
		Revenue:     episode.RevenueCents,
		Leaderboard: entries,
	}, nil
}

// BroadcastUpdate pushes fresh stats to the episode room. Failures are
// logged, never surfaced: stats are advisory.
func (s *StatsService) BroadcastUpdate(ctx context.Context, episodeID string) {
	payload, err := s.Snapshot(ctx, episodeID)
	if err != nil {
		s.logger.Broadcast().Warn("Failed to compute stats update", "episodeId", episodeID, "error", err)
		return
	}
	s.hub.BroadcastToEpisode(episodeID, messaging.NewMessage(messaging.TypeStatsUpdate, *payload))
}
