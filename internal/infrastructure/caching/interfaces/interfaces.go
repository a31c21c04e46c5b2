// Package interfaces defines cache operation contracts for the bingo engine.
package interfaces

import "github.com/bingocast/bingocast-go/internal/domain/entities/bingo"

// EpisodeCache defines operations for episode and event-definition caching
type EpisodeCache interface {
	GetEpisode(id string) (*bingo.Episode, bool)
	SetEpisode(episode *bingo.Episode)
	InvalidateEpisode(id string)
	GetEventDefinition(id string) (*bingo.EventDefinition, bool)
	SetEventDefinition(def *bingo.EventDefinition)
	GetEpisodeEventIDs(episodeID string) ([]string, bool)
	SetEpisodeEventIDs(episodeID string, ids []string)
	InvalidateEpisodeEvents(episodeID string)
}

// CardCache defines operations for card caching
type CardCache interface {
	GetCard(id string) (*bingo.Card, bool)
	SetCard(card *bingo.Card)
	InvalidateCard(id string)
	GetEpisodeCardIDs(episodeID string) ([]string, bool)
	SetEpisodeCardIDs(episodeID string, ids []string)
	AddEpisodeCardID(episodeID, cardID string)
	InvalidateEpisodeCards(episodeID string)
}

// SecretCache defines read-through caching for trigger secrets
type SecretCache interface {
	GetProviderSecrets(provider string) ([]*bingo.TriggerSecret, bool)
	SetProviderSecrets(provider string, secrets []*bingo.TriggerSecret)
	InvalidateProvider(provider string)
}

// Cache is the composite contract the cache manager satisfies
type Cache interface {
	EpisodeCache
	CardCache
	SecretCache
}
