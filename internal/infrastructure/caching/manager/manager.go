// Package manager provides centralized cache operations by delegating to
// specialized stores.
package manager

import (
	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	"github.com/bingocast/bingocast-go/internal/infrastructure/caching/interfaces"
	"github.com/bingocast/bingocast-go/internal/infrastructure/caching/stores"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
)

// Interface assertion to ensure Manager implements the composite cache contract.
var _ interfaces.Cache = (*Manager)(nil)

// Manager provides centralized cache operations by delegating to
// specialized stores.
type Manager struct {
	episodesStore *stores.EpisodesStore
	cardsStore    *stores.CardsStore
	secretsStore  *stores.SecretsStore
	logger        *logging.ChanneledLogger
}

// NewManager creates the cache manager and its stores.
func NewManager(logger *logging.ChanneledLogger) *Manager {
	if logger != nil {
		logger.Cache().Info("Initializing cache manager", "stores", []string{"episodes", "cards", "secrets"})
	}

	return &Manager{
		episodesStore: stores.NewEpisodesStore(logger),
		cardsStore:    stores.NewCardsStore(logger),
		secretsStore:  stores.NewSecretsStore(logger),
		logger:        logger,
	}
}

// Episode cache delegation

func (m *Manager) GetEpisode(id string) (*bingo.Episode, bool) { return m.episodesStore.GetEpisode(id) }
func (m *Manager) SetEpisode(episode *bingo.Episode)           { m.episodesStore.SetEpisode(episode) }
func (m *Manager) InvalidateEpisode(id string)                 { m.episodesStore.InvalidateEpisode(id) }

func (m *Manager) GetEventDefinition(id string) (*bingo.EventDefinition, bool) {
	return m.episodesStore.GetEventDefinition(id)
}

func (m *Manager) SetEventDefinition(def *bingo.EventDefinition) {
	m.episodesStore.SetEventDefinition(def)
}

func (m *Manager) GetEpisodeEventIDs(episodeID string) ([]string, bool) {
	return m.episodesStore.GetEpisodeEventIDs(episodeID)
}

func (m *Manager) SetEpisodeEventIDs(episodeID string, ids []string) {
	m.episodesStore.SetEpisodeEventIDs(episodeID, ids)
}

func (m *Manager) InvalidateEpisodeEvents(episodeID string) {
	m.episodesStore.InvalidateEpisodeEvents(episodeID)
}

// Card cache delegation

func (m *Manager) GetCard(id string) (*bingo.Card, bool) { return m.cardsStore.GetCard(id) }
func (m *Manager) SetCard(card *bingo.Card)              { m.cardsStore.SetCard(card) }
func (m *Manager) InvalidateCard(id string)              { m.cardsStore.InvalidateCard(id) }

func (m *Manager) GetEpisodeCardIDs(episodeID string) ([]string, bool) {
	return m.cardsStore.GetEpisodeCardIDs(episodeID)
}

func (m *Manager) SetEpisodeCardIDs(episodeID string, ids []string) {
	m.cardsStore.SetEpisodeCardIDs(episodeID, ids)
}

func (m *Manager) AddEpisodeCardID(episodeID, cardID string) {
	m.cardsStore.AddEpisodeCardID(episodeID, cardID)
}

func (m *Manager) InvalidateEpisodeCards(episodeID string) {
	m.cardsStore.InvalidateEpisodeCards(episodeID)
}

// Secret cache delegation

func (m *Manager) GetProviderSecrets(provider string) ([]*bingo.TriggerSecret, bool) {
	return m.secretsStore.GetProviderSecrets(provider)
}

func (m *Manager) SetProviderSecrets(provider string, secrets []*bingo.TriggerSecret) {
	m.secretsStore.SetProviderSecrets(provider, secrets)
}

func (m *Manager) InvalidateProvider(provider string) {
	m.secretsStore.InvalidateProvider(provider)
}
