// Package stores provides concrete cache store implementations
package stores

import (
	"sync"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
)

// EpisodesStore caches episodes and their event definitions. Entities
// are exchanged as clones on both Get and Set so concurrent readers
// never share a mutable object with a writer.
type EpisodesStore struct {
	episodes        map[string]*bingo.Episode
	eventDefs       map[string]*bingo.EventDefinition
	episodeEventIDs map[string][]string
	mu              sync.RWMutex
	logger          *logging.ChanneledLogger
}

// NewEpisodesStore creates a new episodes cache store
func NewEpisodesStore(logger *logging.ChanneledLogger) *EpisodesStore {
	if logger != nil {
		logger.Cache().Info("Initializing episodes cache store")
	}
	return &EpisodesStore{
		episodes:        make(map[string]*bingo.Episode),
		eventDefs:       make(map[string]*bingo.EventDefinition),
		episodeEventIDs: make(map[string][]string),
		logger:          logger,
	}
}

func (es *EpisodesStore) GetEpisode(id string) (*bingo.Episode, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	episode, exists := es.episodes[id]
	if !exists {
		return nil, false
	}
	return episode.Clone(), true
}

func (es *EpisodesStore) SetEpisode(episode *bingo.Episode) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.episodes[episode.ID] = episode.Clone()
}

func (es *EpisodesStore) InvalidateEpisode(id string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	delete(es.episodes, id)
	if es.logger != nil {
		es.logger.Cache().Debug("Episode cache invalidated", "episodeId", id)
	}
}

func (es *EpisodesStore) GetEventDefinition(id string) (*bingo.EventDefinition, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	def, exists := es.eventDefs[id]
	if !exists {
		return nil, false
	}
	return def.Clone(), true
}

func (es *EpisodesStore) SetEventDefinition(def *bingo.EventDefinition) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.eventDefs[def.ID] = def.Clone()
}

func (es *EpisodesStore) GetEpisodeEventIDs(episodeID string) ([]string, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	ids, exists := es.episodeEventIDs[episodeID]
	if !exists {
		return nil, false
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, true
}

func (es *EpisodesStore) SetEpisodeEventIDs(episodeID string, ids []string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	cp := make([]string, len(ids))
	copy(cp, ids)
	es.episodeEventIDs[episodeID] = cp
}

func (es *EpisodesStore) InvalidateEpisodeEvents(episodeID string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	for _, id := range es.episodeEventIDs[episodeID] {
		delete(es.eventDefs, id)
	}
	delete(es.episodeEventIDs, episodeID)
}
