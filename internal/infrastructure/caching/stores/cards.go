package stores

import (
	"sync"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
)

// CardsStore caches cards and the per-episode card index used by the
// dispatcher's fan-out loop. Cards are exchanged as clones on both Get
// and Set: a cached card is never reachable from caller code, so readers
// on other goroutines cannot observe a writer's in-place mutations.
type CardsStore struct {
	cards          map[string]*bingo.Card
	episodeCardIDs map[string][]string
	mu             sync.RWMutex
	logger         *logging.ChanneledLogger
}

// NewCardsStore creates a new cards cache store
func NewCardsStore(logger *logging.ChanneledLogger) *CardsStore {
	if logger != nil {
		logger.Cache().Info("Initializing cards cache store")
	}
	return &CardsStore{
		cards:          make(map[string]*bingo.Card),
		episodeCardIDs: make(map[string][]string),
		logger:         logger,
	}
}

func (cs *CardsStore) GetCard(id string) (*bingo.Card, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	card, exists := cs.cards[id]
	if !exists {
		return nil, false
	}
	return card.Clone(), true
}

func (cs *CardsStore) SetCard(card *bingo.Card) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.cards[card.ID] = card.Clone()
}

func (cs *CardsStore) InvalidateCard(id string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.cards, id)
}

func (cs *CardsStore) GetEpisodeCardIDs(episodeID string) ([]string, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	ids, exists := cs.episodeCardIDs[episodeID]
	if !exists {
		return nil, false
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, true
}

func (cs *CardsStore) SetEpisodeCardIDs(episodeID string, ids []string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cp := make([]string, len(ids))
	copy(cp, ids)
	cs.episodeCardIDs[episodeID] = cp
}

func (cs *CardsStore) AddEpisodeCardID(episodeID, cardID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if ids, exists := cs.episodeCardIDs[episodeID]; exists {
		cs.episodeCardIDs[episodeID] = append(ids, cardID)
	}
}

func (cs *CardsStore) InvalidateEpisodeCards(episodeID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, id := range cs.episodeCardIDs[episodeID] {
		delete(cs.cards, id)
	}
	delete(cs.episodeCardIDs, episodeID)
	if cs.logger != nil {
		cs.logger.Cache().Debug("Episode cards invalidated", "episodeId", episodeID)
	}
}
