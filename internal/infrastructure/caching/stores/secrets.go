package stores

import (
	"sync"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
)

// SecretsStore caches active trigger secrets per provider. It is the
// process-memory side of the read-through secret cache; durable storage
// remains authoritative across restarts.
type SecretsStore struct {
	byProvider map[string][]*bingo.TriggerSecret
	mu         sync.RWMutex
	logger     *logging.ChanneledLogger
}

// NewSecretsStore creates a new trigger secrets cache store
func NewSecretsStore(logger *logging.ChanneledLogger) *SecretsStore {
	if logger != nil {
		logger.Cache().Info("Initializing trigger secrets cache store")
	}
	return &SecretsStore{
		byProvider: make(map[string][]*bingo.TriggerSecret),
		logger:     logger,
	}
}

func (ss *SecretsStore) GetProviderSecrets(provider string) ([]*bingo.TriggerSecret, bool) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	secrets, exists := ss.byProvider[provider]
	if !exists {
		return nil, false
	}
	return cloneSecrets(secrets), true
}

func (ss *SecretsStore) SetProviderSecrets(provider string, secrets []*bingo.TriggerSecret) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.byProvider[provider] = cloneSecrets(secrets)
}

func cloneSecrets(secrets []*bingo.TriggerSecret) []*bingo.TriggerSecret {
	out := make([]*bingo.TriggerSecret, len(secrets))
	for i, s := range secrets {
		out[i] = s.Clone()
	}
	return out
}

func (ss *SecretsStore) InvalidateProvider(provider string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.byProvider, provider)
	if ss.logger != nil {
		ss.logger.Cache().Debug("Provider secrets invalidated", "provider", provider)
	}
}
