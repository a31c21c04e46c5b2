// Package repositories defines the repository interfaces for the bingo
// entities. These abstract the persistence details so the dispatch and
// trigger services stay decoupled from the database.
package repositories

import (
	"context"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
)

type EpisodeRepository interface {
	FindByID(ctx context.Context, id string) (*bingo.Episode, error)
	FindByStatus(ctx context.Context, status bingo.EpisodeStatus) ([]*bingo.Episode, error)
	Store(ctx context.Context, episode *bingo.Episode) error
	Update(ctx context.Context, episode *bingo.Episode) error
}

type EventDefinitionRepository interface {
	FindByID(ctx context.Context, id string) (*bingo.EventDefinition, error)
	FindByEpisodeID(ctx context.Context, episodeID string) ([]*bingo.EventDefinition, error)
	Store(ctx context.Context, def *bingo.EventDefinition) error
	UpdateFireState(ctx context.Context, def *bingo.EventDefinition) error
}

type CardRepository interface {
	FindByID(ctx context.Context, id string) (*bingo.Card, error)
	FindActiveByEpisodeID(ctx context.Context, episodeID string) ([]*bingo.Card, error)
	FindByEpisodeAndHolder(ctx context.Context, episodeID, holderID string) (*bingo.Card, error)
	Store(ctx context.Context, card *bingo.Card) error
	UpdateState(ctx context.Context, card *bingo.Card) error
}

type FiredEventRepository interface {
	Append(ctx context.Context, fired *bingo.FiredEvent) error
	FindByEpisodeID(ctx context.Context, episodeID string) ([]*bingo.FiredEvent, error)
}

type PendingPaymentRepository interface {
	FindByExternalRef(ctx context.Context, ref string) (*bingo.PendingPayment, error)
	FindPendingByEpisodeAndUser(ctx context.Context, episodeID, userID string) (*bingo.PendingPayment, error)
	Store(ctx context.Context, payment *bingo.PendingPayment) error
	UpdateStatus(ctx context.Context, payment *bingo.PendingPayment, from bingo.PaymentStatus) error
	ExpireStale(ctx context.Context) (int, error)
}

type TriggerSecretRepository interface {
	FindActiveByProvider(ctx context.Context, provider string) ([]*bingo.TriggerSecret, error)
	FindActiveByEpisodeID(ctx context.Context, episodeID string) ([]*bingo.TriggerSecret, error)
	Store(ctx context.Context, secret *bingo.TriggerSecret) error
	Revoke(ctx context.Context, id string) error
}
