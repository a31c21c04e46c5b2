// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"

	"github.com/bingocast/bingocast-go/internal/application/services"
	"github.com/bingocast/bingocast-go/internal/domain/repositories"
	"github.com/bingocast/bingocast-go/internal/infrastructure/caching/manager"
	"github.com/bingocast/bingocast-go/internal/infrastructure/email"
	"github.com/bingocast/bingocast-go/internal/infrastructure/messaging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/performance"
	"github.com/bingocast/bingocast-go/internal/infrastructure/payments"
	"github.com/bingocast/bingocast-go/internal/infrastructure/persistence/bingo"
	"github.com/bingocast/bingocast-go/internal/infrastructure/persistence/database"
	"github.com/bingocast/bingocast-go/internal/infrastructure/streaming"
	"github.com/bingocast/bingocast-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Infrastructure
	Logger       *logging.ChanneledLogger
	Perf         *performance.Tracker
	DB           *database.Database
	CacheManager *manager.Manager
	Hub          *messaging.Hub
	Processor    payments.Processor
	Platform     streaming.Platform
	Email        email.Service

	// Repositories
	Episodes    repositories.EpisodeRepository
	Events      repositories.EventDefinitionRepository
	Cards       repositories.CardRepository
	FiredEvents repositories.FiredEventRepository
	Payments    repositories.PendingPaymentRepository
	Secrets     repositories.TriggerSecretRepository

	// Application services
	AuthService         *services.AuthService
	EpisodeService      *services.EpisodeService
	DispatchService     *services.DispatchService
	MintService         *services.MintService
	TriggerService      *services.TriggerService
	CompensationService *services.CompensationService
	StatsService        *services.StatsService
	CacheWarmer         *services.CacheWarmer
}

// NewContainer creates and wires all singleton services.
func NewContainer(logger *logging.ChanneledLogger) (*Container, error) {
	db, err := database.New()
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	cacheManager := manager.NewManager(logger)
	hub := messaging.NewHub(logger)
	perf := performance.NewTracker(1000)

	episodes := bingo.NewEpisodeRepository(db.Conn, cacheManager, logger)
	events := bingo.NewEventDefinitionRepository(db.Conn, cacheManager, logger)
	cards := bingo.NewCardRepository(db.Conn, cacheManager, logger)
	firedEvents := bingo.NewFiredEventRepository(db.Conn, logger)
	paymentsRepo := bingo.NewPendingPaymentRepository(db.Conn, logger)
	secrets := bingo.NewTriggerSecretRepository(db.Conn, cacheManager, logger)

	processor := payments.NewRetryingProcessor(payments.NewHTTPProcessor(), logger)
	platform := streaming.NewHTTPPlatform()

	var emailService email.Service
	if config.ResendAPIKey != "" {
		emailService, err = email.NewService()
		if err != nil {
			return nil, fmt.Errorf("failed to create email service: %w", err)
		}
	}

	statsService := services.NewStatsService(episodes, cards, hub, logger)
	dispatchService := services.NewDispatchService(episodes, events, cards, firedEvents, hub, statsService, logger, perf)
	mintService := services.NewMintService(episodes, events, cards, paymentsRepo, processor, statsService, hub, logger)
	compensationService := services.NewCompensationService(paymentsRepo, episodes, processor, hub, emailService, logger)
	triggerService := services.NewTriggerService(episodes, events, paymentsRepo, secrets, processor, dispatchService, mintService, compensationService, logger)
	episodeService := services.NewEpisodeService(episodes, events, cards, secrets, platform, hub, logger)

	return &Container{
		Logger:       logger,
		Perf:         perf,
		DB:           db,
		CacheManager: cacheManager,
		Hub:          hub,
		Processor:    processor,
		Platform:     platform,
		Email:        emailService,

		Episodes:    episodes,
		Events:      events,
		Cards:       cards,
		FiredEvents: firedEvents,
		Payments:    paymentsRepo,
		Secrets:     secrets,

		AuthService:         services.NewAuthService(logger),
		EpisodeService:      episodeService,
		DispatchService:     dispatchService,
		MintService:         mintService,
		TriggerService:      triggerService,
		CompensationService: compensationService,
		StatsService:        statsService,
		CacheWarmer:         services.NewCacheWarmer(episodes, events, cards, secrets, logger),
	}, nil
}

// Close releases infrastructure resources held by the container.
func (c *Container) Close() error {
	return c.DB.Close()
}
