// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"net/http"

	"github.com/bingocast/bingocast-go/internal/application/container"
	"github.com/bingocast/bingocast-go/internal/presentation/http/handlers"
	"github.com/bingocast/bingocast-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(c *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	authHandlers := handlers.NewAuthHandlers(c.AuthService, c.Logger)
	episodeHandlers := handlers.NewEpisodeHandlers(c.EpisodeService, c.DispatchService, c.StatsService, c.Logger, c.Perf)
	cardHandlers := handlers.NewCardHandlers(c.MintService, c.Episodes, c.Cards, c.Logger)
	triggerHandlers := handlers.NewTriggerHandlers(c.TriggerService, c.Logger)
	wsHandlers := handlers.NewWSHandlers(c.Hub, c.AuthService, c.Logger)

	r.GET("/ws", wsHandlers.Connect)

	api := r.Group("/api/v1")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/auth/login", authHandlers.Login)

		// Public episode state.
		api.GET("/episodes/:id", episodeHandlers.Get)
		api.GET("/episodes/:id/stats", episodeHandlers.Stats)

		// Inbound trigger webhooks; verified by signature, not tokens.
		triggers := api.Group("/triggers")
		{
			triggers.POST("/payment", triggerHandlers.PaymentCompletion)
			triggers.POST("/platform", triggerHandlers.PlatformSignal)
			triggers.POST("/custom", triggerHandlers.CustomTrigger)
		}

		// Viewer endpoints.
		viewer := api.Group("")
		viewer.Use(middleware.RequireAuth(c.AuthService))
		{
			viewer.POST("/episodes/:id/entries", cardHandlers.Enter)
			viewer.GET("/cards/:id", cardHandlers.Get)
		}

		// Broadcaster endpoints.
		broadcaster := api.Group("/episodes")
		broadcaster.Use(middleware.RequireAuth(c.AuthService), middleware.RequireBroadcaster())
		{
			broadcaster.POST("", episodeHandlers.Create)
			broadcaster.POST("/:id/golive", episodeHandlers.GoLive)
			broadcaster.POST("/:id/end", episodeHandlers.End)
			broadcaster.POST("/:id/archive", episodeHandlers.Archive)
			broadcaster.POST("/:id/fire/:eventId", episodeHandlers.Fire)
		}
	}

	return r
}
