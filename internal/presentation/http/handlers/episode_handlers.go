package handlers

import (
	"net/http"

	"github.com/bingocast/bingocast-go/internal/application/services"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/performance"
	"github.com/bingocast/bingocast-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// EpisodeHandlers contains episode lifecycle and dispatch HTTP handlers.
type EpisodeHandlers struct {
	episodeService  *services.EpisodeService
	dispatchService *services.DispatchService
	statsService    *services.StatsService
	logger          *logging.ChanneledLogger
	perfTracker     *performance.Tracker
}

// NewEpisodeHandlers creates episode handlers with injected dependencies.
func NewEpisodeHandlers(
	episodeService *services.EpisodeService,
	dispatchService *services.DispatchService,
	statsService *services.StatsService,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *EpisodeHandlers {
	return &EpisodeHandlers{
		episodeService:  episodeService,
		dispatchService: dispatchService,
		statsService:    statsService,
		logger:          logger,
		perfTracker:     perfTracker,
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(domainerrors.HTTPStatus(err), gin.H{"error": err.Error()})
}

// Create creates a draft episode with its event definitions.
func (h *EpisodeHandlers) Create(c *gin.Context) {
	var input services.CreateEpisodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	episode, err := h.episodeService.Create(c.Request.Context(), middleware.AuthSubject(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, episode)
}

// Get returns public episode state with its event definitions.
func (h *EpisodeHandlers) Get(c *gin.Context) {
	episode, defs, err := h.episodeService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"episode": episode, "events": defs})
}

// GoLive transitions a draft episode to live. The relay secret, when the
// episode has keyword or custom-webhook events, is disclosed only in
// this response.
func (h *EpisodeHandlers) GoLive(c *gin.Context) {
	episode, relaySecret, err := h.episodeService.GoLive(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"episode": episode}
	if relaySecret != "" {
		resp["relaySecret"] = relaySecret
	}
	c.JSON(http.StatusOK, resp)
}

// End transitions a live episode to ended, finalizing all cards.
func (h *EpisodeHandlers) End(c *gin.Context) {
	episode, err := h.episodeService.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, episode)
}

// Archive transitions an ended episode to archived.
func (h *EpisodeHandlers) Archive(c *gin.Context) {
	episode, err := h.episodeService.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, episode)
}

// Fire manually fires one event definition on a live episode.
func (h *EpisodeHandlers) Fire(c *gin.Context) {
	marker := h.perfTracker.StartOperation("manual_fire_request", c.Param("id"))
	defer marker.Complete()

	fired, err := h.dispatchService.Fire(c.Request.Context(), c.Param("id"), c.Param("eventId"), "manual", nil)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, fired)
}

// Stats returns the episode totals and leaderboard.
func (h *EpisodeHandlers) Stats(c *gin.Context) {
	payload, err := h.statsService.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}
