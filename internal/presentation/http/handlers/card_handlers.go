package handlers

import (
	"net/http"

	"github.com/bingocast/bingocast-go/internal/application/services"
	"github.com/bingocast/bingocast-go/internal/domain/repositories"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// EnterEpisodeRequest is the entry body. Free episodes need no fields;
// paid episodes may carry a receipt email for compensation notices. The
// processor charge reference is created server-side, never accepted
// from the client.
type EnterEpisodeRequest struct {
	Email string `json:"email,omitempty"`
}

// CardHandlers contains card and entry HTTP handlers.
type CardHandlers struct {
	mintService *services.MintService
	episodes    repositories.EpisodeRepository
	cards       repositories.CardRepository
	logger      *logging.ChanneledLogger
}

// NewCardHandlers creates card handlers with injected dependencies.
func NewCardHandlers(
	mintService *services.MintService,
	episodes repositories.EpisodeRepository,
	cards repositories.CardRepository,
	logger *logging.ChanneledLogger,
) *CardHandlers {
	return &CardHandlers{
		mintService: mintService,
		episodes:    episodes,
		cards:       cards,
		logger:      logger,
	}
}

// Enter requests a card in an episode. Free episodes mint immediately;
// paid episodes record the pending payment that the completion webhook
// later resolves into a card.
func (h *CardHandlers) Enter(c *gin.Context) {
	var req EnterEpisodeRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	episodeID := c.Param("id")
	userID := middleware.AuthSubject(c)

	episode, err := h.episodes.FindByID(c.Request.Context(), episodeID)
	if err != nil {
		respondError(c, err)
		return
	}

	if episode.EntryPrice == 0 {
		card, err := h.mintService.MintFree(c.Request.Context(), episodeID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, card)
		return
	}

	payment, err := h.mintService.BeginPaidEntry(c.Request.Context(), episodeID, userID, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, payment)
}

// Get returns a card's state. Only the holder may view their card.
func (h *CardHandlers) Get(c *gin.Context) {
	card, err := h.cards.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if card.HolderID != middleware.AuthSubject(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your card"})
		return
	}
	c.JSON(http.StatusOK, card)
}
