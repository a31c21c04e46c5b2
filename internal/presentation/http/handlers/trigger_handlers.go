package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/bingocast/bingocast-go/internal/application/services"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/security"
	"github.com/gin-gonic/gin"
)

// maxTriggerBody bounds inbound webhook payloads.
const maxTriggerBody = 64 << 10

// TriggerHandlers contains the three inbound trigger webhook handlers.
// Acceptance is decoupled from match outcome: a verified message that
// matches nothing is still 202.
type TriggerHandlers struct {
	triggerService *services.TriggerService
	logger         *logging.ChanneledLogger
}

// NewTriggerHandlers creates trigger handlers with injected dependencies.
func NewTriggerHandlers(triggerService *services.TriggerService, logger *logging.ChanneledLogger) *TriggerHandlers {
	return &TriggerHandlers{triggerService: triggerService, logger: logger}
}

// signedMessage assembles verification inputs from the request. The
// body must be read raw: re-serialized JSON would not match the HMAC.
func signedMessage(c *gin.Context) (security.SignedMessage, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxTriggerBody))
	if err != nil {
		return security.SignedMessage{}, err
	}
	return security.SignedMessage{
		MessageID: c.GetHeader("X-Message-Id"),
		Timestamp: c.GetHeader("X-Timestamp"),
		Body:      body,
		Signature: c.GetHeader("X-Signature"),
	}, nil
}

func (h *TriggerHandlers) handle(c *gin.Context, process func(context.Context, security.SignedMessage) error) {
	msg, err := signedMessage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := process(c.Request.Context(), msg); err != nil {
		status := domainerrors.HTTPStatus(err)
		if status >= 500 {
			// Hide collaborator detail from the webhook source.
			c.JSON(status, gin.H{"error": "processing failed"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// PaymentCompletion receives the payment processor's completion webhook.
func (h *TriggerHandlers) PaymentCompletion(c *gin.Context) {
	h.handle(c, h.triggerService.HandlePaymentCompletion)
}

// PlatformSignal receives streaming-platform signal callbacks.
func (h *TriggerHandlers) PlatformSignal(c *gin.Context) {
	h.handle(c, h.triggerService.HandlePlatformSignal)
}

// CustomTrigger receives custom signed callbacks and chat relays.
func (h *TriggerHandlers) CustomTrigger(c *gin.Context) {
	h.handle(c, h.triggerService.HandleCustomTrigger)
}
