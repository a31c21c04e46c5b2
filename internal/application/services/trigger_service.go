package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/domain/repositories"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/payments"
	"github.com/bingocast/bingocast-go/internal/infrastructure/security"
	"github.com/bingocast/bingocast-go/pkg/config"
)

// Trigger providers the secret store distinguishes.
const (
	ProviderPlatform = "platform"
	ProviderCustom   = "custom"
)

// PaymentCompletionPayload is the body of the payment processor's
// completion notification.
type PaymentCompletionPayload struct {
	ExternalRef string `json:"externalRef"`
	AmountCents int64  `json:"amountCents"`
	Status      string `json:"status"`
}

// PlatformSignalPayload is the body of a streaming-platform signal.
type PlatformSignalPayload struct {
	EpisodeID  string `json:"episodeId"`
	SignalType string `json:"signalType"`
	Amount     int    `json:"amount"`
}

// CustomTriggerPayload is the body of a custom callback or chat relay.
type CustomTriggerPayload struct {
	EpisodeID string `json:"episodeId"`
	Text      string `json:"text"`
	Source    string `json:"source,omitempty"`
}

// TriggerService verifies inbound trigger messages and routes accepted
// ones into the dispatcher or the mint/compensation pipeline. Every
// verification failure stops short of any dispatch side effect.
type TriggerService struct {
	episodes     repositories.EpisodeRepository
	events       repositories.EventDefinitionRepository
	paymentsRepo repositories.PendingPaymentRepository
	secrets      repositories.TriggerSecretRepository
	processor    payments.Processor
	dispatch     *DispatchService
	mint         *MintService
	compensation *CompensationService
	logger       *logging.ChanneledLogger
	now          func() time.Time
}

// NewTriggerService creates a new trigger service.
func NewTriggerService(
	episodes repositories.EpisodeRepository,
	events repositories.EventDefinitionRepository,
	paymentsRepo repositories.PendingPaymentRepository,
	secrets repositories.TriggerSecretRepository,
	processor payments.Processor,
	dispatch *DispatchService,
	mint *MintService,
	compensation *CompensationService,
	logger *logging.ChanneledLogger,
) *TriggerService {
	return &TriggerService{
		episodes:     episodes,
		events:       events,
		paymentsRepo: paymentsRepo,
		secrets:      secrets,
		processor:    processor,
		dispatch:     dispatch,
		mint:         mint,
		compensation: compensation,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// HandlePaymentCompletion processes the processor's completion webhook.
// The external reference is the idempotency anchor: a duplicate
// notification for a resolved payment is acknowledged and ignored.
func (s *TriggerService) HandlePaymentCompletion(ctx context.Context, msg security.SignedMessage) error {
	if config.PaymentWebhookSecret == "" {
		return domainerrors.NewVerification("payment webhook secret not configured")
	}
	if err := security.VerifySignature(msg, []string{config.PaymentWebhookSecret}, config.TriggerFreshnessWindow, s.now()); err != nil {
		s.logger.Trigger().Warn("Rejected payment trigger", "messageId", msg.MessageID, "error", err)
		return err
	}

	var payload PaymentCompletionPayload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		return domainerrors.NewValidation("malformed payment completion body: %v", err)
	}
	if payload.ExternalRef == "" {
		return domainerrors.NewValidation("payment completion missing externalRef")
	}

	payment, err := s.paymentsRepo.FindByExternalRef(ctx, payload.ExternalRef)
	if err != nil {
		if domainerrors.KindOf(err) == domainerrors.KindNotFound {
			// Unknown reference: acknowledged, never minted.
			s.logger.Trigger().Warn("Payment completion for unknown reference", "externalRef", payload.ExternalRef)
			return nil
		}
		return err
	}
	if payment.Resolved() {
		s.logger.Trigger().Info("Duplicate payment completion ignored", "externalRef", payload.ExternalRef)
		return nil
	}

	if err := s.processor.ConfirmCharge(ctx, payment.ExternalRef, payment.AmountCents); err != nil {
		s.logger.Payment().Error("Charge confirmation failed", "externalRef", payment.ExternalRef, "error", err)
		return err
	}

	// Claim the payment before minting. The conditional pending->completed
	// transition is the real idempotency gate: whichever delivery claims
	// the row mints the card, and every other delivery is a no-op even if
	// its earlier read saw a stale pending status.
	resolvedAt := s.now()
	payment.Status = bingo.PaymentCompleted
	payment.ResolvedAt = &resolvedAt
	if err := s.paymentsRepo.UpdateStatus(ctx, payment, bingo.PaymentPending); err != nil {
		if domainerrors.KindOf(err) == domainerrors.KindInvalidState {
			s.logger.Trigger().Info("Duplicate payment completion lost the claim", "externalRef", payment.ExternalRef)
			return nil
		}
		return err
	}

	card, err := s.mint.MintPaid(ctx, payment.EpisodeID, payment.UserID, payment.AmountCents)
	if err != nil {
		// Captured money with no card to issue: refund, exactly once.
		s.logger.Payment().Warn("Mint failed after capture, compensating",
			"externalRef", payment.ExternalRef, "reason", err.Error())
		return s.compensation.Compensate(ctx, payment, err.Error())
	}

	s.logger.Trigger().Info("Paid entry completed",
		"externalRef", payment.ExternalRef, "episodeId", payment.EpisodeID, "cardId", card.ID)
	return nil
}

// HandlePlatformSignal verifies a streaming-platform signal and fires
// every matching external-signal event definition on the episode.
func (s *TriggerService) HandlePlatformSignal(ctx context.Context, msg security.SignedMessage) error {
	if err := s.verifyWithProviderSecrets(ctx, ProviderPlatform, msg); err != nil {
		return err
	}

	var payload PlatformSignalPayload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		return domainerrors.NewValidation("malformed platform signal body: %v", err)
	}
	if payload.EpisodeID == "" || payload.SignalType == "" {
		return domainerrors.NewValidation("platform signal missing episodeId or signalType")
	}

	defs, err := s.liveEventDefinitions(ctx, payload.EpisodeID)
	if err != nil {
		return err
	}

	fired := 0
	for _, def := range defs {
		if def.Kind != bingo.TriggerExternalSignal {
			continue
		}
		if def.Config.SignalType != payload.SignalType {
			continue
		}
		if payload.Amount < def.Config.Threshold {
			continue
		}
		if def.InCooldown(s.now()) {
			continue
		}
		if _, err := s.dispatch.Fire(ctx, payload.EpisodeID, def.ID, "platform:"+payload.SignalType, map[string]any{
			"messageId":  msg.MessageID,
			"signalType": payload.SignalType,
			"amount":     payload.Amount,
		}); err != nil {
			s.logger.Trigger().Error("Platform-triggered fire failed",
				"episodeId", payload.EpisodeID, "eventId", def.ID, "error", err)
			continue
		}
		fired++
	}

	s.logger.Trigger().Info("Platform signal processed",
		"episodeId", payload.EpisodeID, "signalType", payload.SignalType, "eventsFired", fired)
	return nil
}

// HandleCustomTrigger verifies a custom callback or chat-relay message
// and fires keyword rules that match its text.
func (s *TriggerService) HandleCustomTrigger(ctx context.Context, msg security.SignedMessage) error {
	if err := s.verifyWithProviderSecrets(ctx, ProviderCustom, msg); err != nil {
		return err
	}

	var payload CustomTriggerPayload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		return domainerrors.NewValidation("malformed custom trigger body: %v", err)
	}
	if payload.EpisodeID == "" || payload.Text == "" {
		return domainerrors.NewValidation("custom trigger missing episodeId or text")
	}

	defs, err := s.liveEventDefinitions(ctx, payload.EpisodeID)
	if err != nil {
		return err
	}

	fired := 0
	for _, def := range defs {
		if def.Kind != bingo.TriggerChatKeyword && def.Kind != bingo.TriggerCustomWebhook {
			continue
		}
		matched, err := MatchKeyword(def.Config, payload.Text)
		if err != nil {
			s.logger.Trigger().Warn("Unusable keyword rule skipped",
				"episodeId", payload.EpisodeID, "eventId", def.ID, "error", err)
			continue
		}
		if !matched || def.InCooldown(s.now()) {
			continue
		}
		firedBy := "custom"
		if payload.Source != "" {
			firedBy = "custom:" + payload.Source
		}
		if _, err := s.dispatch.Fire(ctx, payload.EpisodeID, def.ID, firedBy, map[string]any{
			"messageId": msg.MessageID,
			"keyword":   def.Config.Keyword,
		}); err != nil {
			s.logger.Trigger().Error("Keyword-triggered fire failed",
				"episodeId", payload.EpisodeID, "eventId", def.ID, "error", err)
			continue
		}
		fired++
	}

	s.logger.Trigger().Info("Custom trigger processed", "episodeId", payload.EpisodeID, "eventsFired", fired)
	return nil
}

// verifyWithProviderSecrets checks msg against every active secret for
// the provider. Multiple secrets stay valid simultaneously so rotation
// never drops in-flight messages.
func (s *TriggerService) verifyWithProviderSecrets(ctx context.Context, provider string, msg security.SignedMessage) error {
	active, err := s.secrets.FindActiveByProvider(ctx, provider)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return domainerrors.NewVerification("no active secrets for provider %s", provider)
	}
	candidates := make([]string, 0, len(active))
	for _, sec := range active {
		candidates = append(candidates, sec.Secret)
	}
	if err := security.VerifySignature(msg, candidates, config.TriggerFreshnessWindow, s.now()); err != nil {
		s.logger.Trigger().Warn("Rejected trigger", "provider", provider, "messageId", msg.MessageID, "error", err)
		return err
	}
	return nil
}

func (s *TriggerService) liveEventDefinitions(ctx context.Context, episodeID string) ([]*bingo.EventDefinition, error) {
	episode, err := s.episodes.FindByID(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if !episode.IsLive() {
		return nil, domainerrors.NewInvalidState("episode %s is %s, not live", episodeID, episode.Status)
	}
	return s.events.FindByEpisodeID(ctx, episodeID)
}

// MatchKeyword applies a keyword rule to free-form text.
func MatchKeyword(cfg bingo.TriggerConfig, text string) (bool, error) {
	if cfg.Keyword == "" {
		return false, nil
	}
	keyword, subject := cfg.Keyword, text
	if !cfg.CaseSensitive && cfg.MatchMode != bingo.MatchPattern {
		keyword = strings.ToLower(keyword)
		subject = strings.ToLower(subject)
	}

	switch cfg.MatchMode {
	case bingo.MatchExact:
		return subject == keyword, nil
	case bingo.MatchContains, "":
		return strings.Contains(subject, keyword), nil
	case bingo.MatchPrefix:
		return strings.HasPrefix(subject, keyword), nil
	case bingo.MatchPattern:
		expr := cfg.Keyword
		if !cfg.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return false, domainerrors.NewValidation("invalid keyword pattern %q: %v", cfg.Keyword, err)
		}
		return re.MatchString(text), nil
	default:
		return false, domainerrors.NewValidation("unknown match mode %q", cfg.MatchMode)
	}
}
