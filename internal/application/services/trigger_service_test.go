package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/domain/repositories"
	"github.com/bingocast/bingocast-go/internal/infrastructure/security"
	"github.com/bingocast/bingocast-go/pkg/config"
)

const testWebhookSecret = "whsec-test"

func setPaymentWebhookSecret(t *testing.T) {
	t.Helper()
	previous := config.PaymentWebhookSecret
	config.PaymentWebhookSecret = testWebhookSecret
	t.Cleanup(func() { config.PaymentWebhookSecret = previous })
}

func signTrigger(t *testing.T, secret string, payload any) security.SignedMessage {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	ts := time.Now().UTC().Format(time.RFC3339)
	return security.SignedMessage{
		MessageID: "msg-1",
		Timestamp: ts,
		Body:      body,
		Signature: security.ComputeSignature(secret, "msg-1", ts, body),
	}
}

func (e *testEnv) seedProviderSecret(provider, secret string) {
	e.secrets.items[provider+"-secret"] = &bingo.TriggerSecret{
		ID:       provider + "-secret",
		Provider: provider,
		Secret:   secret,
		Active:   true,
	}
}

func TestHandlePaymentCompletionMintsCard(t *testing.T) {
	setPaymentWebhookSecret(t)
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedLiveEpisode("ep-1", 500, nil)
	seedDefsForMint(env, "ep-1")
	env.seedPendingPayment("pp-1", "ep-1", "viewer-1", "pay-ext-1", 500)

	msg := signTrigger(t, testWebhookSecret, PaymentCompletionPayload{
		ExternalRef: "pay-ext-1", AmountCents: 500, Status: "captured",
	})
	require.NoError(t, env.trigger.HandlePaymentCompletion(ctx, msg))

	require.Equal(t, bingo.PaymentCompleted, env.payments.statusOf("pp-1"))
	card, err := env.cards.FindByEpisodeAndHolder(ctx, "ep-1", "viewer-1")
	require.NoError(t, err)
	require.NotNil(t, card)

	episode, _ := env.episodes.FindByID(ctx, "ep-1")
	require.Equal(t, 1, episode.MintedCount)
	require.Equal(t, int64(500), episode.RevenueCents)
}

func TestHandlePaymentCompletionDuplicateIsNoOp(t *testing.T) {
	setPaymentWebhookSecret(t)
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedLiveEpisode("ep-1", 500, nil)
	seedDefsForMint(env, "ep-1")
	env.seedPendingPayment("pp-1", "ep-1", "viewer-1", "pay-ext-1", 500)

	msg := signTrigger(t, testWebhookSecret, PaymentCompletionPayload{
		ExternalRef: "pay-ext-1", AmountCents: 500, Status: "captured",
	})
	require.NoError(t, env.trigger.HandlePaymentCompletion(ctx, msg))
	require.NoError(t, env.trigger.HandlePaymentCompletion(ctx, msg))

	episode, _ := env.episodes.FindByID(ctx, "ep-1")
	require.Equal(t, 1, episode.MintedCount, "duplicate completion must not mint twice")
	require.Equal(t, int64(500), episode.RevenueCents)
	require.Equal(t, 1, env.processor.confirmCalls)
}

// stalePendingReads serves a fixed snapshot on every lookup, simulating
// a delivery whose read raced the resolution of the same payment. All
// writes still go through the real repository.
type stalePendingReads struct {
	repositories.PendingPaymentRepository
	snapshot *bingo.PendingPayment
}

func (s *stalePendingReads) FindByExternalRef(context.Context, string) (*bingo.PendingPayment, error) {
	cp := *s.snapshot
	return &cp, nil
}

func TestHandlePaymentCompletionStaleReadLosesClaim(t *testing.T) {
	setPaymentWebhookSecret(t)
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedLiveEpisode("ep-1", 500, nil)
	seedDefsForMint(env, "ep-1")
	payment := env.seedPendingPayment("pp-1", "ep-1", "viewer-1", "pay-ext-1", 500)
	pendingSnapshot := clonePayment(payment)

	msg := signTrigger(t, testWebhookSecret, PaymentCompletionPayload{
		ExternalRef: "pay-ext-1", AmountCents: 500, Status: "captured",
	})
	require.NoError(t, env.trigger.HandlePaymentCompletion(ctx, msg))

	// The duplicate's read still sees the payment as pending, so it gets
	// past the resolved check. The conditional pending->completed claim
	// is what must stop it: no second mint, and no compensation for an
	// entry that was delivered.
	racer := NewTriggerService(env.episodes, env.events,
		&stalePendingReads{PendingPaymentRepository: env.payments, snapshot: pendingSnapshot},
		env.secrets, env.processor, env.dispatch, env.mint, env.compensation, testLogger(t))
	require.NoError(t, racer.HandlePaymentCompletion(ctx, msg))

	require.Equal(t, bingo.PaymentCompleted, env.payments.statusOf("pp-1"))
	require.Equal(t, 0, env.processor.compensations())
	episode, _ := env.episodes.FindByID(ctx, "ep-1")
	require.Equal(t, 1, episode.MintedCount)
	require.Equal(t, int64(500), episode.RevenueCents)
}

func TestHandlePaymentCompletionUnknownRefAcknowledged(t *testing.T) {
	setPaymentWebhookSecret(t)
	env := newTestEnv(t)
	msg := signTrigger(t, testWebhookSecret, PaymentCompletionPayload{ExternalRef: "nobody-started-this"})

	require.NoError(t, env.trigger.HandlePaymentCompletion(context.Background(), msg))
	require.Equal(t, 0, env.processor.confirmCalls)
}

func TestHandlePaymentCompletionRejectsBadSignature(t *testing.T) {
	setPaymentWebhookSecret(t)
	env := newTestEnv(t)
	env.seedLiveEpisode("ep-1", 500, nil)
	env.seedPendingPayment("pp-1", "ep-1", "viewer-1", "pay-ext-1", 500)

	msg := signTrigger(t, "wrong-secret", PaymentCompletionPayload{ExternalRef: "pay-ext-1"})
	err := env.trigger.HandlePaymentCompletion(context.Background(), msg)
	require.Equal(t, domainerrors.KindVerification, domainerrors.KindOf(err))

	// A rejected trigger has no side effects of any kind.
	require.Equal(t, bingo.PaymentPending, env.payments.statusOf("pp-1"))
	require.Equal(t, 0, env.processor.confirmCalls)
}

func TestHandlePaymentCompletionRejectsWhenSecretUnconfigured(t *testing.T) {
	previous := config.PaymentWebhookSecret
	config.PaymentWebhookSecret = ""
	t.Cleanup(func() { config.PaymentWebhookSecret = previous })

	env := newTestEnv(t)
	err := env.trigger.HandlePaymentCompletion(context.Background(), security.SignedMessage{})
	require.Equal(t, domainerrors.KindVerification, domainerrors.KindOf(err))
}

func TestHandlePaymentCompletionCompensatesWhenMintRejected(t *testing.T) {
	setPaymentWebhookSecret(t)
	env := newTestEnv(t)
	ctx := context.Background()
	episode := env.seedLiveEpisode("ep-1", 500, intPtr(1))
	episode.MintedCount = 1 // sold out between checkout start and completion
	seedDefsForMint(env, "ep-1")
	env.seedPendingPayment("pp-1", "ep-1", "viewer-1", "pay-ext-1", 500)

	msg := signTrigger(t, testWebhookSecret, PaymentCompletionPayload{
		ExternalRef: "pay-ext-1", AmountCents: 500, Status: "captured",
	})
	require.NoError(t, env.trigger.HandlePaymentCompletion(ctx, msg))

	require.Equal(t, bingo.PaymentFailed, env.payments.statusOf("pp-1"))
	require.Equal(t, 1, env.processor.compensations())
	require.Equal(t, 1, episode.MintedCount, "no card minted past capacity")
}

func TestHandlePlatformSignalFiresMatchingDefinitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedLiveEpisode("ep-1", 0, nil)
	env.seedProviderSecret(ProviderPlatform, "plat-secret")
	env.seedEventDef("ev-raid", "ep-1", bingo.TriggerExternalSignal,
		bingo.TriggerConfig{SignalType: "raid", Threshold: 2})
	env.seedEventDef("ev-big-raid", "ep-1", bingo.TriggerExternalSignal,
		bingo.TriggerConfig{SignalType: "raid", Threshold: 100})
	env.seedEventDef("ev-sub", "ep-1", bingo.TriggerExternalSignal,
		bingo.TriggerConfig{SignalType: "subscription"})

	msg := signTrigger(t, "plat-secret", PlatformSignalPayload{EpisodeID: "ep-1", SignalType: "raid", Amount: 5})
	require.NoError(t, env.trigger.HandlePlatformSignal(ctx, msg))

	history, _ := env.fired.FindByEpisodeID(ctx, "ep-1")
	require.Len(t, history, 1)
	require.Equal(t, "ev-raid", history[0].EventID)
	require.Equal(t, "platform:raid", history[0].FiredBy)
}

func TestHandlePlatformSignalRespectsCooldown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedLiveEpisode("ep-1", 0, nil)
	env.seedProviderSecret(ProviderPlatform, "plat-secret")
	recently := time.Now().UTC().Add(-5 * time.Second)
	def := env.seedEventDef("ev-raid", "ep-1", bingo.TriggerExternalSignal,
		bingo.TriggerConfig{SignalType: "raid", CooldownSeconds: 60})
	def.LastTriggeredAt = &recently

	msg := signTrigger(t, "plat-secret", PlatformSignalPayload{EpisodeID: "ep-1", SignalType: "raid", Amount: 1})
	require.NoError(t, env.trigger.HandlePlatformSignal(ctx, msg))

	history, _ := env.fired.FindByEpisodeID(ctx, "ep-1")
	require.Empty(t, history)
}

func TestHandlePlatformSignalRejectsWithoutActiveSecrets(t *testing.T) {
	env := newTestEnv(t)
	env.seedLiveEpisode("ep-1", 0, nil)

	msg := signTrigger(t, "plat-secret", PlatformSignalPayload{EpisodeID: "ep-1", SignalType: "raid"})
	err := env.trigger.HandlePlatformSignal(context.Background(), msg)
	require.Equal(t, domainerrors.KindVerification, domainerrors.KindOf(err))
}

func TestHandlePlatformSignalRejectsNonLiveEpisode(t *testing.T) {
	env := newTestEnv(t)
	episode := env.seedLiveEpisode("ep-1", 0, nil)
	episode.Status = bingo.EpisodeEnded
	env.seedProviderSecret(ProviderPlatform, "plat-secret")

	msg := signTrigger(t, "plat-secret", PlatformSignalPayload{EpisodeID: "ep-1", SignalType: "raid"})
	err := env.trigger.HandlePlatformSignal(context.Background(), msg)
	require.Equal(t, domainerrors.KindInvalidState, domainerrors.KindOf(err))
}

func TestHandleCustomTriggerFiresKeywordRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedLiveEpisode("ep-1", 0, nil)
	env.seedProviderSecret(ProviderCustom, "custom-secret")
	env.seedEventDef("ev-kw", "ep-1", bingo.TriggerChatKeyword,
		bingo.TriggerConfig{Keyword: "bingo", MatchMode: bingo.MatchContains})

	miss := signTrigger(t, "custom-secret", CustomTriggerPayload{EpisodeID: "ep-1", Text: "nothing to see"})
	require.NoError(t, env.trigger.HandleCustomTrigger(ctx, miss))
	history, _ := env.fired.FindByEpisodeID(ctx, "ep-1")
	require.Empty(t, history)

	hit := signTrigger(t, "custom-secret", CustomTriggerPayload{EpisodeID: "ep-1", Text: "BINGO time!", Source: "chat"})
	require.NoError(t, env.trigger.HandleCustomTrigger(ctx, hit))
	history, _ = env.fired.FindByEpisodeID(ctx, "ep-1")
	require.Len(t, history, 1)
	require.Equal(t, "custom:chat", history[0].FiredBy)
}

func TestHandleCustomTriggerCooldownBlocksRapidRefires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedLiveEpisode("ep-1", 0, nil)
	env.seedProviderSecret(ProviderCustom, "custom-secret")
	env.seedEventDef("ev-kw", "ep-1", bingo.TriggerChatKeyword,
		bingo.TriggerConfig{Keyword: "bingo", CooldownSeconds: 300})

	msg := signTrigger(t, "custom-secret", CustomTriggerPayload{EpisodeID: "ep-1", Text: "bingo!"})
	require.NoError(t, env.trigger.HandleCustomTrigger(ctx, msg))
	require.NoError(t, env.trigger.HandleCustomTrigger(ctx, msg))

	history, _ := env.fired.FindByEpisodeID(ctx, "ep-1")
	require.Len(t, history, 1, "second message inside the cooldown must not fire")
}

func TestMatchKeyword(t *testing.T) {
	cases := []struct {
		name    string
		cfg     bingo.TriggerConfig
		text    string
		want    bool
		wantErr bool
	}{
		{"exact match", bingo.TriggerConfig{Keyword: "gg", MatchMode: bingo.MatchExact}, "gg", true, false},
		{"exact mismatch on extra text", bingo.TriggerConfig{Keyword: "gg", MatchMode: bingo.MatchExact}, "gg wp", false, false},
		{"exact folds case by default", bingo.TriggerConfig{Keyword: "GG", MatchMode: bingo.MatchExact}, "gg", true, false},
		{"exact case sensitive", bingo.TriggerConfig{Keyword: "GG", MatchMode: bingo.MatchExact, CaseSensitive: true}, "gg", false, false},
		{"contains", bingo.TriggerConfig{Keyword: "raid", MatchMode: bingo.MatchContains}, "incoming RAID hype", true, false},
		{"empty mode defaults to contains", bingo.TriggerConfig{Keyword: "raid"}, "raid incoming", true, false},
		{"prefix match", bingo.TriggerConfig{Keyword: "!drop", MatchMode: bingo.MatchPrefix}, "!drop hype", true, false},
		{"prefix mismatch mid-string", bingo.TriggerConfig{Keyword: "!drop", MatchMode: bingo.MatchPrefix}, "please !drop", false, false},
		{"pattern match", bingo.TriggerConfig{Keyword: `^\d+ viewers$`, MatchMode: bingo.MatchPattern}, "1200 viewers", true, false},
		{"pattern case insensitive by default", bingo.TriggerConfig{Keyword: "^bingo", MatchMode: bingo.MatchPattern}, "BINGO!", true, false},
		{"pattern case sensitive", bingo.TriggerConfig{Keyword: "^bingo", MatchMode: bingo.MatchPattern, CaseSensitive: true}, "BINGO!", false, false},
		{"invalid pattern", bingo.TriggerConfig{Keyword: "([", MatchMode: bingo.MatchPattern}, "anything", false, true},
		{"unknown mode", bingo.TriggerConfig{Keyword: "x", MatchMode: "fuzzy"}, "x", false, true},
		{"empty keyword never matches", bingo.TriggerConfig{MatchMode: bingo.MatchContains}, "anything", false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MatchKeyword(tc.cfg, tc.text)
			if tc.wantErr {
				require.Error(t, err)
				require.Equal(t, domainerrors.KindValidation, domainerrors.KindOf(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
