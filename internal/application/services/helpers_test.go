package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/infrastructure/messaging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/performance"
)

func testLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToConsole: false,
		DefaultLevel:    slog.LevelError,
		ChannelLevels:   map[logging.Channel]slog.Level{},
	})
	require.NoError(t, err)
	return logger
}

// In-memory repositories mirroring the SQL repositories' contract:
// FindByID-style lookups report missing rows as NotFound, presence
// lookups return nil without error, and reads hand out clones the way
// the cache-backed repositories do. Seed helpers write pointers into
// the maps directly so tests can arrange state in place.

type memEpisodeRepo struct {
	mu    sync.Mutex
	items map[string]*bingo.Episode
}

func newMemEpisodeRepo() *memEpisodeRepo {
	return &memEpisodeRepo{items: make(map[string]*bingo.Episode)}
}

func (m *memEpisodeRepo) FindByID(_ context.Context, id string) (*bingo.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.items[id]; ok {
		return e.Clone(), nil
	}
	return nil, domainerrors.NewNotFound("episode %s", id)
}

func (m *memEpisodeRepo) FindByStatus(_ context.Context, status bingo.EpisodeStatus) ([]*bingo.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*bingo.Episode
	for _, e := range m.items {
		if e.Status == status {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (m *memEpisodeRepo) Store(_ context.Context, episode *bingo.Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[episode.ID] = episode.Clone()
	return nil
}

func (m *memEpisodeRepo) Update(_ context.Context, episode *bingo.Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[episode.ID] = episode.Clone()
	return nil
}

type memEventRepo struct {
	mu    sync.Mutex
	items map[string]*bingo.EventDefinition
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{items: make(map[string]*bingo.EventDefinition)}
}

func (m *memEventRepo) FindByID(_ context.Context, id string) (*bingo.EventDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.items[id]; ok {
		return d.Clone(), nil
	}
	return nil, domainerrors.NewNotFound("event definition %s", id)
}

func (m *memEventRepo) FindByEpisodeID(_ context.Context, episodeID string) ([]*bingo.EventDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*bingo.EventDefinition
	for _, d := range m.items {
		if d.EpisodeID == episodeID {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (m *memEventRepo) Store(_ context.Context, def *bingo.EventDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[def.ID] = def.Clone()
	return nil
}

func (m *memEventRepo) UpdateFireState(_ context.Context, def *bingo.EventDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[def.ID] = def.Clone()
	return nil
}

type memCardRepo struct {
	mu         sync.Mutex
	items      map[string]*bingo.Card
	updates    int
	updateErrs []error // popped per UpdateState call
}

func newMemCardRepo() *memCardRepo {
	return &memCardRepo{items: make(map[string]*bingo.Card)}
}

func (m *memCardRepo) FindByID(_ context.Context, id string) (*bingo.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.items[id]; ok {
		return c.Clone(), nil
	}
	return nil, domainerrors.NewNotFound("card %s", id)
}

func (m *memCardRepo) FindActiveByEpisodeID(_ context.Context, episodeID string) ([]*bingo.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*bingo.Card
	for _, c := range m.items {
		if c.EpisodeID == episodeID && c.Status == bingo.CardActive {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (m *memCardRepo) FindByEpisodeAndHolder(_ context.Context, episodeID, holderID string) (*bingo.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.items {
		if c.EpisodeID == episodeID && c.HolderID == holderID {
			return c.Clone(), nil
		}
	}
	return nil, nil
}

func (m *memCardRepo) Store(_ context.Context, card *bingo.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[card.ID] = card.Clone()
	return nil
}

// UpdateState stores the new state only on success, like the SQL
// repository, which publishes to cache only after the row is written.
func (m *memCardRepo) UpdateState(_ context.Context, card *bingo.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.updateErrs) > 0 {
		err := m.updateErrs[0]
		m.updateErrs = m.updateErrs[1:]
		if err != nil {
			return err
		}
	}
	m.items[card.ID] = card.Clone()
	m.updates++
	return nil
}

func (m *memCardRepo) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

type memFiredEventRepo struct {
	mu    sync.Mutex
	fired []*bingo.FiredEvent
}

func newMemFiredEventRepo() *memFiredEventRepo { return &memFiredEventRepo{} }

func (m *memFiredEventRepo) Append(_ context.Context, fired *bingo.FiredEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fired = append(m.fired, fired)
	return nil
}

func (m *memFiredEventRepo) FindByEpisodeID(_ context.Context, episodeID string) ([]*bingo.FiredEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*bingo.FiredEvent
	for _, f := range m.fired {
		if f.EpisodeID == episodeID {
			out = append(out, f)
		}
	}
	return out, nil
}

// memPaymentRepo stores row copies so a caller mutating its own struct
// cannot bypass the conditional resolution the SQL repository enforces.
type memPaymentRepo struct {
	mu    sync.Mutex
	items map[string]*bingo.PendingPayment // keyed by ID
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{items: make(map[string]*bingo.PendingPayment)}
}

func clonePayment(p *bingo.PendingPayment) *bingo.PendingPayment {
	cp := *p
	return &cp
}

func (m *memPaymentRepo) FindByExternalRef(_ context.Context, ref string) (*bingo.PendingPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.ExternalRef == ref {
			return clonePayment(p), nil
		}
	}
	return nil, domainerrors.NewNotFound("pending payment %s", ref)
}

func (m *memPaymentRepo) FindPendingByEpisodeAndUser(_ context.Context, episodeID, userID string) (*bingo.PendingPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.EpisodeID == episodeID && p.UserID == userID && p.Status == bingo.PaymentPending {
			return clonePayment(p), nil
		}
	}
	return nil, nil
}

func (m *memPaymentRepo) Store(_ context.Context, payment *bingo.PendingPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[payment.ID] = clonePayment(payment)
	return nil
}

// UpdateStatus loses to a prior transition, like the SQL repository's
// conditional UPDATE.
func (m *memPaymentRepo) UpdateStatus(_ context.Context, payment *bingo.PendingPayment, from bingo.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[payment.ID]
	if !ok || stored.Status != from {
		return domainerrors.NewInvalidState("pending payment %s is not %s", payment.ID, from)
	}
	m.items[payment.ID] = clonePayment(payment)
	return nil
}

func (m *memPaymentRepo) ExpireStale(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	expired := 0
	for _, p := range m.items {
		if p.Expired(now) {
			p.Status = bingo.PaymentFailed
			p.ResolvedAt = &now
			expired++
		}
	}
	return expired, nil
}

func (m *memPaymentRepo) statusOf(id string) bingo.PaymentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.items[id]; ok {
		return p.Status
	}
	return ""
}

type memSecretRepo struct {
	mu    sync.Mutex
	items map[string]*bingo.TriggerSecret
}

func newMemSecretRepo() *memSecretRepo {
	return &memSecretRepo{items: make(map[string]*bingo.TriggerSecret)}
}

func (m *memSecretRepo) FindActiveByProvider(_ context.Context, provider string) ([]*bingo.TriggerSecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*bingo.TriggerSecret
	for _, s := range m.items {
		if s.Provider == provider && s.Active {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *memSecretRepo) FindActiveByEpisodeID(_ context.Context, episodeID string) ([]*bingo.TriggerSecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*bingo.TriggerSecret
	for _, s := range m.items {
		if s.EpisodeID == episodeID && s.Active {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *memSecretRepo) Store(_ context.Context, secret *bingo.TriggerSecret) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[secret.ID] = secret.Clone()
	return nil
}

func (m *memSecretRepo) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.items[id]; ok {
		s.Active = false
		now := time.Now().UTC()
		s.RevokedAt = &now
	}
	return nil
}

// fakeBroadcaster records every outbound frame by destination.
type fakeBroadcaster struct {
	mu          sync.Mutex
	episodeMsgs map[string][]messaging.Message
	userMsgs    map[string][]messaging.Message
	cardMsgs    map[string][]messaging.Message
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{
		episodeMsgs: make(map[string][]messaging.Message),
		userMsgs:    make(map[string][]messaging.Message),
		cardMsgs:    make(map[string][]messaging.Message),
	}
}

func (f *fakeBroadcaster) BroadcastToEpisode(episodeID string, msg messaging.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.episodeMsgs[episodeID] = append(f.episodeMsgs[episodeID], msg)
}

func (f *fakeBroadcaster) SendToUser(userID string, msg messaging.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userMsgs[userID] = append(f.userMsgs[userID], msg)
}

func (f *fakeBroadcaster) SendToCard(cardID string, msg messaging.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cardMsgs[cardID] = append(f.cardMsgs[cardID], msg)
}

func (f *fakeBroadcaster) EpisodeConnectionCount(string) int { return 0 }

func (f *fakeBroadcaster) episodeMessages(episodeID, msgType string) []messaging.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []messaging.Message
	for _, m := range f.episodeMsgs[episodeID] {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBroadcaster) cardMessages(cardID, msgType string) []messaging.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []messaging.Message
	for _, m := range f.cardMsgs[cardID] {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBroadcaster) userMessages(userID, msgType string) []messaging.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []messaging.Message
	for _, m := range f.userMsgs[userID] {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// fakeProcessor scripts the payment upstream. Created charge references
// are deterministic: "pay-<episodeID>-<userID>".
type fakeProcessor struct {
	mu              sync.Mutex
	createErr       error
	createCalls     int
	confirmErr      error
	confirmCalls    int
	compensateErr   error
	compensateCalls int
}

func (f *fakeProcessor) CreatePendingCharge(_ context.Context, episodeID, userID string, _ int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	return "pay-" + episodeID + "-" + userID, nil
}

func (f *fakeProcessor) ConfirmCharge(_ context.Context, _ string, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmCalls++
	return f.confirmErr
}

func (f *fakeProcessor) IssueCompensation(_ context.Context, _ string, _ int64, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compensateCalls++
	if f.compensateErr != nil {
		return "", f.compensateErr
	}
	return "comp-ref-1", nil
}

func (f *fakeProcessor) compensations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.compensateCalls
}

// fakePlatform scripts the streaming upstream.
type fakePlatform struct {
	mu             sync.Mutex
	subscribeErr   error
	unsubscribeErr error
	subscribed     []string // signal types
	unsubscribed   []string // subscription ids
}

func (f *fakePlatform) Subscribe(_ context.Context, _ string, signalType string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return "", "", f.subscribeErr
	}
	f.subscribed = append(f.subscribed, signalType)
	return "sub-" + signalType, "secret-" + signalType, nil
}

func (f *fakePlatform) Unsubscribe(_ context.Context, subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unsubscribeErr != nil {
		return f.unsubscribeErr
	}
	f.unsubscribed = append(f.unsubscribed, subscriptionID)
	return nil
}

// testEnv wires the full service graph over in-memory collaborators,
// mirroring the container's wiring order.
type testEnv struct {
	episodes    *memEpisodeRepo
	events      *memEventRepo
	cards       *memCardRepo
	fired       *memFiredEventRepo
	payments    *memPaymentRepo
	secrets     *memSecretRepo
	broadcaster *fakeBroadcaster
	processor   *fakeProcessor
	platform    *fakePlatform

	stats        *StatsService
	dispatch     *DispatchService
	mint         *MintService
	compensation *CompensationService
	trigger      *TriggerService
	episodeSvc   *EpisodeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger(t)

	env := &testEnv{
		episodes:    newMemEpisodeRepo(),
		events:      newMemEventRepo(),
		cards:       newMemCardRepo(),
		fired:       newMemFiredEventRepo(),
		payments:    newMemPaymentRepo(),
		secrets:     newMemSecretRepo(),
		broadcaster: newFakeBroadcaster(),
		processor:   &fakeProcessor{},
		platform:    &fakePlatform{},
	}

	env.stats = NewStatsService(env.episodes, env.cards, env.broadcaster, logger)
	env.dispatch = NewDispatchService(env.episodes, env.events, env.cards, env.fired,
		env.broadcaster, env.stats, logger, performance.NewTracker(64))
	env.mint = NewMintService(env.episodes, env.events, env.cards, env.payments,
		env.processor, env.stats, env.broadcaster, logger)
	env.compensation = NewCompensationService(env.payments, env.episodes, env.processor,
		env.broadcaster, nil, logger)
	env.trigger = NewTriggerService(env.episodes, env.events, env.payments, env.secrets,
		env.processor, env.dispatch, env.mint, env.compensation, logger)
	env.episodeSvc = NewEpisodeService(env.episodes, env.events, env.cards, env.secrets,
		env.platform, env.broadcaster, logger)
	return env
}

func (e *testEnv) seedLiveEpisode(id string, price int64, capacity *int) *bingo.Episode {
	now := time.Now().UTC()
	episode := &bingo.Episode{
		ID:            id,
		BroadcasterID: "streamer-1",
		Title:         "Test Episode",
		Status:        bingo.EpisodeLive,
		GridDimension: 3,
		EntryPrice:    price,
		Capacity:      capacity,
		CreatedAt:     now,
		StartedAt:     &now,
	}
	e.episodes.items[id] = episode
	return episode
}

func (e *testEnv) seedEventDef(id, episodeID string, kind bingo.TriggerKind, cfg bingo.TriggerConfig) *bingo.EventDefinition {
	def := &bingo.EventDefinition{ID: id, EpisodeID: episodeID, Name: "Event " + id, Kind: kind, Config: cfg}
	e.events.items[id] = def
	return def
}

// seedCard builds a 3x3 card whose first row is bound to rowEventID and
// the rest to distinct filler events.
func (e *testEnv) seedCard(id, episodeID, holderID, rowEventID string) *bingo.Card {
	grid := make([][]bingo.GridSquare, 3)
	filler := []string{"fill-a", "fill-b", "fill-c", "fill-d", "fill-e", "fill-f"}
	fi := 0
	for r := 0; r < 3; r++ {
		grid[r] = make([]bingo.GridSquare, 3)
		for c := 0; c < 3; c++ {
			eventID := rowEventID
			if r != 0 {
				eventID = filler[fi]
				fi++
			}
			grid[r][c] = bingo.GridSquare{EventID: eventID, Row: r, Col: c}
		}
	}
	card := &bingo.Card{
		ID:        id,
		EpisodeID: episodeID,
		HolderID:  holderID,
		Grid:      grid,
		Status:    bingo.CardActive,
		CreatedAt: time.Now().UTC(),
	}
	e.cards.items[id] = card
	return card
}

func (e *testEnv) seedPendingPayment(id, episodeID, userID, externalRef string, amount int64) *bingo.PendingPayment {
	now := time.Now().UTC()
	payment := &bingo.PendingPayment{
		ID:          id,
		EpisodeID:   episodeID,
		UserID:      userID,
		ExternalRef: externalRef,
		AmountCents: amount,
		Status:      bingo.PaymentPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(30 * time.Minute),
	}
	e.payments.items[id] = clonePayment(payment)
	return payment
}

// claimPayment moves a seeded payment to completed, mirroring the claim
// the completion trigger takes before minting.
func (e *testEnv) claimPayment(payment *bingo.PendingPayment) *bingo.PendingPayment {
	now := time.Now().UTC()
	payment.Status = bingo.PaymentCompleted
	payment.ResolvedAt = &now
	e.payments.items[payment.ID] = clonePayment(payment)
	return payment
}

func intPtr(v int) *int { return &v }
