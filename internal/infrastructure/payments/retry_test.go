package payments

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
)

type scriptedProcessor struct {
	createErrs  []error
	createCalls int

	confirmErrs  []error
	confirmCalls int

	compensateErr   error
	compensateCalls int
}

func (s *scriptedProcessor) CreatePendingCharge(ctx context.Context, episodeID, userID string, amountCents int64) (string, error) {
	s.createCalls++
	if len(s.createErrs) == 0 {
		return "pay-" + episodeID + "-" + userID, nil
	}
	err := s.createErrs[0]
	s.createErrs = s.createErrs[1:]
	if err != nil {
		return "", err
	}
	return "pay-" + episodeID + "-" + userID, nil
}

func (s *scriptedProcessor) ConfirmCharge(ctx context.Context, externalRef string, amountCents int64) error {
	s.confirmCalls++
	if len(s.confirmErrs) == 0 {
		return nil
	}
	err := s.confirmErrs[0]
	s.confirmErrs = s.confirmErrs[1:]
	return err
}

func (s *scriptedProcessor) IssueCompensation(ctx context.Context, externalRef string, amountCents int64, reason string) (string, error) {
	s.compensateCalls++
	if s.compensateErr != nil {
		return "", s.compensateErr
	}
	return "comp-ref-1", nil
}

func newTestRetrier(inner Processor) *RetryingProcessor {
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToConsole: false,
		DefaultLevel:    slog.LevelError,
		ChannelLevels:   map[logging.Channel]slog.Level{},
	})
	if err != nil {
		panic(err)
	}
	return &RetryingProcessor{
		inner:          inner,
		logger:         logger,
		maxRetries:     3,
		initialBackoff: time.Millisecond,
		maxBackoff:     5 * time.Millisecond,
	}
}

func TestCreatePendingChargeRetriesTransientFailures(t *testing.T) {
	transient := domainerrors.NewUpstreamTransient(errors.New("timeout"), "processor unreachable")
	inner := &scriptedProcessor{createErrs: []error{transient, transient}}

	ref, err := newTestRetrier(inner).CreatePendingCharge(context.Background(), "ep-1", "viewer-1", 500)
	require.NoError(t, err)
	require.Equal(t, "pay-ep-1-viewer-1", ref)
	require.Equal(t, 3, inner.createCalls)
}

func TestCreatePendingChargeDoesNotRetryRejections(t *testing.T) {
	rejection := domainerrors.NewUpstreamRejection(errors.New("declined"), "card declined")
	inner := &scriptedProcessor{createErrs: []error{rejection}}

	_, err := newTestRetrier(inner).CreatePendingCharge(context.Background(), "ep-1", "viewer-1", 500)
	require.Error(t, err)
	require.Equal(t, domainerrors.KindUpstreamRejection, domainerrors.KindOf(err))
	require.Equal(t, 1, inner.createCalls)
}

func TestConfirmChargeRetriesTransientFailures(t *testing.T) {
	transient := domainerrors.NewUpstreamTransient(errors.New("timeout"), "processor unreachable")
	inner := &scriptedProcessor{confirmErrs: []error{transient, transient}}

	err := newTestRetrier(inner).ConfirmCharge(context.Background(), "pay-1", 500)
	require.NoError(t, err)
	require.Equal(t, 3, inner.confirmCalls)
}

func TestConfirmChargeGivesUpAfterMaxRetries(t *testing.T) {
	transient := domainerrors.NewUpstreamTransient(errors.New("timeout"), "processor unreachable")
	inner := &scriptedProcessor{confirmErrs: []error{transient, transient, transient, transient, transient}}

	err := newTestRetrier(inner).ConfirmCharge(context.Background(), "pay-1", 500)
	require.Error(t, err)
	require.Equal(t, domainerrors.KindUpstreamTransient, domainerrors.KindOf(err))
	// Initial attempt plus three retries.
	require.Equal(t, 4, inner.confirmCalls)
}

func TestConfirmChargeDoesNotRetryRejections(t *testing.T) {
	rejection := domainerrors.NewUpstreamRejection(errors.New("declined"), "charge not captured")
	inner := &scriptedProcessor{confirmErrs: []error{rejection}}

	err := newTestRetrier(inner).ConfirmCharge(context.Background(), "pay-1", 500)
	require.Error(t, err)
	require.Equal(t, domainerrors.KindUpstreamRejection, domainerrors.KindOf(err))
	require.Equal(t, 1, inner.confirmCalls)
}

func TestIssueCompensationIsNeverRetried(t *testing.T) {
	inner := &scriptedProcessor{
		compensateErr: domainerrors.NewUpstreamTransient(errors.New("timeout"), "processor unreachable"),
	}

	_, err := newTestRetrier(inner).IssueCompensation(context.Background(), "pay-1", 500, "capacity reached")
	require.Error(t, err)
	require.Equal(t, 1, inner.compensateCalls)
}

func TestIssueCompensationPassesThroughOnSuccess(t *testing.T) {
	inner := &scriptedProcessor{}

	ref, err := newTestRetrier(inner).IssueCompensation(context.Background(), "pay-1", 500, "capacity reached")
	require.NoError(t, err)
	require.Equal(t, "comp-ref-1", ref)
	require.Equal(t, 1, inner.compensateCalls)
}
