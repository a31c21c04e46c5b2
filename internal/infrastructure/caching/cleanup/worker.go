// Package cleanup provides the background sweeper for stale state.
package cleanup

import (
	"context"
	"time"

	"github.com/bingocast/bingocast-go/internal/domain/repositories"
	"github.com/bingocast/bingocast-go/internal/infrastructure/observability/logging"
	"github.com/bingocast/bingocast-go/pkg/config"
)

// Worker expires pending payments past their TTL so abandoned checkouts
// do not block a holder from re-entering an episode.
type Worker struct {
	payments repositories.PendingPaymentRepository
	logger   *logging.ChanneledLogger
	interval time.Duration
}

// NewWorker creates a sweeper using the configured cleanup interval.
func NewWorker(payments repositories.PendingPaymentRepository, logger *logging.ChanneledLogger) *Worker {
	return &Worker{
		payments: payments,
		logger:   logger,
		interval: config.CleanupInterval,
	}
}

// Start begins the sweeper routine. Blocks until ctx is cancelled; run
// as a goroutine.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.System().Info("Pending-payment sweeper started", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown().Info("Pending-payment sweeper stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	start := time.Now()
	expired, err := w.payments.ExpireStale(ctx)
	if err != nil {
		w.logger.Payment().Error("Pending-payment sweep failed", "error", err)
		return
	}
	if expired > 0 {
		w.logger.Payment().Info("Expired stale pending payments", "count", expired, "duration", time.Since(start).String())
	}
}
