package invoice

import (
	"context"
	"log/slog"
	"time"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

const sweepBatchSize = 100

// OverdueSweeper periodically moves pending invoices past their due date to
// unpaid. Reads and list filters already derive the right status; the sweep
// brings the stored column in line with them.
type OverdueSweeper struct {
	invoices *Service
	logger   *slog.Logger
	interval time.Duration
}

func NewOverdueSweeper(invoices *Service, logger *slog.Logger, interval time.Duration) *OverdueSweeper {
	return &OverdueSweeper{
		invoices: invoices,
		logger:   logger,
		interval: interval,
	}
}

func (w *OverdueSweeper) Start(ctx context.Context) {
	w.logger.Info("overdue sweeper started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("overdue sweeper stopped")
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				w.logger.Error("overdue sweep failed", "error", err)
			}
		}
	}
}

// Sweep processes every overdue invoice once and returns how many changed.
// A failure on one invoice is logged and does not stop the batch.
func (w *OverdueSweeper) Sweep(ctx context.Context) (int, error) {
	today := domain.DateOf(w.invoices.now())
	flipped := 0

	for {
		ids, err := w.invoices.invoices.ListOverdueIDs(ctx, today, sweepBatchSize)
		if err != nil {
			return flipped, err
		}

		progressed := 0
		for _, id := range ids {
			changed, err := w.invoices.MarkOverdue(ctx, id)
			if err != nil {
				w.logger.Error("failed to mark invoice overdue", "invoice_id", id, "error", err)
				continue
			}
			if changed {
				flipped++
				progressed++
			}
		}

		if len(ids) < sweepBatchSize || progressed == 0 {
			break
		}
	}

	if flipped > 0 {
		w.logger.Info("overdue invoices marked unpaid", "count", flipped)
	}
	return flipped, nil
}
