// Package cleanup remove pedidos pendentes abandonados.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/matheusmosca/bookverse/internal/orders"
	"github.com/matheusmosca/bookverse/internal/storage"
)

// DefaultCutoff is how long an order may stay pending.
const DefaultCutoff = 7 * 24 * time.Hour

// Repository is the slice of the orders store the sweeper needs.
type Repository interface {
	ListPendingOrdersBefore(ctx context.Context, cutoff time.Time) ([]orders.Order, error)
	DeleteStaleOrder(ctx context.Context, tx storage.Tx, id string, cutoff time.Time) (bool, error)
}

// Report resume uma execução da limpeza
type Report struct {
	Found   int `json:"found"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// Sweeper apaga pedidos pendentes mais antigos que o cutoff
type Sweeper struct {
	txm      storage.TxManager
	repo     Repository
	tracer   trace.Tracer
	cutoff   time.Duration
	swept    metric.Int64Counter
	failures metric.Int64Counter
	now      func() time.Time
}

// NewSweeper cria uma nova instância de Sweeper
func NewSweeper(txm storage.TxManager, repo Repository, tracer trace.Tracer, meter metric.Meter, cutoff time.Duration) (*Sweeper, error) {
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	swept, err := meter.Int64Counter("orders_swept_total", metric.WithDescription("Stale pending orders deleted"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("orders_sweep_failures_total", metric.WithDescription("Stale orders the sweeper failed to delete"))
	if err != nil {
		return nil, err
	}
	return &Sweeper{
		txm:      txm,
		repo:     repo,
		tracer:   tracer,
		cutoff:   cutoff,
		swept:    swept,
		failures: failures,
		now:      time.Now,
	}, nil
}

// WithClock overrides the sweeper's time source.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Sweep deletes every order still pending and created before now - cutoff.
// Each order is deleted in its own transaction; a failure is logged and the
// sweep moves on. Only a failure to list candidates is returned.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	ctx, span := s.tracer.Start(ctx, "cleanup.sweep")
	defer span.End()

	cutoff := s.now().Add(-s.cutoff)
	stale, err := s.repo.ListPendingOrdersBefore(ctx, cutoff)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list stale orders: %w", err)
	}

	report := Report{Found: len(stale)}
	for _, o := range stale {
		deleted, err := s.deleteOne(ctx, o.ID, cutoff)
		if err != nil {
			report.Failed++
			s.failures.Add(ctx, 1)
			slog.ErrorContext(ctx, "❌ failed to delete stale order", "order_id", o.ID, "error", err)
			continue
		}
		if deleted {
			report.Deleted++
			s.swept.Add(ctx, 1)
			slog.InfoContext(ctx, "🧹 stale order deleted", "order_id", o.ID, "created_at", o.CreatedAt)
		}
	}

	slog.InfoContext(ctx, "✅ order cleanup finished", "cutoff", cutoff,
		"found", report.Found, "deleted", report.Deleted, "failed", report.Failed)
	return report, nil
}

// deleteOne re-checks the order under the transaction, so an order paid
// after it was listed is left alone.
func (s *Sweeper) deleteOne(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	tx, err := s.txm.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleted, err := s.repo.DeleteStaleOrder(ctx, tx, id, cutoff)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return deleted, nil
}
