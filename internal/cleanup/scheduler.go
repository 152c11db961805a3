package cleanup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweep daily at 02:00.
const DefaultSchedule = "0 2 * * *"

// Scheduler executa o Sweeper periodicamente via cron
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
}

// NewScheduler cria uma nova instância de Scheduler. schedule é uma expressão
// cron padrão de cinco campos.
func NewScheduler(sweeper *Sweeper, schedule string) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s := &Scheduler{cron: c, sweeper: sweeper}
	if _, err := c.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	if _, err := s.sweeper.Sweep(context.Background()); err != nil {
		slog.Error("❌ order cleanup failed", "error", err)
	}
}

// Start begins running sweeps in the cron goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("⏰ order cleanup scheduled", "entries", len(s.cron.Entries()))
}

// Stop waits for a running sweep to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
