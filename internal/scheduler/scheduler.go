package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	budgetdomain "github.com/smallbiznis/kontera/internal/budget/domain"
	"github.com/smallbiznis/kontera/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	BudgetSvc budgetdomain.Service
	Config    Config `optional:"true"`
}

// Scheduler periodically re-derives the stored actual/reserved snapshot of
// every active budget. The sweep is a safety net behind the per-document
// triggers; each run is a full, idempotent recomputation.
type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	budgetSvc budgetdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.BudgetSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		budgetSvc: p.BudgetSvc,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	err := fn(ctx)
	duration := s.clock.Now().Sub(start)

	if err == nil {
		log.Debug("job finished", zap.Duration("duration", duration))
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}
	log.Error("job failed", zap.Duration("duration", duration), zap.Error(err))
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, "budget_reconcile", s.cfg.JobTimeout, s.BudgetReconcileJob)
}

// BudgetReconcileJob refreshes the snapshot of every DRAFT or CONFIRMED
// budget from a full rescan of its document lines.
func (s *Scheduler) BudgetReconcileJob(ctx context.Context) error {
	count, err := s.budgetSvc.ReconcileAll(ctx)
	if err != nil {
		return err
	}
	s.log.Info("budget reconcile sweep complete", zap.Int("budgets", count))
	return nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
