package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/invoiced/internal/clock"
	"github.com/smallbiznis/invoiced/internal/config"
	invoicedomain "github.com/smallbiznis/invoiced/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	InvoiceSvc invoicedomain.Service
	Runtime    *config.RuntimeConfigHolder
}

// Scheduler periodically sweeps SENT invoices past their due date into
// OVERDUE. Interval and per-run timeout come from the runtime config and are
// re-read every tick, so a hot reload takes effect on the next run.
type Scheduler struct {
	log        *zap.Logger
	clock      clock.Clock
	invoiceSvc invoicedomain.Service
	runtime    *config.RuntimeConfigHolder
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.InvoiceSvc == nil || p.Runtime == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		clock:      p.Clock,
		invoiceSvc: p.InvoiceSvc,
		runtime:    p.Runtime,
	}, nil
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	timeout := s.runtime.Get().SweepTimeout
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	start := s.clock.Now()
	swept, err := s.invoiceSvc.SweepOverdue(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.log.Warn("overdue sweep timed out",
				zap.Duration("timeout", timeout),
				zap.Error(err),
			)
			return nil
		}
		return err
	}

	s.log.Debug("overdue sweep run",
		zap.Int64("swept", swept),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.runtime.Get().SweepInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		if next := s.runtime.Get().SweepInterval; next != interval {
			interval = next
			ticker.Reset(interval)
			s.log.Info("sweep interval updated", zap.Duration("interval", interval))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
