package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/invoiced/internal/clock"
	"github.com/smallbiznis/invoiced/internal/config"
	invoicedomain "github.com/smallbiznis/invoiced/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubInvoiceService struct {
	invoicedomain.Service

	sweeps   int
	swept    int64
	sweepErr error
}

func (s *stubInvoiceService) SweepOverdue(ctx context.Context) (int64, error) {
	s.sweeps++
	return s.swept, s.sweepErr
}

func newScheduler(t *testing.T, svc invoicedomain.Service) *Scheduler {
	t.Helper()

	sched, err := New(Params{
		Log:        zap.NewNop(),
		Clock:      clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)),
		InvoiceSvc: svc,
		Runtime:    config.NewStaticRuntimeConfigHolder(config.RuntimeConfig{}),
	})
	require.NoError(t, err)
	return sched
}

func TestRunOnceSweeps(t *testing.T) {
	stub := &stubInvoiceService{swept: 3}
	sched := newScheduler(t, stub)

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, stub.sweeps)
}

func TestRunOncePropagatesErrors(t *testing.T) {
	stub := &stubInvoiceService{sweepErr: errors.New("boom")}
	sched := newScheduler(t, stub)

	assert.Error(t, sched.RunOnce(context.Background()))
}

func TestRunOnceSwallowsTimeout(t *testing.T) {
	stub := &stubInvoiceService{sweepErr: context.DeadlineExceeded}
	sched := newScheduler(t, stub)

	assert.NoError(t, sched.RunOnce(context.Background()))
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
