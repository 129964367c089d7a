package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/creatorstack/paisa/internal/billingcycle/domain"
	"github.com/creatorstack/paisa/internal/clock"
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type invoiceServiceStub struct {
	invoicedomain.Service
	overdueCalls int
	overdueErr   error
}

func (s *invoiceServiceStub) MarkOverdue(context.Context, time.Time) (int, error) {
	s.overdueCalls++
	return 2, s.overdueErr
}

type reminderServiceStub struct {
	processCalls int
}

func (s *reminderServiceStub) ScheduleForInvoice(context.Context, snowflake.ID, snowflake.ID, time.Time) error {
	return nil
}

func (s *reminderServiceStub) ProcessDue(context.Context, time.Time) (int, error) {
	s.processCalls++
	return 1, nil
}

func (s *reminderServiceStub) CancelForInvoice(context.Context, snowflake.ID) error {
	return nil
}

type cycleServiceStub struct {
	billingcycledomain.Service
	rolloverCalls int
	renewalCalls  int
}

func (s *cycleServiceStub) Rollover(context.Context, time.Time) (int, error) {
	s.rolloverCalls++
	return 0, nil
}

func (s *cycleServiceStub) ProcessRenewalReminders(context.Context, time.Time) (int, error) {
	s.renewalCalls++
	return 0, nil
}

func newTestScheduler(t *testing.T, cfg Config) (*Scheduler, *invoiceServiceStub, *reminderServiceStub, *cycleServiceStub) {
	t.Helper()

	invoices := &invoiceServiceStub{}
	reminders := &reminderServiceStub{}
	cycles := &cycleServiceStub{}

	sched, err := New(Params{
		Log:       zaptest.NewLogger(t),
		Clock:     clock.NewFakeClock(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)),
		Invoices:  invoices,
		Reminders: reminders,
		Cycles:    cycles,
		Config:    cfg,
	})
	require.NoError(t, err)
	return sched, invoices, reminders, cycles
}

func TestRunOnceExecutesAllJobs(t *testing.T) {
	sched, invoices, reminders, cycles := newTestScheduler(t, Config{})

	require.NoError(t, sched.RunOnce(context.Background()))

	assert.Equal(t, 1, invoices.overdueCalls)
	assert.Equal(t, 1, reminders.processCalls)
	assert.Equal(t, 1, cycles.rolloverCalls)
	assert.Equal(t, 1, cycles.renewalCalls)
}

func TestRunOnceJobErrorDoesNotStopOthers(t *testing.T) {
	sched, invoices, reminders, cycles := newTestScheduler(t, Config{})
	invoices.overdueErr = errors.New("db gone")

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoice_overdue")

	assert.Equal(t, 1, reminders.processCalls)
	assert.Equal(t, 1, cycles.rolloverCalls)
	assert.Equal(t, 1, cycles.renewalCalls)
}

func TestEnabledJobsFilter(t *testing.T) {
	sched, invoices, reminders, cycles := newTestScheduler(t, Config{
		EnabledJobs: []string{"cycle_rollover"},
	})

	require.NoError(t, sched.RunOnce(context.Background()))

	assert.Zero(t, invoices.overdueCalls)
	assert.Zero(t, reminders.processCalls)
	assert.Equal(t, 1, cycles.rolloverCalls)
	assert.Zero(t, cycles.renewalCalls)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zaptest.NewLogger(t)})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
