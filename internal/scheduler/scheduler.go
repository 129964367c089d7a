// Package scheduler drives the periodic billing jobs: payment reminder
// dispatch, invoice overdue scans, cycle rollover and renewal reminders.
// Every job is idempotent, so overlapping runs are wasteful but never wrong;
// the optional redis lock keeps multi-replica deployments from doing the
// same work twice.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	billingcycledomain "github.com/creatorstack/paisa/internal/billingcycle/domain"
	"github.com/creatorstack/paisa/internal/clock"
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	"github.com/creatorstack/paisa/internal/lock"
	obsmetrics "github.com/creatorstack/paisa/internal/observability/metrics"
	reminderdomain "github.com/creatorstack/paisa/internal/reminder/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler missing required dependencies")

const runLockKey = "paisa:scheduler:run"

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Invoices   invoicedomain.Service
	Reminders  reminderdomain.Service
	Cycles     billingcycledomain.Service
	Locker     *lock.Locker        `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
	Config     Config              `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	invoices   invoicedomain.Service
	reminders  reminderdomain.Service
	cycles     billingcycledomain.Service
	locker     *lock.Locker
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Invoices == nil || p.Reminders == nil || p.Cycles == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler"),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		invoices:   p.Invoices,
		reminders:  p.Reminders,
		cycles:     p.Cycles,
		locker:     p.Locker,
		obsMetrics: p.ObsMetrics,
	}, nil
}

// runJob wraps one job with a timeout, metrics and error labeling. Timeouts
// are soft: the next tick picks up where this one stopped.
func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context, now time.Time) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	err := fn(ctx, s.clock.Now())
	elapsed := time.Since(start)

	if err == nil {
		s.obsMetrics.RecordSchedulerRun(name, "ok", elapsed)
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.obsMetrics.RecordSchedulerRun(name, "timeout", elapsed)
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
		)
		return nil
	}

	s.obsMetrics.RecordSchedulerRun(name, "error", elapsed)
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes every enabled job, serialized by the redis lock when one
// is configured.
func (s *Scheduler) RunOnce(parent context.Context) error {
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(parent, runLockKey, s.cfg.LockTTL)
		if err != nil {
			s.log.Warn("scheduler lock unavailable, skipping run", zap.Error(err))
			return nil
		}
		if !ok {
			return nil
		}
		defer func() {
			if err := s.locker.Release(parent, runLockKey, token); err != nil {
				s.log.Warn("scheduler lock release failed", zap.Error(err))
			}
		}()
	}

	jobs := []struct {
		Name string
		Run  func(ctx context.Context, now time.Time) error
	}{
		{"payment_reminders", func(ctx context.Context, now time.Time) error {
			sent, err := s.reminders.ProcessDue(ctx, now)
			if sent > 0 {
				s.log.Info("payment reminders sent", zap.Int("count", sent))
			}
			return err
		}},
		{"invoice_overdue", func(ctx context.Context, now time.Time) error {
			flipped, err := s.invoices.MarkOverdue(ctx, now)
			if flipped > 0 {
				s.log.Info("invoices marked overdue", zap.Int("count", flipped))
			}
			return err
		}},
		{"cycle_rollover", func(ctx context.Context, now time.Time) error {
			created, err := s.cycles.Rollover(ctx, now)
			if created > 0 {
				s.log.Info("billing cycles rolled over", zap.Int("count", created))
			}
			return err
		}},
		{"renewal_reminders", func(ctx context.Context, now time.Time) error {
			sent, err := s.cycles.ProcessRenewalReminders(ctx, now)
			if sent > 0 {
				s.log.Info("renewal reminders sent", zap.Int("count", sent))
			}
			return err
		}},
	}

	var err error
	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}
	return err
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

func (s *Scheduler) isJobEnabled(name string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, name) {
			return true
		}
	}
	return false
}
