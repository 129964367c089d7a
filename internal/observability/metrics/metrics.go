// Package metrics exposes the application's prometheus instruments. Every
// method is nil-safe so callers can treat the collaborator as optional.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the domain-level instruments.
type Metrics struct {
	paymentsRecorded *prometheus.CounterVec
	paymentsRejected *prometheus.CounterVec
	invoicesCreated  *prometheus.CounterVec
	remindersSent    *prometheus.CounterVec

	schedulerRuns     *prometheus.CounterVec
	schedulerDuration *prometheus.HistogramVec
}

// New registers the instruments on the given registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paisa_payments_recorded_total",
			Help: "Payments accepted by the ledger, by classification.",
		}, []string{"type"}),
		paymentsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paisa_payments_rejected_total",
			Help: "Payments refused before insert, by reason.",
		}, []string{"reason"}),
		invoicesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paisa_invoices_created_total",
			Help: "Invoices created, by type.",
		}, []string{"type"}),
		remindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paisa_reminders_sent_total",
			Help: "Reminder notifications dispatched, by kind.",
		}, []string{"kind"}),
		schedulerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paisa_scheduler_job_runs_total",
			Help: "Scheduler job executions, by job and outcome.",
		}, []string{"job", "status"}),
		schedulerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paisa_scheduler_job_duration_seconds",
			Help:    "Scheduler job wall time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
	}

	for _, c := range []prometheus.Collector{
		m.paymentsRecorded,
		m.paymentsRejected,
		m.invoicesCreated,
		m.remindersSent,
		m.schedulerRuns,
		m.schedulerDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordPayment(paymentType string) {
	if m == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(strings.TrimSpace(paymentType)).Inc()
}

func (m *Metrics) RecordPaymentRejected(reason string) {
	if m == nil {
		return
	}
	m.paymentsRejected.WithLabelValues(strings.TrimSpace(reason)).Inc()
}

func (m *Metrics) RecordInvoiceCreated(invoiceType string) {
	if m == nil {
		return
	}
	m.invoicesCreated.WithLabelValues(strings.TrimSpace(invoiceType)).Inc()
}

func (m *Metrics) RecordReminderSent(kind string) {
	if m == nil {
		return
	}
	m.remindersSent.WithLabelValues(strings.TrimSpace(kind)).Inc()
}

func (m *Metrics) RecordSchedulerRun(job, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.schedulerRuns.WithLabelValues(strings.TrimSpace(job), strings.TrimSpace(status)).Inc()
	m.schedulerDuration.WithLabelValues(strings.TrimSpace(job)).Observe(duration.Seconds())
}
