package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/clock"
	"github.com/creatorstack/paisa/internal/config"
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	obsmetrics "github.com/creatorstack/paisa/internal/observability/metrics"
	"github.com/creatorstack/paisa/internal/providers/email"
	reminderdomain "github.com/creatorstack/paisa/internal/reminder/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Billing    *config.BillingPolicyHolder
	Email      email.Provider
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	billing    *config.BillingPolicyHolder
	email      email.Provider
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) reminderdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("reminder.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		billing:    p.Billing,
		email:      p.Email,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) ScheduleForInvoice(ctx context.Context, invoiceID, creatorID snowflake.ID, dueDate time.Time) error {
	now := s.clock.Now()

	for _, offset := range s.billing.Current().ReminderOffsetsDays {
		scheduledFor := dueDate.AddDate(0, 0, offset)
		if scheduledFor.Before(now) && offset < 0 {
			// A pre-due slot already in the past would fire immediately and
			// read as noise; skip it.
			continue
		}

		err := s.db.WithContext(ctx).Exec(
			`INSERT INTO payment_reminders (id, invoice_id, creator_id, offset_days, scheduled_for, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (invoice_id, offset_days) DO NOTHING`,
			s.genID.Generate(),
			invoiceID,
			creatorID,
			offset,
			scheduledFor,
			reminderdomain.ReminderStatusPending,
			now,
			now,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	var due []reminderdomain.Reminder
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", reminderdomain.ReminderStatusPending, now).
		Order("scheduled_for ASC, id ASC").
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, reminder := range due {
		var invoice invoicedomain.Invoice
		if err := s.db.WithContext(ctx).First(&invoice, "id = ?", reminder.InvoiceID).Error; err != nil {
			s.log.Warn("reminder references missing invoice",
				zap.Int64("invoice_id", int64(reminder.InvoiceID)),
				zap.Error(err),
			)
			continue
		}

		// Settled or dead invoices no longer need nudging.
		if invoice.Balance() <= 0 || !invoice.Editable() {
			if err := s.CancelForInvoice(ctx, invoice.ID); err != nil {
				return sent, err
			}
			continue
		}

		if err := s.send(ctx, invoice, reminder); err != nil {
			// Leave pending; the next run retries.
			s.log.Warn("reminder send failed",
				zap.String("invoice_number", invoice.InvoiceNumber),
				zap.Int("offset_days", reminder.OffsetDays),
				zap.Error(err),
			)
			continue
		}

		// Conditional flip keeps a concurrent run from double-sending.
		result := s.db.WithContext(ctx).Model(&reminderdomain.Reminder{}).
			Where("id = ? AND status = ?", reminder.ID, reminderdomain.ReminderStatusPending).
			Updates(map[string]any{
				"status":     reminderdomain.ReminderStatusSent,
				"sent_at":    now,
				"updated_at": now,
			})
		if result.Error != nil {
			return sent, result.Error
		}
		if result.RowsAffected == 1 {
			sent++
			s.obsMetrics.RecordReminderSent("payment_due")
		}
	}

	return sent, nil
}

func (s *Service) CancelForInvoice(ctx context.Context, invoiceID snowflake.ID) error {
	return s.db.WithContext(ctx).Model(&reminderdomain.Reminder{}).
		Where("invoice_id = ? AND status = ?", invoiceID, reminderdomain.ReminderStatusPending).
		Updates(map[string]any{
			"status":     reminderdomain.ReminderStatusCancelled,
			"updated_at": s.clock.Now(),
		}).Error
}

func (s *Service) send(ctx context.Context, invoice invoicedomain.Invoice, reminder reminderdomain.Reminder) error {
	client := invoice.Client.Data()
	if client.Email == "" {
		return fmt.Errorf("invoice %s has no client email", invoice.InvoiceNumber)
	}

	subject := fmt.Sprintf("Payment reminder: invoice %s", invoice.InvoiceNumber)
	if reminder.OffsetDays > 0 {
		subject = fmt.Sprintf("Invoice %s is overdue", invoice.InvoiceNumber)
	}

	body := fmt.Sprintf(
		"<p>Invoice <b>%s</b> for %.2f %s is due on %s. Outstanding balance: %.2f.</p>",
		invoice.InvoiceNumber,
		invoice.FinalAmount,
		invoice.Settings.Data().Currency,
		invoice.DueDate.Format("02 Jan 2006"),
		invoice.Balance(),
	)

	return s.email.Send(ctx, []string{client.Email}, subject, body)
}
