package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/clock"
	"github.com/creatorstack/paisa/internal/creatorctx"
	creatordomain "github.com/creatorstack/paisa/internal/creator/domain"
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	obsmetrics "github.com/creatorstack/paisa/internal/observability/metrics"
	paymentdomain "github.com/creatorstack/paisa/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// balanceEpsilon absorbs float drift when deciding a balance is settled.
const balanceEpsilon = 0.01

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Renderer   paymentdomain.ReceiptRenderer   `optional:"true"`
	Reminders  paymentdomain.ReminderCanceller `optional:"true"`
	ObsMetrics *obsmetrics.Metrics             `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	renderer   paymentdomain.ReceiptRenderer
	reminders  paymentdomain.ReminderCanceller
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		renderer:   p.Renderer,
		reminders:  p.Reminders,
		obsMetrics: p.ObsMetrics,
	}
}

// payableStatuses are the invoice states that accept money.
var payableStatuses = map[invoicedomain.InvoiceStatus]bool{
	invoicedomain.InvoiceStatusSent:          true,
	invoicedomain.InvoiceStatusViewed:        true,
	invoicedomain.InvoiceStatusPartiallyPaid: true,
	invoicedomain.InvoiceStatusOverdue:       true,
}

func (s *Service) Record(ctx context.Context, req paymentdomain.RecordPaymentRequest) (paymentdomain.Payment, error) {
	creatorID, err := s.creatorIDFromContext(ctx)
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	if req.Amount <= 0 {
		s.obsMetrics.RecordPaymentRejected("invalid_amount")
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidAmount
	}

	now := s.clock.Now()
	var payment paymentdomain.Payment

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice invoicedomain.Invoice
		if err := tx.WithContext(ctx).First(&invoice, "id = ?", req.InvoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invoicedomain.ErrInvoiceNotFound
			}
			return err
		}
		if invoice.CreatorID != creatorID {
			return invoicedomain.ErrInvoiceNotOwned
		}
		if !payableStatuses[invoice.Status] {
			return paymentdomain.ErrInvoiceNotPayable
		}

		var priorPayments int64
		if err := tx.WithContext(ctx).Model(&paymentdomain.Payment{}).
			Where("invoice_id = ? AND status <> ?", invoice.ID, paymentdomain.PaymentStatusCancelled).
			Count(&priorPayments).Error; err != nil {
			return err
		}

		// The guard: money lands only if the balance still covers it. Two
		// racing submissions both pass the read above; only one passes here.
		result := tx.WithContext(ctx).Exec(
			`UPDATE invoices
			 SET amount_paid = amount_paid + ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND final_amount - amount_paid >= ?`,
			req.Amount, now, invoice.ID, req.Amount-balanceEpsilon,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return paymentdomain.ErrOverpayment
		}

		var after struct {
			FinalAmount float64
			AmountPaid  float64
		}
		if err := tx.WithContext(ctx).Raw(
			`SELECT final_amount, amount_paid FROM invoices WHERE id = ?`,
			invoice.ID,
		).Scan(&after).Error; err != nil {
			return err
		}
		remaining := after.FinalAmount - after.AmountPaid

		paymentType := classify(priorPayments, req.Amount, after.FinalAmount, remaining)

		// Recompute the invoice status off the fresh amounts.
		invoice.AmountPaid = after.AmountPaid
		next := invoice.PaymentStatus(now)
		if invoice.Status != next {
			updates := map[string]any{"status": next, "updated_at": now}
			if next == invoicedomain.InvoiceStatusPaid {
				updates["paid_at"] = now
			}
			if err := tx.WithContext(ctx).Model(&invoicedomain.Invoice{}).
				Where("id = ?", invoice.ID).
				Updates(updates).Error; err != nil {
				return err
			}
		}

		payment = paymentdomain.Payment{
			ID:               s.genID.Generate(),
			PaymentID:        s.paymentID(now),
			InvoiceID:        invoice.ID,
			CreatorID:        creatorID,
			Amount:           req.Amount,
			RemainingBalance: remaining,
			Type:             paymentType,
			Method:           strings.TrimSpace(req.Method),
			Reference:        strings.TrimSpace(req.Reference),
			Notes:            strings.TrimSpace(req.Notes),
			Status:           paymentdomain.PaymentStatusRecorded,
			Metadata:         datatypes.JSONMap{},
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return tx.WithContext(ctx).Create(&payment).Error
	})
	if err != nil {
		if errors.Is(err, paymentdomain.ErrOverpayment) {
			s.obsMetrics.RecordPaymentRejected("overpayment")
		}
		return paymentdomain.Payment{}, err
	}

	s.obsMetrics.RecordPayment(string(payment.Type))
	s.log.Info("payment recorded",
		zap.String("payment_id", payment.PaymentID),
		zap.String("type", string(payment.Type)),
		zap.Float64("amount", payment.Amount),
		zap.Float64("remaining_balance", payment.RemainingBalance),
	)

	// Reminder cleanup is a courtesy, never a rollback.
	if s.reminders != nil {
		if err := s.reminders.CancelForInvoice(ctx, payment.InvoiceID); err != nil {
			s.log.Warn("reminder cancellation failed", zap.Error(err))
		}
	}

	return payment, nil
}

func (s *Service) Verify(ctx context.Context, req paymentdomain.VerifyPaymentRequest) (paymentdomain.Payment, error) {
	creatorID, err := s.creatorIDFromContext(ctx)
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	now := s.clock.Now()
	var payment paymentdomain.Payment
	var invoice invoicedomain.Invoice

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).First(&payment, "id = ?", req.PaymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return paymentdomain.ErrPaymentNotFound
			}
			return err
		}
		if payment.CreatorID != creatorID {
			return invoicedomain.ErrInvoiceNotOwned
		}
		switch payment.Status {
		case paymentdomain.PaymentStatusVerified:
			return paymentdomain.ErrAlreadyVerified
		case paymentdomain.PaymentStatusCancelled:
			return paymentdomain.ErrPaymentCancelled
		}

		payment.Verified = true
		payment.VerifiedBy = strings.TrimSpace(req.VerifiedBy)
		payment.VerifiedAt = &now
		payment.ReceiptNumber = s.receiptNumber(now)
		payment.Status = paymentdomain.PaymentStatusVerified
		payment.UpdatedAt = now

		if err := tx.WithContext(ctx).Save(&payment).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).First(&invoice, "id = ?", payment.InvoiceID).Error
	})
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	// Receipt rendering happens after commit; a rendering failure never
	// unverifies the payment.
	if s.renderer != nil {
		url, err := s.renderer.RenderReceipt(ctx, invoice, payment)
		if err != nil {
			s.log.Warn("receipt rendering failed",
				zap.String("payment_id", payment.PaymentID),
				zap.Error(err),
			)
		} else if url != "" {
			payment.ReceiptURL = url
			if err := s.db.WithContext(ctx).Model(&paymentdomain.Payment{}).
				Where("id = ?", payment.ID).
				Update("receipt_url", url).Error; err != nil {
				s.log.Warn("receipt url persist failed", zap.Error(err))
			}
		}
	}

	return payment, nil
}

func (s *Service) ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]paymentdomain.Payment, error) {
	creatorID, err := s.creatorIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var payments []paymentdomain.Payment
	err = s.db.WithContext(ctx).
		Where("invoice_id = ? AND creator_id = ?", invoiceID, creatorID).
		Order("created_at ASC, id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// classify orders the rules: settling the balance wins, then a first payment
// covering at least half, then partial.
func classify(priorPayments int64, amount, finalAmount, remaining float64) paymentdomain.PaymentType {
	if remaining <= balanceEpsilon {
		return paymentdomain.PaymentTypeFinal
	}
	if priorPayments == 0 && amount >= finalAmount/2 {
		return paymentdomain.PaymentTypeAdvance
	}
	return paymentdomain.PaymentTypePartial
}

func (s *Service) paymentID(now time.Time) string {
	return fmt.Sprintf("PAY%d%04d", now.UnixMilli(), rand.Intn(10000))
}

func (s *Service) receiptNumber(now time.Time) string {
	return fmt.Sprintf("REC%d%04d", now.UnixMilli(), rand.Intn(10000))
}

func (s *Service) creatorIDFromContext(ctx context.Context) (snowflake.ID, error) {
	creatorID, ok := creatorctx.CreatorIDFromContext(ctx)
	if !ok || creatorID == 0 {
		return 0, creatordomain.ErrCreatorNotFound
	}
	return snowflake.ID(creatorID), nil
}
