package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/clock"
	"github.com/creatorstack/paisa/internal/config"
	creatordomain "github.com/creatorstack/paisa/internal/creator/domain"
	"github.com/creatorstack/paisa/internal/creatorctx"
	dealdomain "github.com/creatorstack/paisa/internal/deal/domain"
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	"github.com/creatorstack/paisa/internal/invoice/format"
	"github.com/creatorstack/paisa/internal/tax"
	"github.com/creatorstack/paisa/pkg/db/option"
	"github.com/creatorstack/paisa/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultCurrency = "INR"

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Billing      *config.BillingPolicyHolder
	Selector     dealdomain.Selector
	DealStore    dealdomain.Store
	CreatorStore creatordomain.Store
	Reminders    invoicedomain.ReminderScheduler `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID        *snowflake.Node
	clock        clock.Clock
	billing      *config.BillingPolicyHolder
	selector     dealdomain.Selector
	dealStore    dealdomain.Store
	creatorStore creatordomain.Store
	reminders    invoicedomain.ReminderScheduler
	invoicerepo  repository.Repository[invoicedomain.Invoice]
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("invoice.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		billing:      p.Billing,
		selector:     p.Selector,
		dealStore:    p.DealStore,
		creatorStore: p.CreatorStore,
		reminders:    p.Reminders,
		invoicerepo:  repository.ProvideStore[invoicedomain.Invoice](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	creatorID, err := s.creatorIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	creator, err := s.creatorStore.FindByID(ctx, creatorID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if creator == nil {
		return invoicedomain.Invoice{}, creatordomain.ErrCreatorNotFound
	}

	items, err := s.selector.Select(ctx, creatorID, req.Selection)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	policy := s.billing.Current()
	now := s.clock.Now()

	asm := assembler{log: s.log, policy: policy}
	content := asm.assemble(items, *creator, req, now)

	termDays := req.PaymentTermDays
	if termDays <= 0 {
		termDays = policy.DefaultPaymentTermDays
	}
	dueDate := now.AddDate(0, 0, termDays)
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}
	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	invoice := invoicedomain.Invoice{
		ID:            s.genID.Generate(),
		Type:          content.Type,
		CreatorID:     creatorID,
		Status:        invoicedomain.InvoiceStatusDraft,
		WorkItemIDs:   datatypes.NewJSONSlice(ids),
		Consolidation: datatypes.NewJSONType(content.Consolidation),
		Client:        datatypes.NewJSONType(content.Client),
		LineItems:     datatypes.NewJSONSlice(content.LineItems),
		TaxSettings:   datatypes.NewJSONType(content.TaxSettings),
		Calculation:   datatypes.NewJSONType(content.Calculation),
		Settings: datatypes.NewJSONType(invoicedomain.Settings{
			Currency:        currency,
			InvoiceDate:     now,
			DueDate:         dueDate,
			PaymentTermDays: termDays,
			Discount:        req.Discount,
			Notes:           strings.TrimSpace(req.Notes),
		}),
		BankDetails: datatypes.NewJSONType(bankDetailsFromProfile(*creator)),
		FinalAmount: content.Calculation.FinalAmount,
		DueDate:     dueDate,
		Version:     1,
		Metadata:    datatypes.JSONMap{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := s.nextSequence(ctx, tx, now)
		if err != nil {
			return err
		}

		number, err := format.InvoiceNumber(now, seq)
		if err != nil {
			return invoicedomain.ErrNumberExhausted
		}
		invoice.InvoiceNumber = number

		if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
			return err
		}

		// Flipping the deal linkage in the same transaction is what makes
		// double invoicing impossible.
		return s.dealStore.MarkInvoiced(ctx, tx, ids, invoice.ID)
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("type", string(invoice.Type)),
		zap.Int("items", len(ids)),
		zap.Float64("final_amount", invoice.FinalAmount),
	)
	return invoice, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (invoicedomain.Invoice, error) {
	creatorID, err := s.creatorIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return s.loadOwned(ctx, s.db, creatorID, id)
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) ([]invoicedomain.Invoice, error) {
	creatorID, err := s.creatorIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	filter := &invoicedomain.Invoice{CreatorID: creatorID}
	if req.Status != nil {
		filter.Status = *req.Status
	}
	if req.Type != nil {
		filter.Type = *req.Type
	}

	options := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}}),
	}
	if req.CreatedFrom != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.GTE,
			Value:    *req.CreatedFrom,
		}))
	}
	if req.CreatedTo != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.LTE,
			Value:    *req.CreatedTo,
		}))
	}

	items, err := s.invoicerepo.Find(ctx, filter, options...)
	if err != nil {
		return nil, err
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}
	return invoices, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	creatorID, err := s.creatorIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var updated invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadOwned(ctx, tx, creatorID, id)
		if err != nil {
			return err
		}
		if !invoice.Editable() {
			return invoicedomain.ErrInvoiceImmutable
		}
		if req.ExpectedVersion != invoice.Version {
			return invoicedomain.ErrVersionConflict
		}

		now := s.clock.Now()
		settings := invoice.Settings.Data()

		if req.Client != nil {
			invoice.Client = datatypes.NewJSONType(*req.Client)
		}
		if req.Discount != nil {
			settings.Discount = *req.Discount
		}
		if req.DueDate != nil {
			settings.DueDate = *req.DueDate
			invoice.DueDate = *req.DueDate
		}
		if req.Notes != nil {
			settings.Notes = strings.TrimSpace(*req.Notes)
		}

		if req.LineItems != nil {
			replaced, err := normalizeLineItems(*req.LineItems)
			if err != nil {
				return err
			}
			invoice.LineItems = datatypes.NewJSONSlice(replaced)
		}

		taxSettings := invoice.TaxSettings.Data()
		if req.TaxOverride != nil {
			o := req.TaxOverride
			if o.ApplyGST != nil {
				taxSettings.GST.Apply = *o.ApplyGST
			}
			if o.GSTRate != nil {
				if *o.GSTRate < 0 {
					return invoicedomain.ErrInvalidTaxOverride
				}
				taxSettings.GST.Rate = *o.GSTRate
			}
			if o.GSTType != nil {
				taxSettings.GST.Type = *o.GSTType
			}
			if o.ApplyTDS != nil {
				taxSettings.TDS.Apply = *o.ApplyTDS
			}
			if o.TDSRate != nil {
				if *o.TDSRate < 0 {
					return invoicedomain.ErrInvalidTaxOverride
				}
				taxSettings.TDS.Rate = *o.TDSRate
			}
			if o.Exemption != nil {
				taxSettings.TDS.Exemption = *o.Exemption
			}
		}

		calc := recalculate(invoice.LineItems, settings.Discount, taxSettings, now)

		revisions := append([]invoicedomain.Revision(invoice.Revisions), invoicedomain.Revision{
			Version:     invoice.Version + 1,
			Actor:       strings.TrimSpace(req.Actor),
			At:          now,
			Description: strings.TrimSpace(req.Description),
		})

		result := tx.WithContext(ctx).Model(&invoicedomain.Invoice{}).
			Where("id = ? AND version = ?", id, invoice.Version).
			Updates(map[string]any{
				"client":       datatypes.NewJSONType(invoice.Client.Data()),
				"line_items":   invoice.LineItems,
				"settings":     datatypes.NewJSONType(settings),
				"tax_settings": datatypes.NewJSONType(taxSettings),
				"calculation":  datatypes.NewJSONType(calc),
				"final_amount": calc.FinalAmount,
				"due_date":     invoice.DueDate,
				"version":      invoice.Version + 1,
				"revisions":    datatypes.NewJSONSlice(revisions),
				"updated_at":   now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrVersionConflict
		}

		invoice.Settings = datatypes.NewJSONType(settings)
		invoice.TaxSettings = datatypes.NewJSONType(taxSettings)
		invoice.Calculation = datatypes.NewJSONType(calc)
		invoice.FinalAmount = calc.FinalAmount
		invoice.Version++
		invoice.Revisions = datatypes.NewJSONSlice(revisions)
		invoice.UpdatedAt = now
		updated = invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return updated, nil
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID, actor string) (invoicedomain.Invoice, error) {
	creatorID, err := s.creatorIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var cancelled invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadOwned(ctx, tx, creatorID, id)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := invoice.Transition(invoicedomain.InvoiceStatusCancelled, now); err != nil {
			return err
		}

		revisions := append([]invoicedomain.Revision(invoice.Revisions), invoicedomain.Revision{
			Version:     invoice.Version + 1,
			Actor:       strings.TrimSpace(actor),
			At:          now,
			Description: "invoice cancelled",
		})

		result := tx.WithContext(ctx).Model(&invoicedomain.Invoice{}).
			Where("id = ? AND version = ?", id, invoice.Version).
			Updates(map[string]any{
				"status":       invoicedomain.InvoiceStatusCancelled,
				"cancelled_at": now,
				"version":      invoice.Version + 1,
				"revisions":    datatypes.NewJSONSlice(revisions),
				"updated_at":   now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrVersionConflict
		}

		// Release the deals so they can be invoiced again.
		if err := s.dealStore.ClearInvoiced(ctx, tx, id); err != nil {
			return err
		}

		invoice.Version++
		invoice.Revisions = datatypes.NewJSONSlice(revisions)
		cancelled = invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.log.Info("invoice cancelled", zap.String("invoice_number", cancelled.InvoiceNumber))
	return cancelled, nil
}

func (s *Service) Send(ctx context.Context, id snowflake.ID) (invoicedomain.Invoice, error) {
	invoice, err := s.transition(ctx, id, invoicedomain.InvoiceStatusSent)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	// Reminder scheduling is a side effect; a failure never unsends.
	if s.reminders != nil {
		if err := s.reminders.ScheduleForInvoice(ctx, invoice.ID, invoice.CreatorID, invoice.DueDate); err != nil {
			s.log.Warn("reminder scheduling failed",
				zap.String("invoice_number", invoice.InvoiceNumber),
				zap.Error(err),
			)
		}
	}
	return invoice, nil
}

func (s *Service) MarkViewed(ctx context.Context, id snowflake.ID) (invoicedomain.Invoice, error) {
	return s.transition(ctx, id, invoicedomain.InvoiceStatusViewed)
}

func (s *Service) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	result := s.db.WithContext(ctx).Model(&invoicedomain.Invoice{}).
		Where("status IN ?", []invoicedomain.InvoiceStatus{
			invoicedomain.InvoiceStatusSent,
			invoicedomain.InvoiceStatusViewed,
			invoicedomain.InvoiceStatusPartiallyPaid,
		}).
		Where("due_date < ?", now).
		Where("final_amount - amount_paid > 0").
		Updates(map[string]any{
			"status":     invoicedomain.InvoiceStatusOverdue,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		s.log.Info("invoices marked overdue", zap.Int64("count", result.RowsAffected))
	}
	return int(result.RowsAffected), nil
}

func (s *Service) transition(ctx context.Context, id snowflake.ID, to invoicedomain.InvoiceStatus) (invoicedomain.Invoice, error) {
	creatorID, err := s.creatorIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var moved invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadOwned(ctx, tx, creatorID, id)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := invoice.Transition(to, now); err != nil {
			return err
		}

		if err := tx.WithContext(ctx).Save(&invoice).Error; err != nil {
			return err
		}
		moved = invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return moved, nil
}

func (s *Service) loadOwned(ctx context.Context, db *gorm.DB, creatorID, id snowflake.ID) (invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := db.WithContext(ctx).First(&invoice, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
	}
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice.CreatorID != creatorID {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotOwned
	}
	return invoice, nil
}

// nextSequence claims the next per-month suffix with an atomic upsert.
func (s *Service) nextSequence(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	year, month := now.Year(), int(now.Month())

	if err := tx.WithContext(ctx).Exec(
		`INSERT INTO invoice_sequences (year, month, last_seq) VALUES (?, ?, 1)
		 ON CONFLICT (year, month) DO UPDATE SET last_seq = last_seq + 1`,
		year, month,
	).Error; err != nil {
		return 0, err
	}

	var seq int64
	err := tx.WithContext(ctx).Raw(
		`SELECT last_seq FROM invoice_sequences WHERE year = ? AND month = ?`,
		year, month,
	).Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *Service) creatorIDFromContext(ctx context.Context) (snowflake.ID, error) {
	creatorID, ok := creatorctx.CreatorIDFromContext(ctx)
	if !ok || creatorID == 0 {
		return 0, creatordomain.ErrCreatorNotFound
	}
	return snowflake.ID(creatorID), nil
}

func bankDetailsFromProfile(creator creatordomain.Creator) invoicedomain.BankDetails {
	details := creator.BankDetails.Data()
	return invoicedomain.BankDetails{
		AccountName:   details.AccountName,
		AccountNumber: details.AccountNumber,
		IFSC:          details.IFSC,
		UPI:           details.UPI,
	}
}

// normalizeLineItems validates a wholesale line replacement and re-derives
// each Amount from quantity and rate so stored figures never drift.
func normalizeLineItems(lines []invoicedomain.LineItem) ([]invoicedomain.LineItem, error) {
	if len(lines) == 0 {
		return nil, invoicedomain.ErrInvalidLineItems
	}
	out := make([]invoicedomain.LineItem, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 || line.Rate < 0 || line.DiscountPercent < 0 || line.DiscountAmount < 0 {
			return nil, invoicedomain.ErrInvalidLineItems
		}
		if strings.TrimSpace(line.Description) == "" {
			return nil, invoicedomain.ErrInvalidLineItems
		}
		line.Amount = line.Quantity * line.Rate
		out = append(out, line)
	}
	return out, nil
}

func recalculate(lines datatypes.JSONSlice[invoicedomain.LineItem], discount tax.Discount, settings tax.Settings, asOf time.Time) tax.Calculation {
	inputs := make([]tax.LineItem, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, tax.LineItem{
			Quantity:        line.Quantity,
			Rate:            line.Rate,
			DiscountPercent: line.DiscountPercent,
			DiscountAmount:  line.DiscountAmount,
		})
	}
	return tax.Calculate(inputs, discount, settings, asOf)
}
