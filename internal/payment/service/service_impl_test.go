package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/clock"
	"github.com/creatorstack/paisa/internal/creatorctx"
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	paymentdomain "github.com/creatorstack/paisa/internal/payment/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type paymentFixture struct {
	db        *gorm.DB
	svc       paymentdomain.Service
	node      *snowflake.Node
	clock     *clock.FakeClock
	creatorID snowflake.ID
	ctx       context.Context
}

// renderStub records calls and can be told to fail.
type renderStub struct {
	mu     sync.Mutex
	calls  int
	url    string
	err    error
}

func (r *renderStub) RenderReceipt(_ context.Context, _ invoicedomain.Invoice, _ paymentdomain.Payment) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.url, r.err
}

func setupPaymentService(t *testing.T, renderer paymentdomain.ReceiptRenderer) *paymentFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&invoicedomain.Invoice{}, &paymentdomain.Payment{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC))
	creatorID := node.Generate()

	svc := NewService(Params{
		DB:       db,
		Log:      zaptest.NewLogger(t),
		GenID:    node,
		Clock:    fakeClock,
		Renderer: renderer,
	})

	return &paymentFixture{
		db:        db,
		svc:       svc,
		node:      node,
		clock:     fakeClock,
		creatorID: creatorID,
		ctx:       creatorctx.WithCreatorID(context.Background(), int64(creatorID)),
	}
}

func (f *paymentFixture) seedInvoice(t *testing.T, finalAmount float64) invoicedomain.Invoice {
	t.Helper()
	invoice := invoicedomain.Invoice{
		ID:            f.node.Generate(),
		InvoiceNumber: fmt.Sprintf("INV/2026/04/%04d", f.node.Generate()%1000),
		Type:          invoicedomain.InvoiceTypeIndividual,
		CreatorID:     f.creatorID,
		Status:        invoicedomain.InvoiceStatusSent,
		FinalAmount:   finalAmount,
		DueDate:       f.clock.Now().AddDate(0, 0, 30),
		Version:       1,
		Metadata:      datatypes.JSONMap{},
	}
	require.NoError(t, f.db.Create(&invoice).Error)
	return invoice
}

func TestRecordAdvancePayment(t *testing.T) {
	f := setupPaymentService(t, nil)
	invoice := f.seedInvoice(t, 10000)

	payment, err := f.svc.Record(f.ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID: invoice.ID,
		Amount:    5000,
		Method:    "bank_transfer",
	})
	require.NoError(t, err)

	assert.Equal(t, paymentdomain.PaymentTypeAdvance, payment.Type)
	assert.InDelta(t, 5000.0, payment.RemainingBalance, 0.001)
	assert.True(t, strings.HasPrefix(payment.PaymentID, "PAY"))

	var reloaded invoicedomain.Invoice
	require.NoError(t, f.db.First(&reloaded, "id = ?", invoice.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusPartiallyPaid, reloaded.Status)
	assert.InDelta(t, 5000.0, reloaded.AmountPaid, 0.001)
	assert.Equal(t, 2, reloaded.Version)
}

func TestRecordClassification(t *testing.T) {
	f := setupPaymentService(t, nil)
	invoice := f.seedInvoice(t, 10000)

	// Below half on first payment: partial.
	first, err := f.svc.Record(f.ctx, paymentdomain.RecordPaymentRequest{InvoiceID: invoice.ID, Amount: 3000})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.PaymentTypePartial, first.Type)

	// Second payment, still a balance: partial.
	second, err := f.svc.Record(f.ctx, paymentdomain.RecordPaymentRequest{InvoiceID: invoice.ID, Amount: 4000})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.PaymentTypePartial, second.Type)

	// Zeroing the balance: final, and the invoice flips to paid.
	last, err := f.svc.Record(f.ctx, paymentdomain.RecordPaymentRequest{InvoiceID: invoice.ID, Amount: 3000})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.PaymentTypeFinal, last.Type)
	assert.InDelta(t, 0.0, last.RemainingBalance, 0.01)

	var reloaded invoicedomain.Invoice
	require.NoError(t, f.db.First(&reloaded, "id = ?", invoice.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, reloaded.Status)
	assert.NotNil(t, reloaded.PaidAt)
}

func TestPartialPaymentKeepsOverdueStatus(t *testing.T) {
	f := setupPaymentService(t, &renderStub{})
	invoice := f.seedInvoice(t, 10000)

	require.NoError(t, f.db.Model(&invoice).Updates(map[string]any{
		"status":   invoicedomain.InvoiceStatusOverdue,
		"due_date": f.clock.Now().AddDate(0, 0, -5),
	}).Error)

	_, err := f.svc.Record(f.ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID: invoice.ID,
		Amount:    4000,
	})
	require.NoError(t, err)

	var reloaded invoicedomain.Invoice
	require.NoError(t, f.db.First(&reloaded, "id = ?", invoice.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusOverdue, reloaded.Status)
	assert.InDelta(t, 4000.0, reloaded.AmountPaid, 0.001)
}

func TestRecordRejectsOverpayment(t *testing.T) {
	f := setupPaymentService(t, nil)
	invoice := f.seedInvoice(t, 10000)

	_, err := f.svc.Record(f.ctx, paymentdomain.RecordPaymentRequest{InvoiceID: invoice.ID, Amount: 6000})
	require.NoError(t, err)

	_, err = f.svc.Record(f.ctx, paymentdomain.RecordPaymentRequest{InvoiceID: invoice.ID, Amount: 6000})
	assert.ErrorIs(t, err, paymentdomain.ErrOverpayment)

	// The refused payment left no trace.
	var count int64
	require.NoError(t, f.db.Model(&paymentdomain.Payment{}).
		Where("invoice_id = ?", invoice.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var reloaded invoicedomain.Invoice
	require.NoError(t, f.db.First(&reloaded, "id = ?", invoice.ID).Error)
	assert.InDelta(t, 6000.0, reloaded.AmountPaid, 0.001)
}

func TestRecordRejectsUnpayableInvoice(t *testing.T) {
	f := setupPaymentService(t, nil)
	invoice := f.seedInvoice(t, 10000)
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).
		Where("id = ?", invoice.ID).
		Update("status", invoicedomain.InvoiceStatusDraft).Error)

	_, err := f.svc.Record(f.ctx, paymentdomain.RecordPaymentRequest{InvoiceID: invoice.ID, Amount: 1000})
	assert.ErrorIs(t, err, paymentdomain.ErrInvoiceNotPayable)
}

func TestRecordRejectsNonPositiveAmount(t *testing.T) {
	f := setupPaymentService(t, nil)
	invoice := f.seedInvoice(t, 10000)

	_, err := f.svc.Record(f.ctx, paymentdomain.RecordPaymentRequest{InvoiceID: invoice.ID, Amount: 0})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)
}

// Two racing 6000 payments against a 10000 invoice: exactly one lands.
func TestConcurrentPaymentsCannotOverpay(t *testing.T) {
	f := setupPaymentService(t, nil)
	invoice := f.seedInvoice(t, 10000)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Retry transient lock contention; the domain verdict is what
			// we are racing for.
			for attempt := 0; attempt < 5; attempt++ {
				_, errs[i] = f.svc.Record(f.ctx, paymentdomain.RecordPaymentRequest{
					InvoiceID: invoice.ID,
					Amount:    6000,
				})
				if errs[i] == nil || errors.Is(errs[i], paymentdomain.ErrOverpayment) {
					return
				}
				time.Sleep(10 * time.Millisecond)
			}
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one of the racing payments may land")

	var reloaded invoicedomain.Invoice
	require.NoError(t, f.db.First(&reloaded, "id = ?", invoice.ID).Error)
	assert.InDelta(t, 6000.0, reloaded.AmountPaid, 0.001)
	assert.GreaterOrEqual(t, reloaded.FinalAmount-reloaded.AmountPaid, 0.0)

	var count int64
	require.NoError(t, f.db.Model(&paymentdomain.Payment{}).
		Where("invoice_id = ?", invoice.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestVerifyPayment(t *testing.T) {
	renderer := &renderStub{url: "receipts/rec-1.pdf"}
	f := setupPaymentService(t, renderer)
	invoice := f.seedInvoice(t, 10000)

	payment, err := f.svc.Record(f.ctx, paymentdomain.RecordPaymentRequest{InvoiceID: invoice.ID, Amount: 10000})
	require.NoError(t, err)

	verified, err := f.svc.Verify(f.ctx, paymentdomain.VerifyPaymentRequest{
		PaymentID:  payment.ID,
		VerifiedBy: "ops@creatorstack.in",
	})
	require.NoError(t, err)

	assert.True(t, verified.Verified)
	assert.Equal(t, "ops@creatorstack.in", verified.VerifiedBy)
	assert.NotNil(t, verified.VerifiedAt)
	assert.True(t, strings.HasPrefix(verified.ReceiptNumber, "REC"))
	assert.Equal(t, "receipts/rec-1.pdf", verified.ReceiptURL)
	assert.Equal(t, 1, renderer.calls)

	// Verifying twice is rejected.
	_, err = f.svc.Verify(f.ctx, paymentdomain.VerifyPaymentRequest{PaymentID: payment.ID, VerifiedBy: "ops"})
	assert.ErrorIs(t, err, paymentdomain.ErrAlreadyVerified)
}

func TestVerifySurvivesRendererFailure(t *testing.T) {
	renderer := &renderStub{err: fmt.Errorf("renderer down")}
	f := setupPaymentService(t, renderer)
	invoice := f.seedInvoice(t, 5000)

	payment, err := f.svc.Record(f.ctx, paymentdomain.RecordPaymentRequest{InvoiceID: invoice.ID, Amount: 5000})
	require.NoError(t, err)

	verified, err := f.svc.Verify(f.ctx, paymentdomain.VerifyPaymentRequest{PaymentID: payment.ID, VerifiedBy: "ops"})
	require.NoError(t, err, "rendering failure must not fail verification")
	assert.True(t, verified.Verified)
	assert.Empty(t, verified.ReceiptURL)
}

func TestListByInvoice(t *testing.T) {
	f := setupPaymentService(t, nil)
	invoice := f.seedInvoice(t, 10000)

	_, err := f.svc.Record(f.ctx, paymentdomain.RecordPaymentRequest{InvoiceID: invoice.ID, Amount: 4000})
	require.NoError(t, err)
	_, err = f.svc.Record(f.ctx, paymentdomain.RecordPaymentRequest{InvoiceID: invoice.ID, Amount: 6000})
	require.NoError(t, err)

	payments, err := f.svc.ListByInvoice(f.ctx, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	// A stranger sees nothing.
	stranger := creatorctx.WithCreatorID(context.Background(), int64(f.node.Generate()))
	payments, err = f.svc.ListByInvoice(stranger, invoice.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}
