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
	"github.com/creatorstack/paisa/internal/config"
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	reminderdomain "github.com/creatorstack/paisa/internal/reminder/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// emailStub records outgoing mail and can be told to fail.
type emailStub struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (e *emailStub) Send(_ context.Context, to []string, subject, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.sent = append(e.sent, fmt.Sprintf("%s: %s", to[0], subject))
	return nil
}

func (e *emailStub) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sent)
}

type reminderFixture struct {
	db        *gorm.DB
	svc       reminderdomain.Service
	node      *snowflake.Node
	clock     *clock.FakeClock
	email     *emailStub
	creatorID snowflake.ID
}

func setupReminderService(t *testing.T) *reminderFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&invoicedomain.Invoice{}, &reminderdomain.Reminder{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	stub := &emailStub{}

	svc := NewService(Params{
		DB:      db,
		Log:     zaptest.NewLogger(t),
		GenID:   node,
		Clock:   fakeClock,
		Billing: config.NewStaticBillingPolicyHolder(config.DefaultBillingPolicy()),
		Email:   stub,
	})

	return &reminderFixture{
		db:        db,
		svc:       svc,
		node:      node,
		clock:     fakeClock,
		email:     stub,
		creatorID: node.Generate(),
	}
}

func (f *reminderFixture) seedInvoice(t *testing.T, dueDate time.Time) invoicedomain.Invoice {
	t.Helper()
	invoice := invoicedomain.Invoice{
		ID:            f.node.Generate(),
		InvoiceNumber: fmt.Sprintf("INV/2026/05/%04d", f.node.Generate()%1000),
		Type:          invoicedomain.InvoiceTypeIndividual,
		CreatorID:     f.creatorID,
		Status:        invoicedomain.InvoiceStatusSent,
		Client: datatypes.NewJSONType(invoicedomain.Client{
			Name:  "Acme Media",
			Email: "billing@acme.example",
		}),
		Settings: datatypes.NewJSONType(invoicedomain.Settings{
			Currency: "INR",
			DueDate:  dueDate,
		}),
		FinalAmount: 11800,
		DueDate:     dueDate,
		Version:     1,
		Metadata:    datatypes.JSONMap{},
	}
	require.NoError(t, f.db.Create(&invoice).Error)
	return invoice
}

func (f *reminderFixture) reminderRows(t *testing.T, invoiceID snowflake.ID) []reminderdomain.Reminder {
	t.Helper()
	var rows []reminderdomain.Reminder
	require.NoError(t, f.db.Where("invoice_id = ?", invoiceID).Order("offset_days ASC").Find(&rows).Error)
	return rows
}

func TestScheduleForInvoiceCreatesOneRowPerOffset(t *testing.T) {
	f := setupReminderService(t)
	invoice := f.seedInvoice(t, f.clock.Now().AddDate(0, 0, 30))

	require.NoError(t, f.svc.ScheduleForInvoice(context.Background(), invoice.ID, invoice.CreatorID, invoice.DueDate))

	rows := f.reminderRows(t, invoice.ID)
	require.Len(t, rows, 5)
	assert.Equal(t, -7, rows[0].OffsetDays)
	assert.Equal(t, 1, rows[4].OffsetDays)
	for _, row := range rows {
		assert.Equal(t, reminderdomain.ReminderStatusPending, row.Status)
		assert.Equal(t, invoice.DueDate.AddDate(0, 0, row.OffsetDays), row.ScheduledFor)
	}

	// Re-scheduling hits the conflict target and adds nothing.
	require.NoError(t, f.svc.ScheduleForInvoice(context.Background(), invoice.ID, invoice.CreatorID, invoice.DueDate))
	assert.Len(t, f.reminderRows(t, invoice.ID), 5)
}

func TestScheduleForInvoiceSkipsElapsedPreDueSlots(t *testing.T) {
	f := setupReminderService(t)

	// Due in 2 days: the -7 and -3 slots are already behind us.
	invoice := f.seedInvoice(t, f.clock.Now().AddDate(0, 0, 2))
	require.NoError(t, f.svc.ScheduleForInvoice(context.Background(), invoice.ID, invoice.CreatorID, invoice.DueDate))

	rows := f.reminderRows(t, invoice.ID)
	require.Len(t, rows, 3)
	assert.Equal(t, -1, rows[0].OffsetDays)
	assert.Equal(t, 0, rows[1].OffsetDays)
	assert.Equal(t, 1, rows[2].OffsetDays)
}

func TestProcessDueSendsEachReminderOnce(t *testing.T) {
	f := setupReminderService(t)
	invoice := f.seedInvoice(t, f.clock.Now().AddDate(0, 0, 30))
	require.NoError(t, f.svc.ScheduleForInvoice(context.Background(), invoice.ID, invoice.CreatorID, invoice.DueDate))

	// Nothing is due yet.
	sent, err := f.svc.ProcessDue(context.Background(), f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, sent)

	// Advance past the -7 slot.
	f.clock.Advance(24 * 24 * time.Hour)
	sent, err = f.svc.ProcessDue(context.Background(), f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, f.email.count())

	// The rerun finds the slot already sent.
	sent, err = f.svc.ProcessDue(context.Background(), f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 1, f.email.count())
}

func TestProcessDueUsesOverdueSubjectPastDueDate(t *testing.T) {
	f := setupReminderService(t)
	invoice := f.seedInvoice(t, f.clock.Now().AddDate(0, 0, 2))
	require.NoError(t, f.svc.ScheduleForInvoice(context.Background(), invoice.ID, invoice.CreatorID, invoice.DueDate))

	f.clock.Advance(4 * 24 * time.Hour)
	sent, err := f.svc.ProcessDue(context.Background(), f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, sent)

	last := f.email.sent[len(f.email.sent)-1]
	assert.Contains(t, last, "overdue")
}

func TestProcessDueLeavesPendingOnSendFailure(t *testing.T) {
	f := setupReminderService(t)
	invoice := f.seedInvoice(t, f.clock.Now().AddDate(0, 0, 2))
	require.NoError(t, f.svc.ScheduleForInvoice(context.Background(), invoice.ID, invoice.CreatorID, invoice.DueDate))

	f.email.err = errors.New("smtp unreachable")
	f.clock.Advance(36 * time.Hour)
	sent, err := f.svc.ProcessDue(context.Background(), f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, sent)

	rows := f.reminderRows(t, invoice.ID)
	assert.Equal(t, reminderdomain.ReminderStatusPending, rows[0].Status)

	// Once mail recovers, the retry delivers it.
	f.email.err = nil
	sent, err = f.svc.ProcessDue(context.Background(), f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestProcessDueCancelsForSettledInvoice(t *testing.T) {
	f := setupReminderService(t)
	invoice := f.seedInvoice(t, f.clock.Now().AddDate(0, 0, 2))
	require.NoError(t, f.svc.ScheduleForInvoice(context.Background(), invoice.ID, invoice.CreatorID, invoice.DueDate))

	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]any{"amount_paid": invoice.FinalAmount, "status": invoicedomain.InvoiceStatusPaid}).Error)

	f.clock.Advance(36 * time.Hour)
	sent, err := f.svc.ProcessDue(context.Background(), f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, f.email.count())

	for _, row := range f.reminderRows(t, invoice.ID) {
		assert.Equal(t, reminderdomain.ReminderStatusCancelled, row.Status)
	}
}

func TestCancelForInvoiceLeavesSentRowsAlone(t *testing.T) {
	f := setupReminderService(t)
	invoice := f.seedInvoice(t, f.clock.Now().AddDate(0, 0, 2))
	require.NoError(t, f.svc.ScheduleForInvoice(context.Background(), invoice.ID, invoice.CreatorID, invoice.DueDate))

	f.clock.Advance(36 * time.Hour)
	sent, err := f.svc.ProcessDue(context.Background(), f.clock.Now())
	require.NoError(t, err)
	require.Equal(t, 1, sent)

	require.NoError(t, f.svc.CancelForInvoice(context.Background(), invoice.ID))

	rows := f.reminderRows(t, invoice.ID)
	for _, row := range rows {
		if row.OffsetDays == -1 {
			assert.Equal(t, reminderdomain.ReminderStatusSent, row.Status)
			continue
		}
		assert.Equal(t, reminderdomain.ReminderStatusCancelled, row.Status)
	}
}
