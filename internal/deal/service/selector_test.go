package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/config"
	dealdomain "github.com/creatorstack/paisa/internal/deal/domain"
	"github.com/creatorstack/paisa/internal/deal/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupSelector(t *testing.T) (*gorm.DB, *Selector, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&dealdomain.WorkItem{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	selector := &Selector{
		log:     zaptest.NewLogger(t),
		store:   repository.NewStore(db),
		billing: config.NewStaticBillingPolicyHolder(config.DefaultBillingPolicy()),
	}
	return db, selector, node
}

func seedWorkItem(t *testing.T, db *gorm.DB, item dealdomain.WorkItem) dealdomain.WorkItem {
	t.Helper()
	require.NoError(t, db.Create(&item).Error)
	return item
}

func completedAt(year int, month time.Month, day int) *time.Time {
	ts := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	return &ts
}

func TestSelectMonthly(t *testing.T) {
	db, selector, node := setupSelector(t)
	creatorID := node.Generate()

	inMonth := seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusCompleted,
		Title: "reel campaign", Value: 15000, Platform: "instagram",
		CompletedAt: completedAt(2026, time.March, 10),
	})
	// Outside the month.
	seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusCompleted,
		Title: "april deal", Value: 9000, CompletedAt: completedAt(2026, time.April, 2),
	})
	// Already billed.
	seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusCompleted,
		Title: "billed deal", Value: 5000, HasInvoice: true,
		CompletedAt: completedAt(2026, time.March, 5),
	})
	// Not yet completed.
	seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusInProgress,
		Title: "wip deal", Value: 4000, CompletedAt: completedAt(2026, time.March, 20),
	})

	items, err := selector.Select(context.Background(), creatorID, dealdomain.Selection{
		Criterion: dealdomain.CriterionMonthly, Month: 3, Year: 2026,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, inMonth.ID, items[0].ID)
}

func TestSelectMonthlyNoEligibleDeals(t *testing.T) {
	_, selector, node := setupSelector(t)

	_, err := selector.Select(context.Background(), node.Generate(), dealdomain.Selection{
		Criterion: dealdomain.CriterionMonthly, Month: 1, Year: 2026,
	})
	assert.ErrorIs(t, err, dealdomain.ErrNoEligibleDeals)
}

func TestSelectBrand(t *testing.T) {
	db, selector, node := setupSelector(t)
	creatorID := node.Generate()
	brandID := node.Generate()
	otherBrand := node.Generate()

	matching := seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusLive,
		Title: "brand deal", Value: 12000, BrandID: &brandID, BrandName: "Glowberry",
		CompletedAt: completedAt(2026, time.February, 1),
	})
	seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusLive,
		Title: "other brand", Value: 8000, BrandID: &otherBrand,
		CompletedAt: completedAt(2026, time.February, 2),
	})

	items, err := selector.Select(context.Background(), creatorID, dealdomain.Selection{
		Criterion: dealdomain.CriterionBrand, BrandID: brandID,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, matching.ID, items[0].ID)
}

func TestSelectAgencyPayoutUsesNarrowStatusSet(t *testing.T) {
	db, selector, node := setupSelector(t)
	creatorID := node.Generate()
	agencyID := node.Generate()

	// live is eligible for regular invoices but not for payouts.
	seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusLive,
		Title: "live deal", Value: 7000, AgencyID: &agencyID,
		CompletedAt: completedAt(2026, time.January, 10),
	})
	paid := seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusPaid,
		Title: "paid deal", Value: 9000, AgencyID: &agencyID,
		CompletedAt: completedAt(2026, time.January, 12),
	})

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	items, err := selector.Select(context.Background(), creatorID, dealdomain.Selection{
		Criterion: dealdomain.CriterionAgencyPayout,
		AgencyID:  &agencyID,
		StartDate: &start,
		EndDate:   &end,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, paid.ID, items[0].ID)
}

func TestSelectCustom(t *testing.T) {
	db, selector, node := setupSelector(t)
	creatorID := node.Generate()

	first := seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusCompleted,
		Title: "deal one", Value: 3000, CompletedAt: completedAt(2026, time.May, 1),
	})
	second := seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusCompleted,
		Title: "deal two", Value: 4000, CompletedAt: completedAt(2026, time.May, 3),
	})

	items, err := selector.Select(context.Background(), creatorID, dealdomain.Selection{
		Criterion:   dealdomain.CriterionCustom,
		WorkItemIDs: []snowflake.ID{first.ID, second.ID},
	})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestSelectCustomRejectsSingleDeal(t *testing.T) {
	_, selector, node := setupSelector(t)

	_, err := selector.Select(context.Background(), node.Generate(), dealdomain.Selection{
		Criterion:   dealdomain.CriterionCustom,
		WorkItemIDs: []snowflake.ID{node.Generate()},
	})
	assert.ErrorIs(t, err, dealdomain.ErrTooFewCustomDeals)
}

func TestSelectCustomRejectsForeignDeal(t *testing.T) {
	db, selector, node := setupSelector(t)
	creatorID := node.Generate()
	otherCreator := node.Generate()

	mine := seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusCompleted,
		Title: "mine", Value: 3000, CompletedAt: completedAt(2026, time.May, 1),
	})
	theirs := seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: otherCreator, Status: dealdomain.WorkItemStatusCompleted,
		Title: "theirs", Value: 4000, CompletedAt: completedAt(2026, time.May, 2),
	})

	_, err := selector.Select(context.Background(), creatorID, dealdomain.Selection{
		Criterion:   dealdomain.CriterionCustom,
		WorkItemIDs: []snowflake.ID{mine.ID, theirs.ID},
	})
	assert.ErrorIs(t, err, dealdomain.ErrDealNotOwned)
}

func TestSelectCustomRejectsBilledDeal(t *testing.T) {
	db, selector, node := setupSelector(t)
	creatorID := node.Generate()

	first := seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusCompleted,
		Title: "clean", Value: 3000, CompletedAt: completedAt(2026, time.May, 1),
	})
	billed := seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusCompleted,
		Title: "billed", Value: 4000, HasInvoice: true, CompletedAt: completedAt(2026, time.May, 2),
	})

	_, err := selector.Select(context.Background(), creatorID, dealdomain.Selection{
		Criterion:   dealdomain.CriterionCustom,
		WorkItemIDs: []snowflake.ID{first.ID, billed.ID},
	})
	assert.ErrorIs(t, err, dealdomain.ErrDealAlreadyBilled)
}

func TestMarkInvoicedIsAtomicPerDeal(t *testing.T) {
	db, selector, node := setupSelector(t)
	creatorID := node.Generate()

	first := seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusCompleted,
		Title: "one", Value: 3000, CompletedAt: completedAt(2026, time.June, 1),
	})
	second := seedWorkItem(t, db, dealdomain.WorkItem{
		ID: node.Generate(), CreatorID: creatorID, Status: dealdomain.WorkItemStatusCompleted,
		Title: "two", Value: 4000, CompletedAt: completedAt(2026, time.June, 2),
	})

	invoiceID := node.Generate()
	err := db.Transaction(func(tx *gorm.DB) error {
		return selector.store.MarkInvoiced(context.Background(), tx, []snowflake.ID{first.ID, second.ID}, invoiceID)
	})
	require.NoError(t, err)

	// A second invoice over the same deals must fail.
	err = db.Transaction(func(tx *gorm.DB) error {
		return selector.store.MarkInvoiced(context.Background(), tx, []snowflake.ID{first.ID}, node.Generate())
	})
	assert.ErrorIs(t, err, dealdomain.ErrDealAlreadyBilled)
}
