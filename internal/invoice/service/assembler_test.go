package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/config"
	creatordomain "github.com/creatorstack/paisa/internal/creator/domain"
	dealdomain "github.com/creatorstack/paisa/internal/deal/domain"
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	"github.com/creatorstack/paisa/internal/tax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func newAssembler() *assembler {
	return &assembler{log: zap.NewNop(), policy: config.DefaultBillingPolicy()}
}

func TestBuildLineItemsPerDeliverable(t *testing.T) {
	a := newAssembler()

	items := []dealdomain.WorkItem{{
		ID: 1, Title: "summer campaign", Platform: "instagram", Value: 0,
		Deliverables: datatypes.NewJSONSlice([]dealdomain.Deliverable{
			{Type: "reel", Description: "launch reel", Quantity: 2, Rate: 5000},
			{Type: "story", Description: "story set", Quantity: 3, Rate: 1000},
		}),
	}}

	lines := a.buildLineItems(items)
	require.Len(t, lines, 2)
	assert.InDelta(t, 10000.0, lines[0].Amount, 0.001)
	assert.InDelta(t, 3000.0, lines[1].Amount, 0.001)
	assert.Equal(t, "reel", lines[0].Category)
}

func TestBuildLineItemsEvenDistribution(t *testing.T) {
	a := newAssembler()

	// Lump sum 9000 over three unrated deliverables: 3000 each.
	items := []dealdomain.WorkItem{{
		ID: 1, Title: "bundle", Platform: "youtube", Value: 9000,
		Deliverables: datatypes.NewJSONSlice([]dealdomain.Deliverable{
			{Type: "video", Quantity: 1},
			{Type: "short", Quantity: 1},
			{Type: "community_post", Quantity: 1},
		}),
	}}

	lines := a.buildLineItems(items)
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.InDelta(t, 3000.0, line.Amount, 0.001)
		assert.False(t, line.ValueFallback)
	}
}

func TestBuildLineItemsMixedRatedAndUnrated(t *testing.T) {
	a := newAssembler()

	// 5000-rupee deal, reel rated at 2000; the story claims the other 3000.
	items := []dealdomain.WorkItem{{
		ID: 1, Title: "spring push", Platform: "instagram", Value: 5000,
		Deliverables: datatypes.NewJSONSlice([]dealdomain.Deliverable{
			{Type: "reel", Quantity: 1, Rate: 2000},
			{Type: "story", Quantity: 1},
		}),
	}}

	lines := a.buildLineItems(items)
	require.Len(t, lines, 2)
	assert.InDelta(t, 2000.0, lines[0].Amount, 0.001)
	assert.InDelta(t, 3000.0, lines[1].Amount, 0.001)
	assert.Equal(t, "story", lines[1].Category)
	assert.False(t, lines[1].ValueFallback)

	total := lines[0].Amount + lines[1].Amount
	assert.InDelta(t, items[0].Value, total, 0.001)
}

func TestBuildLineItemsUnratedBeyondDealValueFlagged(t *testing.T) {
	a := newAssembler()

	// Rated deliverables already consume the whole deal value, so the story
	// is priced at the fallback rate and flagged rather than dropped.
	items := []dealdomain.WorkItem{{
		ID: 1, Title: "spring push", Platform: "instagram", Value: 2000,
		Deliverables: datatypes.NewJSONSlice([]dealdomain.Deliverable{
			{Type: "reel", Quantity: 1, Rate: 2000},
			{Type: "story", Quantity: 1},
		}),
	}}

	lines := a.buildLineItems(items)
	require.Len(t, lines, 2)
	assert.False(t, lines[0].ValueFallback)
	assert.True(t, lines[1].ValueFallback)
	assert.InDelta(t, a.policy.FallbackDealRate, lines[1].Amount, 0.001)
}

func TestBuildLineItemsFallbackFlagged(t *testing.T) {
	a := newAssembler()

	lines := a.buildLineItems([]dealdomain.WorkItem{{ID: 7, Title: "untracked deal"}})
	require.Len(t, lines, 1)
	assert.True(t, lines[0].ValueFallback)
	assert.InDelta(t, a.policy.FallbackDealRate, lines[0].Rate, 0.001)
}

func TestGroupLinesMergesMatchingKeys(t *testing.T) {
	a := newAssembler()

	lines := a.groupLines([]invoicedomain.LineItem{
		{Description: "reel one", Platform: "instagram", Category: "reel", Quantity: 1, Rate: 5000, Amount: 5000, WorkItemIDs: []snowflake.ID{1}},
		{Description: "reel two", Platform: "instagram", Category: "reel", Quantity: 2, Rate: 5000, Amount: 10000, WorkItemIDs: []snowflake.ID{2}},
		{Description: "yt video", Platform: "youtube", Category: "video", Quantity: 1, Rate: 5000, Amount: 5000, WorkItemIDs: []snowflake.ID{3}},
	})

	require.Len(t, lines, 2)
	merged := lines[0]
	assert.InDelta(t, 3.0, merged.Quantity, 0.001)
	assert.InDelta(t, 15000.0, merged.Amount, 0.001)
	assert.Contains(t, merged.Description, "reel one")
	assert.Contains(t, merged.Description, "reel two")
	assert.Len(t, merged.WorkItemIDs, 2)
}

func TestResolveClientPrecedence(t *testing.T) {
	a := newAssembler()
	creator := creatordomain.Creator{StateCode: "29"}
	agencyID := snowflake.ID(42)

	brandOnly := []dealdomain.WorkItem{{BrandName: "Glowberry"}}
	agencyDeals := []dealdomain.WorkItem{{BrandName: "Glowberry", AgencyID: &agencyID, AgencyName: "Northstar Media"}}

	assert.Equal(t, "Glowberry", a.resolveClient(brandOnly, creator, nil).Name)
	assert.Equal(t, "Northstar Media", a.resolveClient(agencyDeals, creator, nil).Name)

	override := &invoicedomain.Client{Name: "Acme Corp", GSTIN: "27AACCA1234F1Z5"}
	resolved := a.resolveClient(agencyDeals, creator, override)
	assert.Equal(t, "Acme Corp", resolved.Name)
	assert.True(t, resolved.IsInterstate, "GSTIN state 27 vs creator 29")

	assert.Equal(t, placeholderClientName, a.resolveClient([]dealdomain.WorkItem{{}}, creator, nil).Name)
}

func TestResolveTaxSettingsInterstateAndOverrides(t *testing.T) {
	a := newAssembler()
	creator := creatordomain.Creator{
		StateCode: "29",
		TaxPreferences: datatypes.NewJSONType(creatordomain.TaxPreferences{
			ApplyGST: true, GSTRate: 18,
		}),
	}

	intra := a.resolveTaxSettings(creator, invoicedomain.Client{IsInterstate: false}, nil)
	assert.Equal(t, tax.GSTTypeSplit, intra.GST.Type)

	inter := a.resolveTaxSettings(creator, invoicedomain.Client{IsInterstate: true}, nil)
	assert.Equal(t, tax.GSTTypeInterstate, inter.GST.Type)

	applyTDS := true
	rate := 2.0
	overridden := a.resolveTaxSettings(creator, invoicedomain.Client{}, &invoicedomain.TaxOverride{
		ApplyTDS: &applyTDS,
		TDSRate:  &rate,
	})
	assert.True(t, overridden.TDS.Apply)
	assert.InDelta(t, 2.0, overridden.TDS.Rate, 0.001)
}

func TestAssembleEndToEnd(t *testing.T) {
	a := newAssembler()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	creator := creatordomain.Creator{
		StateCode: "29",
		TaxPreferences: datatypes.NewJSONType(creatordomain.TaxPreferences{
			ApplyGST: true, GSTRate: 18,
		}),
	}
	items := []dealdomain.WorkItem{
		{ID: 1, Title: "march reel", Platform: "instagram", Value: 6000, BrandName: "Glowberry"},
		{ID: 2, Title: "march story", Platform: "instagram", Value: 4000, BrandName: "Glowberry"},
	}

	out := a.assemble(items, creator, invoicedomain.CreateInvoiceRequest{
		Selection: dealdomain.Selection{Criterion: dealdomain.CriterionMonthly, Month: 3, Year: 2026},
	}, now)

	assert.Equal(t, invoicedomain.InvoiceTypeMonthlySummary, out.Type)
	assert.Equal(t, 2, out.Consolidation.ItemCount)
	assert.Equal(t, []string{"instagram"}, out.Consolidation.Platforms)
	assert.InDelta(t, 10000.0, out.Calculation.Subtotal, 0.001)
	assert.InDelta(t, 11800.0, out.Calculation.FinalAmount, 0.001)
}
