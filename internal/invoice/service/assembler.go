package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/config"
	creatordomain "github.com/creatorstack/paisa/internal/creator/domain"
	dealdomain "github.com/creatorstack/paisa/internal/deal/domain"
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	"github.com/creatorstack/paisa/internal/tax"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const placeholderClientName = "To Be Updated"

// assembler turns a deal selection into invoice content: line items, the
// client block, tax settings and the calculation snapshot.
type assembler struct {
	log    *zap.Logger
	policy config.BillingPolicy
}

type assembly struct {
	Type          invoicedomain.InvoiceType
	LineItems     []invoicedomain.LineItem
	Consolidation invoicedomain.Consolidation
	Client        invoicedomain.Client
	TaxSettings   tax.Settings
	Calculation   tax.Calculation
}

func (a *assembler) assemble(
	items []dealdomain.WorkItem,
	creator creatordomain.Creator,
	req invoicedomain.CreateInvoiceRequest,
	now time.Time,
) assembly {
	lines := a.buildLineItems(items)
	lines = a.groupLines(lines)

	client := a.resolveClient(items, creator, req.ClientOverride)
	settings := a.resolveTaxSettings(creator, client, req.TaxOverride)

	taxInputs := make([]tax.LineItem, 0, len(lines))
	for _, line := range lines {
		taxInputs = append(taxInputs, tax.LineItem{
			Quantity:        line.Quantity,
			Rate:            line.Rate,
			DiscountPercent: line.DiscountPercent,
			DiscountAmount:  line.DiscountAmount,
		})
	}

	return assembly{
		Type:          a.invoiceType(req.Selection.Criterion, len(items)),
		LineItems:     lines,
		Consolidation: a.consolidation(items, req.Selection),
		Client:        client,
		TaxSettings:   settings,
		Calculation:   tax.Calculate(taxInputs, req.Discount, settings, now),
	}
}

func (a *assembler) invoiceType(criterion dealdomain.Criterion, itemCount int) invoicedomain.InvoiceType {
	switch criterion {
	case dealdomain.CriterionMonthly:
		return invoicedomain.InvoiceTypeMonthlySummary
	case dealdomain.CriterionAgencyPayout:
		return invoicedomain.InvoiceTypeAgencyPayout
	default:
		if itemCount == 1 {
			return invoicedomain.InvoiceTypeIndividual
		}
		return invoicedomain.InvoiceTypeConsolidated
	}
}

// buildLineItems prices one work item at a time. Deliverables with their own
// rates become one line each; unrated deliverables split the deal value not
// already claimed by rated ones; a deliverable with no value left to claim
// falls back to the configured rate and the line is flagged.
func (a *assembler) buildLineItems(items []dealdomain.WorkItem) []invoicedomain.LineItem {
	var lines []invoicedomain.LineItem

	for _, item := range items {
		deliverables := item.Deliverables

		rated := make([]dealdomain.Deliverable, 0, len(deliverables))
		unrated := make([]dealdomain.Deliverable, 0, len(deliverables))
		for _, d := range deliverables {
			if d.Rate > 0 {
				rated = append(rated, d)
			} else {
				unrated = append(unrated, d)
			}
		}

		switch {
		case len(rated) > 0:
			ratedTotal := 0.0
			for _, d := range rated {
				quantity := d.Quantity
				if quantity <= 0 {
					quantity = 1
				}
				lines = append(lines, invoicedomain.LineItem{
					Description: lineDescription(item, d),
					Platform:    item.Platform,
					Category:    strings.ToLower(strings.TrimSpace(d.Type)),
					Quantity:    quantity,
					Rate:        d.Rate,
					Amount:      quantity * d.Rate,
					WorkItemIDs: []snowflake.ID{item.ID},
				})
				ratedTotal += quantity * d.Rate
			}
			if len(unrated) > 0 {
				lines = append(lines, a.spreadValue(item, unrated, item.Value-ratedTotal)...)
			}
		case len(deliverables) > 0 && item.Value > 0:
			// Lump-sum deal with enumerated deliverables: spread evenly.
			lines = append(lines, a.spreadValue(item, deliverables, item.Value)...)
		case item.Value > 0:
			lines = append(lines, invoicedomain.LineItem{
				Description: item.Title,
				Platform:    item.Platform,
				Category:    "deal",
				Quantity:    1,
				Rate:        item.Value,
				Amount:      item.Value,
				WorkItemIDs: []snowflake.ID{item.ID},
			})
		default:
			a.log.Warn("deal has no value, using fallback rate",
				zap.Int64("work_item_id", int64(item.ID)),
				zap.Float64("fallback_rate", a.policy.FallbackDealRate),
			)
			lines = append(lines, invoicedomain.LineItem{
				Description:   item.Title,
				Platform:      item.Platform,
				Category:      "deal",
				Quantity:      1,
				Rate:          a.policy.FallbackDealRate,
				Amount:        a.policy.FallbackDealRate,
				ValueFallback: true,
				WorkItemIDs:   []snowflake.ID{item.ID},
			})
		}
	}

	return lines
}

// spreadValue prices unrated deliverables from the deal value still
// unclaimed. When nothing is left each deliverable gets the fallback rate and
// a flagged line; every deliverable ends up on the invoice either way.
func (a *assembler) spreadValue(
	item dealdomain.WorkItem,
	deliverables []dealdomain.Deliverable,
	remaining float64,
) []invoicedomain.LineItem {
	lines := make([]invoicedomain.LineItem, 0, len(deliverables))

	share := remaining / float64(len(deliverables))
	fallback := share <= 0
	if fallback {
		share = a.policy.FallbackDealRate
		a.log.Warn("deliverables have no deal value left to distribute, using fallback rate",
			zap.Int64("work_item_id", int64(item.ID)),
			zap.Int("deliverables", len(deliverables)),
			zap.Float64("fallback_rate", a.policy.FallbackDealRate),
		)
	}

	for _, d := range deliverables {
		quantity := d.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		lines = append(lines, invoicedomain.LineItem{
			Description:   lineDescription(item, d),
			Platform:      item.Platform,
			Category:      strings.ToLower(strings.TrimSpace(d.Type)),
			Quantity:      quantity,
			Rate:          share / quantity,
			Amount:        share,
			ValueFallback: fallback,
			WorkItemIDs:   []snowflake.ID{item.ID},
		})
	}
	return lines
}

func lineDescription(item dealdomain.WorkItem, d dealdomain.Deliverable) string {
	desc := strings.TrimSpace(d.Description)
	if desc == "" {
		desc = strings.TrimSpace(d.Type)
	}
	if desc == "" {
		return item.Title
	}
	return item.Title + " - " + desc
}

// groupLines merges lines sharing platform, category and rate. Quantities and
// amounts sum; descriptions join so nothing billed goes unnamed.
func (a *assembler) groupLines(lines []invoicedomain.LineItem) []invoicedomain.LineItem {
	grouped := make(map[string]int, len(lines))
	result := make([]invoicedomain.LineItem, 0, len(lines))

	for _, line := range lines {
		key := slug.Make(strings.Join([]string{
			line.Platform,
			line.Category,
			strconv.FormatFloat(line.Rate, 'f', 2, 64),
		}, "|"))

		idx, ok := grouped[key]
		if !ok {
			grouped[key] = len(result)
			result = append(result, line)
			continue
		}

		merged := result[idx]
		merged.Quantity += line.Quantity
		merged.Amount += line.Amount
		merged.ValueFallback = merged.ValueFallback || line.ValueFallback
		if line.Description != "" && !strings.Contains(merged.Description, line.Description) {
			merged.Description += "; " + line.Description
		}
		merged.WorkItemIDs = append(merged.WorkItemIDs, line.WorkItemIDs...)
		result[idx] = merged
	}

	return result
}

// resolveClient applies the precedence chain: explicit override, then brand
// or agency details off the deals, then a placeholder the creator must edit.
func (a *assembler) resolveClient(
	items []dealdomain.WorkItem,
	creator creatordomain.Creator,
	override *invoicedomain.Client,
) invoicedomain.Client {
	var client invoicedomain.Client

	switch {
	case override != nil:
		client = *override
	default:
		for _, item := range items {
			if item.AgencyID != nil && item.AgencyName != "" {
				client.Name = item.AgencyName
				break
			}
			if item.BrandName != "" {
				client.Name = item.BrandName
				break
			}
		}
		if client.Name == "" {
			client.Name = placeholderClientName
		}
	}

	if override == nil || !override.IsInterstate {
		client.IsInterstate = a.interstate(creator.StateCode, client.GSTIN)
	}
	return client
}

// interstate compares the creator's GST state code with the client GSTIN's
// leading state digits. Unknown on either side defaults to intra-state.
func (a *assembler) interstate(creatorState, clientGSTIN string) bool {
	creatorState = strings.TrimSpace(creatorState)
	clientGSTIN = strings.TrimSpace(clientGSTIN)
	if len(creatorState) != 2 || len(clientGSTIN) < 2 {
		return false
	}
	return clientGSTIN[:2] != creatorState
}

func (a *assembler) resolveTaxSettings(
	creator creatordomain.Creator,
	client invoicedomain.Client,
	override *invoicedomain.TaxOverride,
) tax.Settings {
	prefs := creator.TaxPreferences.Data()

	settings := tax.Settings{
		GST: tax.GSTSettings{
			Apply: prefs.ApplyGST,
			Rate:  prefs.GSTRate,
			Type:  tax.GSTTypeSplit,
		},
		TDS: tax.TDSSettings{
			Apply: prefs.ApplyTDS,
			Rate:  prefs.TDSRate,
			Exemption: tax.Exemption{
				Has:         prefs.TDSExemption,
				Certificate: prefs.ExemptionCertificate,
				ValidUntil:  prefs.ExemptionValidUntil,
			},
		},
	}

	if settings.GST.Rate <= 0 {
		settings.GST.Rate = a.policy.DefaultGSTRate
	}
	if settings.TDS.Rate <= 0 {
		settings.TDS.Rate = a.policy.DefaultTDSRate
	}
	if client.IsInterstate {
		settings.GST.Type = tax.GSTTypeInterstate
	}

	if override != nil {
		if override.ApplyGST != nil {
			settings.GST.Apply = *override.ApplyGST
		}
		if override.GSTRate != nil {
			settings.GST.Rate = *override.GSTRate
		}
		if override.GSTType != nil {
			settings.GST.Type = *override.GSTType
		}
		if override.ApplyTDS != nil {
			settings.TDS.Apply = *override.ApplyTDS
		}
		if override.TDSRate != nil {
			settings.TDS.Rate = *override.TDSRate
		}
		if override.Exemption != nil {
			settings.TDS.Exemption = *override.Exemption
		}
	}

	return settings
}

func (a *assembler) consolidation(items []dealdomain.WorkItem, selection dealdomain.Selection) invoicedomain.Consolidation {
	cons := invoicedomain.Consolidation{
		Criterion: selection.Criterion,
		ItemCount: len(items),
	}

	seen := map[string]bool{}
	for _, item := range items {
		platform := strings.TrimSpace(item.Platform)
		if platform == "" || seen[platform] {
			continue
		}
		seen[platform] = true
		cons.Platforms = append(cons.Platforms, platform)
	}

	switch selection.Criterion {
	case dealdomain.CriterionMonthly:
		start := time.Date(selection.Year, time.Month(selection.Month), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		cons.PeriodStart, cons.PeriodEnd = &start, &end
	case dealdomain.CriterionAgencyPayout, dealdomain.CriterionDateRange:
		cons.PeriodStart, cons.PeriodEnd = selection.StartDate, selection.EndDate
	}

	return cons
}
