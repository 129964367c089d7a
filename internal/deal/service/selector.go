package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/config"
	dealdomain "github.com/creatorstack/paisa/internal/deal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type SelectorParams struct {
	fx.In

	Log     *zap.Logger
	Store   dealdomain.Store
	Billing *config.BillingPolicyHolder
}

// Selector resolves consolidation requests into eligible work items.
type Selector struct {
	log     *zap.Logger
	store   dealdomain.Store
	billing *config.BillingPolicyHolder
}

func NewSelector(p SelectorParams) dealdomain.Selector {
	return &Selector{
		log:     p.Log.Named("deal.selector"),
		store:   p.Store,
		billing: p.Billing,
	}
}

func (s *Selector) Select(ctx context.Context, creatorID snowflake.ID, selection dealdomain.Selection) ([]dealdomain.WorkItem, error) {
	if creatorID == 0 {
		return nil, dealdomain.ErrInvalidSelection
	}

	switch selection.Criterion {
	case dealdomain.CriterionMonthly:
		return s.selectMonthly(ctx, creatorID, selection)
	case dealdomain.CriterionBrand:
		return s.selectBrand(ctx, creatorID, selection)
	case dealdomain.CriterionAgencyPayout:
		return s.selectAgencyPayout(ctx, creatorID, selection)
	case dealdomain.CriterionDateRange:
		return s.selectDateRange(ctx, creatorID, selection)
	case dealdomain.CriterionCustom:
		return s.selectCustom(ctx, creatorID, selection)
	default:
		return nil, dealdomain.ErrInvalidSelection
	}
}

func (s *Selector) eligibleStatuses() []dealdomain.WorkItemStatus {
	return toStatuses(s.billing.Current().EligibleDealStatuses)
}

func (s *Selector) payoutStatuses() []dealdomain.WorkItemStatus {
	return toStatuses(s.billing.Current().AgencyPayoutStatuses)
}

func toStatuses(raw []string) []dealdomain.WorkItemStatus {
	statuses := make([]dealdomain.WorkItemStatus, 0, len(raw))
	for _, status := range raw {
		statuses = append(statuses, dealdomain.WorkItemStatus(status))
	}
	return statuses
}

func (s *Selector) selectMonthly(ctx context.Context, creatorID snowflake.ID, selection dealdomain.Selection) ([]dealdomain.WorkItem, error) {
	if selection.Month < 1 || selection.Month > 12 || selection.Year < 2000 {
		return nil, dealdomain.ErrInvalidSelection
	}

	from := time.Date(selection.Year, time.Month(selection.Month), 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 1, 0)

	return s.list(ctx, dealdomain.Filter{
		CreatorID:      creatorID,
		Statuses:       s.eligibleStatuses(),
		CompletedFrom:  &from,
		CompletedUntil: &until,
		ExcludeBilled:  true,
	})
}

func (s *Selector) selectBrand(ctx context.Context, creatorID snowflake.ID, selection dealdomain.Selection) ([]dealdomain.WorkItem, error) {
	if selection.BrandID == 0 {
		return nil, dealdomain.ErrInvalidSelection
	}

	return s.list(ctx, dealdomain.Filter{
		CreatorID:     creatorID,
		Statuses:      s.eligibleStatuses(),
		BrandID:       selection.BrandID,
		ExcludeBilled: true,
	})
}

func (s *Selector) selectAgencyPayout(ctx context.Context, creatorID snowflake.ID, selection dealdomain.Selection) ([]dealdomain.WorkItem, error) {
	if selection.StartDate == nil || selection.EndDate == nil || !selection.EndDate.After(*selection.StartDate) {
		return nil, dealdomain.ErrInvalidSelection
	}

	// Payouts imply completed settlement, so the narrower status set applies.
	return s.list(ctx, dealdomain.Filter{
		CreatorID:      creatorID,
		Statuses:       s.payoutStatuses(),
		AgencyID:       selection.AgencyID,
		CompletedFrom:  selection.StartDate,
		CompletedUntil: selection.EndDate,
		ExcludeBilled:  true,
	})
}

func (s *Selector) selectDateRange(ctx context.Context, creatorID snowflake.ID, selection dealdomain.Selection) ([]dealdomain.WorkItem, error) {
	if selection.StartDate == nil || selection.EndDate == nil || !selection.EndDate.After(*selection.StartDate) {
		return nil, dealdomain.ErrInvalidSelection
	}

	return s.list(ctx, dealdomain.Filter{
		CreatorID:      creatorID,
		Statuses:       s.eligibleStatuses(),
		CompletedFrom:  selection.StartDate,
		CompletedUntil: selection.EndDate,
		ExcludeBilled:  true,
	})
}

func (s *Selector) selectCustom(ctx context.Context, creatorID snowflake.ID, selection dealdomain.Selection) ([]dealdomain.WorkItem, error) {
	ids := dedupeIDs(selection.WorkItemIDs)
	if len(ids) < 2 {
		return nil, dealdomain.ErrTooFewCustomDeals
	}

	items, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(items) != len(ids) {
		return nil, dealdomain.ErrDealNotFound
	}

	eligible := map[dealdomain.WorkItemStatus]bool{}
	for _, status := range s.eligibleStatuses() {
		eligible[status] = true
	}

	for _, item := range items {
		if item.CreatorID != creatorID {
			return nil, dealdomain.ErrDealNotOwned
		}
		if item.HasInvoice {
			return nil, dealdomain.ErrDealAlreadyBilled
		}
		if !eligible[item.Status] {
			return nil, dealdomain.ErrDealNotEligible
		}
	}

	return items, nil
}

func (s *Selector) list(ctx context.Context, filter dealdomain.Filter) ([]dealdomain.WorkItem, error) {
	items, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, dealdomain.ErrNoEligibleDeals
	}
	return items, nil
}

func dedupeIDs(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]bool, len(ids))
	result := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}
