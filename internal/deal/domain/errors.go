package domain

import "errors"

var (
	ErrInvalidSelection   = errors.New("invalid_selection")
	ErrNoEligibleDeals    = errors.New("no_eligible_deals")
	ErrDealNotFound       = errors.New("deal_not_found")
	ErrDealNotOwned       = errors.New("deal_not_owned")
	ErrDealAlreadyBilled  = errors.New("deal_already_billed")
	ErrDealNotEligible    = errors.New("deal_not_eligible")
	ErrTooFewCustomDeals  = errors.New("custom_selection_requires_two_deals")
)
