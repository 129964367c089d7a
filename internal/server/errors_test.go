package server

import (
	"fmt"
	"net/http"
	"testing"

	billingcycledomain "github.com/creatorstack/paisa/internal/billingcycle/domain"
	dealdomain "github.com/creatorstack/paisa/internal/deal/domain"
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	paymentdomain "github.com/creatorstack/paisa/internal/payment/domain"
	upgradedomain "github.com/creatorstack/paisa/internal/upgrade/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapErrorTaxonomy(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		errType string
	}{
		{dealdomain.ErrInvalidSelection, http.StatusBadRequest, "validation_error"},
		{dealdomain.ErrDealNotOwned, http.StatusForbidden, "forbidden"},
		{invoicedomain.ErrInvoiceNotOwned, http.StatusForbidden, "forbidden"},
		{billingcycledomain.ErrCycleNotOwned, http.StatusForbidden, "forbidden"},
		{upgradedomain.ErrUpgradeNotOwned, http.StatusForbidden, "forbidden"},
		{invoicedomain.ErrInvoiceImmutable, http.StatusConflict, "conflict"},
		{paymentdomain.ErrOverpayment, http.StatusConflict, "conflict"},
		{upgradedomain.ErrUpgradeAlreadyApplied, http.StatusConflict, "conflict"},
		{invoicedomain.ErrInvoiceNotFound, http.StatusNotFound, "not_found"},
		{upgradedomain.ErrUpgradeNotFound, http.StatusNotFound, "not_found"},
		{gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{fmt.Errorf("smtp: connection refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.errType, payload.Type)
		})
	}
}

func TestMapErrorWrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("apply upgrade: %w", upgradedomain.ErrUpgradeNotOwned)

	status, payload := mapError(wrapped)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", payload.Type)
}
