package server

import (
	"errors"
	"net/http"

	billingcycledomain "github.com/creatorstack/paisa/internal/billingcycle/domain"
	creatordomain "github.com/creatorstack/paisa/internal/creator/domain"
	dealdomain "github.com/creatorstack/paisa/internal/deal/domain"
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	paymentdomain "github.com/creatorstack/paisa/internal/payment/domain"
	subscriptiondomain "github.com/creatorstack/paisa/internal/subscription/domain"
	upgradedomain "github.com/creatorstack/paisa/internal/upgrade/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

// ErrorHandlingMiddleware turns the last gin error into the JSON envelope,
// unless a handler already wrote a response.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

// notFoundSentinels map to 404: the referenced entity does not exist.
var notFoundSentinels = []error{
	gorm.ErrRecordNotFound,
	creatordomain.ErrCreatorNotFound,
	dealdomain.ErrDealNotFound,
	invoicedomain.ErrInvoiceNotFound,
	paymentdomain.ErrPaymentNotFound,
	subscriptiondomain.ErrSubscriptionNotFound,
	billingcycledomain.ErrCycleNotFound,
	billingcycledomain.ErrNoActiveCycle,
	upgradedomain.ErrUpgradeNotFound,
	ErrNotFound,
}

// ownershipSentinels map to 403: the entity exists but belongs to someone else.
var ownershipSentinels = []error{
	dealdomain.ErrDealNotOwned,
	invoicedomain.ErrInvoiceNotOwned,
	billingcycledomain.ErrCycleNotOwned,
	upgradedomain.ErrUpgradeNotOwned,
	ErrForbidden,
}

// stateConflictSentinels map to 409: the operation is not legal in the
// entity's current lifecycle state.
var stateConflictSentinels = []error{
	dealdomain.ErrDealAlreadyBilled,
	invoicedomain.ErrInvalidTransition,
	invoicedomain.ErrInvoiceImmutable,
	invoicedomain.ErrVersionConflict,
	invoicedomain.ErrCancelWithPayments,
	paymentdomain.ErrOverpayment,
	paymentdomain.ErrInvoiceNotPayable,
	paymentdomain.ErrAlreadyVerified,
	paymentdomain.ErrPaymentCancelled,
	subscriptiondomain.ErrAlreadySubscribed,
	subscriptiondomain.ErrSubscriptionNotActive,
	billingcycledomain.ErrInvalidCycleTransition,
	billingcycledomain.ErrCycleNotPayable,
	billingcycledomain.ErrCycleAlreadyPaid,
	upgradedomain.ErrInvalidUpgradeTransition,
	upgradedomain.ErrUpgradeAlreadyApplied,
}

// validationSentinels map to 400: malformed or out-of-range input, rejected
// before any state change.
var validationSentinels = []error{
	dealdomain.ErrInvalidSelection,
	dealdomain.ErrNoEligibleDeals,
	dealdomain.ErrDealNotEligible,
	dealdomain.ErrTooFewCustomDeals,
	invoicedomain.ErrInvalidInvoiceID,
	invoicedomain.ErrInvalidTaxOverride,
	invoicedomain.ErrInvalidLineItems,
	paymentdomain.ErrInvalidAmount,
	creatordomain.ErrInvalidName,
	creatordomain.ErrInvalidEmail,
	subscriptiondomain.ErrUnknownTier,
	billingcycledomain.ErrUnknownTier,
	upgradedomain.ErrUnknownTier,
	upgradedomain.ErrSameTier,
	ErrInvalidRequest,
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case matchesAny(err, ownershipSentinels):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: err.Error(),
		}
	case matchesAny(err, validationSentinels):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case matchesAny(err, stateConflictSentinels):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case matchesAny(err, notFoundSentinels):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func matchesAny(err error, sentinels []error) bool {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// classifyErrorForLog feeds the request logger without leaking internals.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if status == http.StatusBadRequest && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
