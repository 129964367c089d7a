package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Store persists creator profiles.
type Store interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Creator, error)
	Create(ctx context.Context, creator *Creator) error
	Update(ctx context.Context, creator *Creator) error
}

type UpdateTaxPreferencesRequest struct {
	ApplyGST bool
	GSTRate  float64
	ApplyTDS bool
	TDSRate  float64

	// Plaintext identifiers; the service seals them before persisting.
	GSTIN string
	PAN   string

	TDSExemption         bool
	ExemptionCertificate string
	ExemptionValidUntil  *time.Time
}

type UpdateBankDetailsRequest struct {
	AccountName   string
	AccountNumber string
	IFSC          string
	UPI           string
}

// Service is the profile surface the billing core consumes.
type Service interface {
	Get(ctx context.Context, id snowflake.ID) (Creator, error)
	Create(ctx context.Context, creator Creator) (Creator, error)
	UpdateTaxPreferences(ctx context.Context, id snowflake.ID, req UpdateTaxPreferencesRequest) (Creator, error)
	UpdateBankDetails(ctx context.Context, id snowflake.ID, req UpdateBankDetailsRequest) (Creator, error)
}
