package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/secret"
	"gorm.io/datatypes"
)

// TaxPreferences are the creator's defaults applied to every invoice unless
// the invoice carries an explicit override. GSTIN and PAN are sealed at rest;
// they only surface on rendered documents.
type TaxPreferences struct {
	ApplyGST bool    `json:"apply_gst"`
	GSTRate  float64 `json:"gst_rate"`
	ApplyTDS bool    `json:"apply_tds"`
	TDSRate  float64 `json:"tds_rate"`

	GSTIN secret.SecretString `json:"gstin,omitempty"`
	PAN   secret.SecretString `json:"pan,omitempty"`

	TDSExemption         bool       `json:"tds_exemption"`
	ExemptionCertificate string     `json:"exemption_certificate,omitempty"`
	ExemptionValidUntil  *time.Time `json:"exemption_valid_until,omitempty"`
}

// BankDetails is the payout destination printed on invoices. Every field is
// sealed at rest.
type BankDetails struct {
	AccountName   secret.SecretString `json:"account_name,omitempty"`
	AccountNumber secret.SecretString `json:"account_number,omitempty"`
	IFSC          secret.SecretString `json:"ifsc,omitempty"`
	UPI           secret.SecretString `json:"upi,omitempty"`
}

// Creator is the billing-facing profile of a platform creator.
type Creator struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	Name  string       `gorm:"not null" json:"name"`
	Email string       `gorm:"not null" json:"email"`
	Phone string       `gorm:"type:text" json:"phone,omitempty"`

	// StateCode is the two-digit GST state code; interstate supply is decided
	// by comparing it against the client's.
	StateCode string `gorm:"type:text" json:"state_code,omitempty"`
	Address   string `gorm:"type:text" json:"address,omitempty"`

	TaxPreferences datatypes.JSONType[TaxPreferences] `gorm:"type:jsonb" json:"tax_preferences"`
	BankDetails    datatypes.JSONType[BankDetails]    `gorm:"type:jsonb" json:"bank_details"`

	SubscriptionID *snowflake.ID     `gorm:"index" json:"subscription_id,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Creator) TableName() string { return "creators" }
