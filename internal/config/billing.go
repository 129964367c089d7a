package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingPolicy is the hot-reloadable billing rule set: tax rates, the tier
// catalog, reminder offsets and the deal eligibility rules. Values here are
// policy, not code; operators may override them via billing.yml without a
// redeploy.
type BillingPolicy struct {
	// DefaultGSTRate and DefaultTDSRate are percentages used when a creator
	// profile carries no explicit preference.
	DefaultGSTRate float64 `mapstructure:"default_gst_rate"`
	DefaultTDSRate float64 `mapstructure:"default_tds_rate"`

	// SubscriptionGSTRate applies to billing cycle totals.
	SubscriptionGSTRate float64 `mapstructure:"subscription_gst_rate"`
	// QuarterlyDiscountPercent is applied to quarterly cycle base amounts.
	QuarterlyDiscountPercent float64 `mapstructure:"quarterly_discount_percent"`
	// GraceDays extends a cycle's end before it is considered overdue.
	GraceDays int `mapstructure:"grace_days"`
	// ProrationDays is the fixed divisor for tier daily rates.
	ProrationDays int `mapstructure:"proration_days"`

	// DefaultPaymentTermDays sets invoice due dates when unspecified.
	DefaultPaymentTermDays int `mapstructure:"default_payment_term_days"`

	// ReminderOffsetsDays are day offsets relative to a due date at which
	// reminders fire. Negative = before, zero = on the day, positive = after.
	ReminderOffsetsDays []int `mapstructure:"reminder_offsets_days"`

	// EligibleDealStatuses limits which work items may be invoiced.
	EligibleDealStatuses []string `mapstructure:"eligible_deal_statuses"`
	// AgencyPayoutStatuses is the narrower set for agency payout invoices.
	AgencyPayoutStatuses []string `mapstructure:"agency_payout_statuses"`

	// FallbackDealRate is the line item rate used when a work item carries no
	// usable value. Lines priced this way are flagged, never silent.
	FallbackDealRate float64 `mapstructure:"fallback_deal_rate"`

	Tiers []TierPolicy `mapstructure:"tiers"`
}

// TierPolicy describes one subscription tier.
type TierPolicy struct {
	Name           string           `mapstructure:"name"`
	QuarterlyPrice int64            `mapstructure:"quarterly_price"`
	FeatureLimits  map[string]int64 `mapstructure:"feature_limits"`
}

func DefaultBillingPolicy() BillingPolicy {
	return BillingPolicy{
		DefaultGSTRate:           18,
		DefaultTDSRate:           10,
		SubscriptionGSTRate:      18,
		QuarterlyDiscountPercent: 10,
		GraceDays:                3,
		ProrationDays:            90,
		DefaultPaymentTermDays:   30,
		ReminderOffsetsDays:      []int{-7, -3, -1, 0, 1},
		EligibleDealStatuses:     []string{"completed", "live", "paid"},
		AgencyPayoutStatuses:     []string{"completed", "paid"},
		FallbackDealRate:         1000,
		Tiers: []TierPolicy{
			{
				Name:           "starter",
				QuarterlyPrice: 1887,
				FeatureLimits:  map[string]int64{"deals": 25, "invoices": 25, "brands": 10},
			},
			{
				Name:           "pro",
				QuarterlyPrice: 3507,
				FeatureLimits:  map[string]int64{"deals": 100, "invoices": 100, "brands": 50},
			},
			{
				Name:           "elite",
				QuarterlyPrice: 8097,
				FeatureLimits:  map[string]int64{"deals": -1, "invoices": -1, "brands": -1},
			},
		},
	}
}

// Tier returns the policy for a tier name, or false when unknown.
func (p BillingPolicy) Tier(name string) (TierPolicy, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, tier := range p.Tiers {
		if strings.ToLower(tier.Name) == name {
			return tier, true
		}
	}
	return TierPolicy{}, false
}

// BillingPolicyHolder exposes the current policy to services while a watcher
// swaps it on config file changes.
type BillingPolicyHolder struct {
	current atomic.Value // holds BillingPolicy
}

// NewStaticBillingPolicyHolder wraps a fixed policy, bypassing the file
// watcher. Used by tests and one-shot tools.
func NewStaticBillingPolicyHolder(policy BillingPolicy) *BillingPolicyHolder {
	holder := &BillingPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewBillingPolicyHolder() (*BillingPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/paisa/config")
	v.AddConfigPath("/etc/paisa")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PAISA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &BillingPolicyHolder{}
	holder.current.Store(DefaultBillingPolicy())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// No file present: compiled-in defaults apply.
		return holder, nil
	}

	if err := holder.load(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(fsnotify.Event) {
		if err := holder.load(v); err != nil {
			log.Printf("billing policy reload failed: %v", err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

func (h *BillingPolicyHolder) load(v *viper.Viper) error {
	policy := DefaultBillingPolicy()
	if err := v.Unmarshal(&policy); err != nil {
		return err
	}
	if err := policy.validate(); err != nil {
		return err
	}
	h.current.Store(policy)
	return nil
}

func (h *BillingPolicyHolder) Current() BillingPolicy {
	policy, _ := h.current.Load().(BillingPolicy)
	return policy
}

var errInvalidBillingPolicy = errors.New("invalid_billing_policy")

func (p BillingPolicy) validate() error {
	if p.DefaultGSTRate < 0 || p.DefaultTDSRate < 0 || p.SubscriptionGSTRate < 0 {
		return errInvalidBillingPolicy
	}
	if p.GraceDays < 0 || p.ProrationDays <= 0 {
		return errInvalidBillingPolicy
	}
	if len(p.EligibleDealStatuses) == 0 {
		return errInvalidBillingPolicy
	}
	for _, tier := range p.Tiers {
		if tier.Name == "" || tier.QuarterlyPrice < 0 {
			return errInvalidBillingPolicy
		}
	}
	return nil
}
