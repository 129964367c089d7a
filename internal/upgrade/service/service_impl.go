package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/creatorstack/paisa/internal/billingcycle/domain"
	"github.com/creatorstack/paisa/internal/clock"
	"github.com/creatorstack/paisa/internal/config"
	"github.com/creatorstack/paisa/internal/creatorctx"
	subscriptiondomain "github.com/creatorstack/paisa/internal/subscription/domain"
	upgradedomain "github.com/creatorstack/paisa/internal/upgrade/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// rollbackWindowDays is how long a completed upgrade may still be contested
// through support before the old tier pricing is unrecoverable.
const rollbackWindowDays = 7

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Billing *config.BillingPolicyHolder
	Cycles  billingcycledomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	billing *config.BillingPolicyHolder
	cycles  billingcycledomain.Service
}

func NewService(p Params) upgradedomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("upgrade.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		billing: p.Billing,
		cycles:  p.Cycles,
	}
}

func (s *Service) Request(ctx context.Context, toTier string) (upgradedomain.SubscriptionUpgrade, error) {
	subscriberID, ok := creatorctx.CreatorIDFromContext(ctx)
	if !ok {
		return upgradedomain.SubscriptionUpgrade{}, subscriptiondomain.ErrSubscriptionNotFound
	}

	var sub subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).First(&sub, "subscriber_id = ?", subscriberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return upgradedomain.SubscriptionUpgrade{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	if err != nil {
		return upgradedomain.SubscriptionUpgrade{}, err
	}
	if sub.Status != subscriptiondomain.SubscriptionStatusActive {
		return upgradedomain.SubscriptionUpgrade{}, subscriptiondomain.ErrSubscriptionNotActive
	}

	policy := s.billing.Current()
	from, ok := policy.Tier(sub.Tier)
	if !ok {
		return upgradedomain.SubscriptionUpgrade{}, upgradedomain.ErrUnknownTier
	}
	to, ok := policy.Tier(toTier)
	if !ok {
		return upgradedomain.SubscriptionUpgrade{}, upgradedomain.ErrUnknownTier
	}
	if strings.EqualFold(from.Name, to.Name) {
		return upgradedomain.SubscriptionUpgrade{}, upgradedomain.ErrSameTier
	}

	cycle, err := s.cycles.Current(ctx, sub.SubscriberID)
	if err != nil {
		return upgradedomain.SubscriptionUpgrade{}, err
	}

	now := s.clock.Now()
	proration := upgradedomain.Prorate(
		from.QuarterlyPrice,
		to.QuarterlyPrice,
		policy.ProrationDays,
		cycle.EndDate,
		now,
	)

	deadline := now.AddDate(0, 0, rollbackWindowDays)
	upgrade := upgradedomain.SubscriptionUpgrade{
		ID:               s.genID.Generate(),
		SubscriptionID:   sub.ID,
		SubscriberID:     sub.SubscriberID,
		FromTier:         strings.ToLower(from.Name),
		ToTier:           strings.ToLower(to.Name),
		RequestedAt:      now,
		Proration:        datatypes.NewJSONType(proration),
		PaymentRequired:  proration.NetAmount > 0,
		Status:           upgradedomain.UpgradeStatusRequested,
		RollbackDeadline: &deadline,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.db.WithContext(ctx).Create(&upgrade).Error; err != nil {
		return upgradedomain.SubscriptionUpgrade{}, err
	}

	s.log.Info("tier change requested",
		zap.Int64("subscriber_id", int64(sub.SubscriberID)),
		zap.String("from_tier", upgrade.FromTier),
		zap.String("to_tier", upgrade.ToTier),
		zap.Int64("net_amount", proration.NetAmount),
	)

	if upgrade.PaymentRequired {
		if err := upgrade.Transition(upgradedomain.UpgradeStatusPaymentPending, now); err != nil {
			return upgradedomain.SubscriptionUpgrade{}, err
		}
		if err := s.db.WithContext(ctx).Save(&upgrade).Error; err != nil {
			return upgradedomain.SubscriptionUpgrade{}, err
		}
		return upgrade, nil
	}

	// Downgrades and equal pricing take effect right away.
	return s.apply(ctx, upgrade)
}

func (s *Service) Apply(ctx context.Context, id snowflake.ID) (upgradedomain.SubscriptionUpgrade, error) {
	upgrade, err := s.loadOwned(ctx, id)
	if err != nil {
		return upgradedomain.SubscriptionUpgrade{}, err
	}
	if upgrade.Status == upgradedomain.UpgradeStatusCompleted {
		return upgradedomain.SubscriptionUpgrade{}, upgradedomain.ErrUpgradeAlreadyApplied
	}
	return s.apply(ctx, upgrade)
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (upgradedomain.SubscriptionUpgrade, error) {
	return s.loadOwned(ctx, id)
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID) (upgradedomain.SubscriptionUpgrade, error) {
	upgrade, err := s.loadOwned(ctx, id)
	if err != nil {
		return upgradedomain.SubscriptionUpgrade{}, err
	}
	if upgrade.Status == upgradedomain.UpgradeStatusCompleted {
		return upgradedomain.SubscriptionUpgrade{}, upgradedomain.ErrUpgradeAlreadyApplied
	}

	now := s.clock.Now()
	if err := upgrade.Transition(upgradedomain.UpgradeStatusCancelled, now); err != nil {
		return upgradedomain.SubscriptionUpgrade{}, err
	}
	if err := s.db.WithContext(ctx).Save(&upgrade).Error; err != nil {
		return upgradedomain.SubscriptionUpgrade{}, err
	}
	return upgrade, nil
}

// apply walks the upgrade to completed and moves the subscription to the new
// tier inside one transaction.
func (s *Service) apply(ctx context.Context, upgrade upgradedomain.SubscriptionUpgrade) (upgradedomain.SubscriptionUpgrade, error) {
	to, ok := s.billing.Current().Tier(upgrade.ToTier)
	if !ok {
		return upgradedomain.SubscriptionUpgrade{}, upgradedomain.ErrUnknownTier
	}

	now := s.clock.Now()
	if upgrade.Status != upgradedomain.UpgradeStatusProcessing {
		if err := upgrade.Transition(upgradedomain.UpgradeStatusProcessing, now); err != nil {
			return upgradedomain.SubscriptionUpgrade{}, err
		}
	}

	limits := datatypes.JSONMap{}
	for feature, limit := range to.FeatureLimits {
		limits[feature] = limit
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&subscriptiondomain.Subscription{}).
			Where("id = ?", upgrade.SubscriptionID).
			Updates(map[string]any{
				"tier":           upgrade.ToTier,
				"feature_limits": limits,
				"updated_at":     now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return subscriptiondomain.ErrSubscriptionNotFound
		}

		if err := upgrade.Transition(upgradedomain.UpgradeStatusCompleted, now); err != nil {
			return err
		}
		upgrade.EffectiveAt = &now
		return tx.Save(&upgrade).Error
	})
	if err != nil {
		return upgradedomain.SubscriptionUpgrade{}, err
	}

	if err := s.cycles.RefreshFeatureLimits(ctx, upgrade.SubscriptionID, limits); err != nil {
		s.log.Warn("feature limit refresh failed after upgrade",
			zap.Int64("subscription_id", int64(upgrade.SubscriptionID)),
			zap.Error(err),
		)
	}

	s.log.Info("tier change applied",
		zap.Int64("subscriber_id", int64(upgrade.SubscriberID)),
		zap.String("tier", upgrade.ToTier),
	)
	return upgrade, nil
}

func (s *Service) loadOwned(ctx context.Context, id snowflake.ID) (upgradedomain.SubscriptionUpgrade, error) {
	subscriberID, ok := creatorctx.CreatorIDFromContext(ctx)
	if !ok {
		return upgradedomain.SubscriptionUpgrade{}, upgradedomain.ErrUpgradeNotOwned
	}

	var upgrade upgradedomain.SubscriptionUpgrade
	err := s.db.WithContext(ctx).First(&upgrade, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return upgradedomain.SubscriptionUpgrade{}, upgradedomain.ErrUpgradeNotFound
	}
	if err != nil {
		return upgradedomain.SubscriptionUpgrade{}, err
	}
	if int64(upgrade.SubscriberID) != subscriberID {
		return upgradedomain.SubscriptionUpgrade{}, upgradedomain.ErrUpgradeNotOwned
	}
	return upgrade, nil
}
