package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/clock"
	"github.com/creatorstack/paisa/internal/config"
	creatordomain "github.com/creatorstack/paisa/internal/creator/domain"
	subscriptiondomain "github.com/creatorstack/paisa/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Billing *config.BillingPolicyHolder

	Creators creatordomain.Store             `optional:"true"`
	Cycles   subscriptiondomain.CycleStarter `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	billing  *config.BillingPolicyHolder
	creators creatordomain.Store
	cycles   subscriptiondomain.CycleStarter
}

func NewService(p Params) subscriptiondomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("subscription.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		billing:  p.Billing,
		creators: p.Creators,
		cycles:   p.Cycles,
	}
}

func (s *Service) Activate(ctx context.Context, req subscriptiondomain.ActivateRequest) (subscriptiondomain.Subscription, error) {
	tier, ok := s.billing.Current().Tier(req.Tier)
	if !ok {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrUnknownTier
	}

	var existing subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).First(&existing, "subscriber_id = ?", req.SubscriberID).Error
	if err == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrAlreadySubscribed
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return subscriptiondomain.Subscription{}, err
	}

	now := s.clock.Now()
	sub := subscriptiondomain.Subscription{
		ID:            s.genID.Generate(),
		SubscriberID:  req.SubscriberID,
		Tier:          strings.ToLower(tier.Name),
		Status:        subscriptiondomain.SubscriptionStatusActive,
		FeatureLimits: featureLimits(tier),
		AutoRenew:     req.AutoRenew,
		ActivatedAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	if s.cycles != nil {
		if err := s.cycles.StartCycle(ctx, sub, req.CycleType); err != nil {
			return subscriptiondomain.Subscription{}, err
		}
	}

	if s.creators != nil {
		if err := s.linkCreator(ctx, sub); err != nil {
			s.log.Warn("could not link subscription to creator profile",
				zap.Int64("subscriber_id", int64(sub.SubscriberID)),
				zap.Error(err),
			)
		}
	}

	s.log.Info("subscription activated",
		zap.Int64("subscriber_id", int64(sub.SubscriberID)),
		zap.String("tier", sub.Tier),
	)
	return sub, nil
}

func (s *Service) GetBySubscriber(ctx context.Context, subscriberID snowflake.ID) (subscriptiondomain.Subscription, error) {
	var sub subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).First(&sub, "subscriber_id = ?", subscriberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	return sub, nil
}

func (s *Service) Cancel(ctx context.Context, subscriberID snowflake.ID) (subscriptiondomain.Subscription, error) {
	sub, err := s.GetBySubscriber(ctx, subscriberID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if sub.Status != subscriptiondomain.SubscriptionStatusActive {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotActive
	}

	now := s.clock.Now()
	sub.Status = subscriptiondomain.SubscriptionStatusCancelled
	sub.CancelledAt = &now
	sub.AutoRenew = false
	sub.UpdatedAt = now

	if err := s.db.WithContext(ctx).Save(&sub).Error; err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	return sub, nil
}

func (s *Service) linkCreator(ctx context.Context, sub subscriptiondomain.Subscription) error {
	creator, err := s.creators.FindByID(ctx, sub.SubscriberID)
	if err != nil {
		return err
	}
	if creator == nil {
		return creatordomain.ErrCreatorNotFound
	}
	creator.SubscriptionID = &sub.ID
	return s.creators.Update(ctx, creator)
}

func featureLimits(tier config.TierPolicy) datatypes.JSONMap {
	limits := datatypes.JSONMap{}
	for feature, limit := range tier.FeatureLimits {
		limits[feature] = limit
	}
	return limits
}
