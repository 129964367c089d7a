package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/creatorstack/paisa/internal/billingcycle/domain"
	"github.com/creatorstack/paisa/internal/clock"
	"github.com/creatorstack/paisa/internal/config"
	creatordomain "github.com/creatorstack/paisa/internal/creator/domain"
	"github.com/creatorstack/paisa/internal/creatorctx"
	obsmetrics "github.com/creatorstack/paisa/internal/observability/metrics"
	"github.com/creatorstack/paisa/internal/providers/email"
	subscriptiondomain "github.com/creatorstack/paisa/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Billing *config.BillingPolicyHolder

	Email      email.Provider      `optional:"true"`
	Creators   creatordomain.Store `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	billing    *config.BillingPolicyHolder
	email      email.Provider
	creators   creatordomain.Store
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) billingcycledomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("billingcycle.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		billing:    p.Billing,
		email:      p.Email,
		creators:   p.Creators,
		obsMetrics: p.ObsMetrics,
	}
}

// nonTerminalStatuses are the cycle states a subscriber still interacts with.
var nonTerminalStatuses = []billingcycledomain.CycleStatus{
	billingcycledomain.CycleStatusUpcoming,
	billingcycledomain.CycleStatusActive,
	billingcycledomain.CycleStatusPaymentPending,
	billingcycledomain.CycleStatusPaymentOverdue,
}

func (s *Service) StartCycle(ctx context.Context, sub subscriptiondomain.Subscription, cycleType string) error {
	ct := billingcycledomain.CycleType(strings.ToLower(strings.TrimSpace(cycleType)))
	if ct == "" {
		ct = billingcycledomain.CycleTypeQuarterly
	}

	cycle, err := s.buildCycle(sub, 1, ct, s.clock.Now())
	if err != nil {
		return err
	}
	cycle.Status = billingcycledomain.CycleStatusActive

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&cycle).Error
}

func (s *Service) Current(ctx context.Context, subscriberID snowflake.ID) (billingcycledomain.BillingCycle, error) {
	var cycle billingcycledomain.BillingCycle
	err := s.db.WithContext(ctx).
		Where("subscriber_id = ? AND status IN ?", subscriberID, nonTerminalStatuses).
		Order("cycle_number DESC").
		First(&cycle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return billingcycledomain.BillingCycle{}, billingcycledomain.ErrNoActiveCycle
	}
	if err != nil {
		return billingcycledomain.BillingCycle{}, err
	}
	return cycle, nil
}

func (s *Service) ListBySubscriber(ctx context.Context, subscriberID snowflake.ID) ([]billingcycledomain.BillingCycle, error) {
	var cycles []billingcycledomain.BillingCycle
	err := s.db.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID).
		Order("cycle_number DESC").
		Find(&cycles).Error
	return cycles, err
}

func (s *Service) Pay(ctx context.Context, cycleID snowflake.ID) (billingcycledomain.BillingCycle, error) {
	subscriberID, ok := creatorctx.CreatorIDFromContext(ctx)
	if !ok {
		return billingcycledomain.BillingCycle{}, billingcycledomain.ErrCycleNotOwned
	}

	var cycle billingcycledomain.BillingCycle
	err := s.db.WithContext(ctx).First(&cycle, "id = ?", cycleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return billingcycledomain.BillingCycle{}, billingcycledomain.ErrCycleNotFound
	}
	if err != nil {
		return billingcycledomain.BillingCycle{}, err
	}
	if int64(cycle.SubscriberID) != subscriberID {
		return billingcycledomain.BillingCycle{}, billingcycledomain.ErrCycleNotOwned
	}
	if cycle.PaymentStatus == billingcycledomain.CyclePaymentCompleted {
		return billingcycledomain.BillingCycle{}, billingcycledomain.ErrCycleAlreadyPaid
	}
	if !cycle.Payable() {
		return billingcycledomain.BillingCycle{}, billingcycledomain.ErrCycleNotPayable
	}

	now := s.clock.Now()
	cycle.PaymentStatus = billingcycledomain.CyclePaymentCompleted
	cycle.PaidAt = &now
	cycle.UpdatedAt = now

	// A cycle already past its window settles immediately and unblocks the
	// renewal; an active one stays active until rollover.
	settled := cycle.Status != billingcycledomain.CycleStatusActive
	if settled {
		if err := cycle.Transition(billingcycledomain.CycleStatusCompleted, now); err != nil {
			return billingcycledomain.BillingCycle{}, err
		}
	}

	if err := s.db.WithContext(ctx).Save(&cycle).Error; err != nil {
		return billingcycledomain.BillingCycle{}, err
	}

	if settled {
		if _, err := s.renew(ctx, cycle); err != nil {
			s.log.Warn("renewal after late payment failed",
				zap.Int64("cycle_id", int64(cycle.ID)),
				zap.Error(err),
			)
		}
	}

	s.log.Info("billing cycle paid",
		zap.Int64("cycle_id", int64(cycle.ID)),
		zap.Int64("total_with_gst", cycle.TotalWithGST),
	)
	return cycle, nil
}

func (s *Service) Rollover(ctx context.Context, now time.Time) (int, error) {
	var ended []billingcycledomain.BillingCycle
	err := s.db.WithContext(ctx).
		Where("status = ? AND end_date <= ?", billingcycledomain.CycleStatusActive, now).
		Order("id ASC").
		Find(&ended).Error
	if err != nil {
		return 0, err
	}

	created := 0
	for _, cycle := range ended {
		// An unpaid cycle parks in payment_pending and blocks renewal until
		// the money arrives.
		if cycle.PaymentStatus != billingcycledomain.CyclePaymentCompleted {
			if err := cycle.Transition(billingcycledomain.CycleStatusPaymentPending, now); err != nil {
				return created, err
			}
			if err := s.db.WithContext(ctx).Save(&cycle).Error; err != nil {
				return created, err
			}
			continue
		}

		if err := cycle.Transition(billingcycledomain.CycleStatusCompleted, now); err != nil {
			return created, err
		}
		if err := s.db.WithContext(ctx).Save(&cycle).Error; err != nil {
			return created, err
		}

		opened, err := s.renew(ctx, cycle)
		if err != nil {
			return created, err
		}
		if opened {
			created++
		}
	}

	// Cycles that burned through their grace window go overdue.
	err = s.db.WithContext(ctx).Model(&billingcycledomain.BillingCycle{}).
		Where("status = ? AND grace_end_date < ? AND payment_status <> ?",
			billingcycledomain.CycleStatusPaymentPending,
			now,
			billingcycledomain.CyclePaymentCompleted,
		).
		Updates(map[string]any{
			"status":     billingcycledomain.CycleStatusPaymentOverdue,
			"updated_at": now,
		}).Error
	if err != nil {
		return created, err
	}

	return created, nil
}

func (s *Service) ProcessRenewalReminders(ctx context.Context, now time.Time) (int, error) {
	var cycles []billingcycledomain.BillingCycle
	err := s.db.WithContext(ctx).
		Where("status IN ? AND payment_status <> ?",
			nonTerminalStatuses,
			billingcycledomain.CyclePaymentCompleted,
		).
		Find(&cycles).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, cycle := range cycles {
		for _, offset := range s.billing.Current().ReminderOffsetsDays {
			fireAt := cycle.PaymentDueDate.AddDate(0, 0, offset)
			if now.Before(fireAt) || cycle.ReminderSentFor(offset) {
				continue
			}

			if err := s.sendRenewalReminder(ctx, cycle, offset); err != nil {
				// Leave the offset unrecorded; the next scan retries.
				s.log.Warn("renewal reminder send failed",
					zap.Int64("cycle_id", int64(cycle.ID)),
					zap.Int("offset_days", offset),
					zap.Error(err),
				)
				continue
			}

			cycle.RemindersSent = append(cycle.RemindersSent, offset)
			cycle.UpdatedAt = now
			if err := s.db.WithContext(ctx).Save(&cycle).Error; err != nil {
				return sent, err
			}
			sent++
			s.obsMetrics.RecordReminderSent("renewal")
		}
	}

	return sent, nil
}

func (s *Service) RefreshFeatureLimits(ctx context.Context, subscriptionID snowflake.ID, limits map[string]any) error {
	return s.db.WithContext(ctx).Model(&billingcycledomain.BillingCycle{}).
		Where("subscription_id = ? AND status IN ?", subscriptionID, nonTerminalStatuses).
		Updates(map[string]any{
			"feature_limits": datatypes.JSONMap(limits),
			"updated_at":     s.clock.Now(),
		}).Error
}

// renew opens the successor cycle for an auto-renewing, active subscription.
// The unique (subscription, cycle number) index makes reruns no-ops.
func (s *Service) renew(ctx context.Context, cycle billingcycledomain.BillingCycle) (bool, error) {
	if !cycle.AutoRenew {
		return false, nil
	}

	var sub subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).First(&sub, "id = ?", cycle.SubscriptionID).Error
	if err != nil {
		s.log.Warn("cycle renewal found no subscription",
			zap.Int64("subscription_id", int64(cycle.SubscriptionID)),
			zap.Error(err),
		)
		return false, nil
	}
	if sub.Status != subscriptiondomain.SubscriptionStatusActive {
		return false, nil
	}

	successor, err := s.buildCycle(sub, cycle.CycleNumber+1, cycle.CycleType, cycle.EndDate)
	if err != nil {
		return false, err
	}
	successor.Status = billingcycledomain.CycleStatusActive

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&successor)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *Service) buildCycle(sub subscriptiondomain.Subscription, number int, cycleType billingcycledomain.CycleType, start time.Time) (billingcycledomain.BillingCycle, error) {
	policy := s.billing.Current()
	tier, ok := policy.Tier(sub.Tier)
	if !ok {
		return billingcycledomain.BillingCycle{}, billingcycledomain.ErrUnknownTier
	}

	end := cycleEnd(start, cycleType)
	amounts := billingcycledomain.ComputeAmounts(
		tier.QuarterlyPrice,
		cycleType,
		policy.QuarterlyDiscountPercent,
		policy.SubscriptionGSTRate,
	)

	now := s.clock.Now()
	return billingcycledomain.BillingCycle{
		ID:             s.genID.Generate(),
		SubscriptionID: sub.ID,
		SubscriberID:   sub.SubscriberID,
		CycleNumber:    number,
		CycleType:      cycleType,
		Tier:           sub.Tier,
		StartDate:      start,
		EndDate:        end,
		PaymentDueDate: end,
		GraceEndDate:   end.AddDate(0, 0, policy.GraceDays),
		BaseAmount:     amounts.Base,
		DiscountAmount: amounts.Discount,
		FinalAmount:    amounts.Final,
		GSTAmount:      amounts.GST,
		TotalWithGST:   amounts.Total,
		Status:         billingcycledomain.CycleStatusUpcoming,
		PaymentStatus:  billingcycledomain.CyclePaymentPending,
		AutoRenew:      sub.AutoRenew,
		FeatureLimits:  sub.FeatureLimits,
		UsageCounters:  map[string]any{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func cycleEnd(start time.Time, cycleType billingcycledomain.CycleType) time.Time {
	switch cycleType {
	case billingcycledomain.CycleTypeTrial:
		return start.AddDate(0, 0, 14)
	case billingcycledomain.CycleTypeAnnual:
		return start.AddDate(1, 0, 0)
	case billingcycledomain.CycleTypeCustom:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 3, 0)
	}
}

func (s *Service) sendRenewalReminder(ctx context.Context, cycle billingcycledomain.BillingCycle, offset int) error {
	if s.email == nil || s.creators == nil {
		return errors.New("renewal reminders need an email provider and profile store")
	}

	creator, err := s.creators.FindByID(ctx, cycle.SubscriberID)
	if err != nil {
		return err
	}
	if creator == nil || creator.Email == "" {
		return fmt.Errorf("subscriber %d has no email on file", cycle.SubscriberID)
	}

	subject := fmt.Sprintf("Your %s subscription renews on %s", cycle.Tier, cycle.PaymentDueDate.Format("02 Jan 2006"))
	if offset > 0 {
		subject = fmt.Sprintf("Your %s subscription payment is overdue", cycle.Tier)
	}

	body := fmt.Sprintf(
		"<p>Renewal amount: <b>%d INR</b> (incl. GST %d). Payment due %s.</p>",
		cycle.TotalWithGST,
		cycle.GSTAmount,
		cycle.PaymentDueDate.Format("02 Jan 2006"),
	)
	return s.email.Send(ctx, []string{creator.Email}, subject, body)
}
