package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/creatorstack/paisa/internal/billingcycle/domain"
	billingcycleservice "github.com/creatorstack/paisa/internal/billingcycle/service"
	"github.com/creatorstack/paisa/internal/clock"
	"github.com/creatorstack/paisa/internal/config"
	"github.com/creatorstack/paisa/internal/creatorctx"
	subscriptiondomain "github.com/creatorstack/paisa/internal/subscription/domain"
	upgradedomain "github.com/creatorstack/paisa/internal/upgrade/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type upgradeFixture struct {
	db           *gorm.DB
	svc          upgradedomain.Service
	cycles       billingcycledomain.Service
	node         *snowflake.Node
	clock        *clock.FakeClock
	subscriberID snowflake.ID
	sub          subscriptiondomain.Subscription
	ctx          context.Context
}

func setupUpgradeService(t *testing.T, tier string) *upgradeFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&subscriptiondomain.Subscription{},
		&billingcycledomain.BillingCycle{},
		&upgradedomain.SubscriptionUpgrade{},
	))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	holder := config.NewStaticBillingPolicyHolder(config.DefaultBillingPolicy())
	log := zaptest.NewLogger(t)

	cycles := billingcycleservice.NewService(billingcycleservice.Params{
		DB:      db,
		Log:     log,
		GenID:   node,
		Clock:   fakeClock,
		Billing: holder,
	})

	svc := NewService(Params{
		DB:      db,
		Log:     log,
		GenID:   node,
		Clock:   fakeClock,
		Billing: holder,
		Cycles:  cycles,
	})

	subscriberID := node.Generate()
	sub := subscriptiondomain.Subscription{
		ID:            node.Generate(),
		SubscriberID:  subscriberID,
		Tier:          tier,
		Status:        subscriptiondomain.SubscriptionStatusActive,
		FeatureLimits: datatypes.JSONMap{"deals": int64(25)},
		AutoRenew:     true,
		ActivatedAt:   fakeClock.Now(),
	}
	require.NoError(t, db.Create(&sub).Error)
	require.NoError(t, cycles.StartCycle(context.Background(), sub, ""))

	return &upgradeFixture{
		db:           db,
		svc:          svc,
		cycles:       cycles,
		node:         node,
		clock:        fakeClock,
		subscriberID: subscriberID,
		sub:          sub,
		ctx:          creatorctx.WithCreatorID(context.Background(), int64(subscriberID)),
	}
}

func TestRequestUpgradePricesProration(t *testing.T) {
	f := setupUpgradeService(t, "starter")

	// Pin the clock to exactly 45 days before cycle end.
	cycle, err := f.cycles.Current(context.Background(), f.subscriberID)
	require.NoError(t, err)
	f.clock.Advance(cycle.EndDate.AddDate(0, 0, -45).Sub(f.clock.Now()))

	upgrade, err := f.svc.Request(f.ctx, "pro")
	require.NoError(t, err)

	assert.Equal(t, "starter", upgrade.FromTier)
	assert.Equal(t, "pro", upgrade.ToTier)
	assert.Equal(t, upgradedomain.UpgradeStatusPaymentPending, upgrade.Status)
	assert.True(t, upgrade.PaymentRequired)
	require.NotNil(t, upgrade.RollbackDeadline)

	p := upgrade.Proration.Data()
	assert.Equal(t, 45, p.RemainingDays)
	assert.Equal(t, int64(943), p.RefundAmount)
	assert.Equal(t, int64(1754), p.ChargeAmount)
	assert.Equal(t, int64(811), p.NetAmount)
}

func TestApplyUpgradeSetsTierAndRefreshesLimits(t *testing.T) {
	f := setupUpgradeService(t, "starter")

	upgrade, err := f.svc.Request(f.ctx, "pro")
	require.NoError(t, err)
	require.Equal(t, upgradedomain.UpgradeStatusPaymentPending, upgrade.Status)

	applied, err := f.svc.Apply(f.ctx, upgrade.ID)
	require.NoError(t, err)
	assert.Equal(t, upgradedomain.UpgradeStatusCompleted, applied.Status)
	assert.NotNil(t, applied.CompletedAt)
	assert.NotNil(t, applied.EffectiveAt)

	var sub subscriptiondomain.Subscription
	require.NoError(t, f.db.First(&sub, "id = ?", f.sub.ID).Error)
	assert.Equal(t, "pro", sub.Tier)
	// JSONMap numbers come back as json.Number after a reload; compare as text.
	assert.Equal(t, "100", fmt.Sprint(sub.FeatureLimits["deals"]))

	cycle, err := f.cycles.Current(context.Background(), f.subscriberID)
	require.NoError(t, err)
	assert.Equal(t, "100", fmt.Sprint(cycle.FeatureLimits["deals"]))
}

func TestReApplyCompletedUpgradeRejected(t *testing.T) {
	f := setupUpgradeService(t, "starter")

	upgrade, err := f.svc.Request(f.ctx, "pro")
	require.NoError(t, err)
	_, err = f.svc.Apply(f.ctx, upgrade.ID)
	require.NoError(t, err)

	_, err = f.svc.Apply(f.ctx, upgrade.ID)
	assert.ErrorIs(t, err, upgradedomain.ErrUpgradeAlreadyApplied)
}

func TestDowngradeAppliesImmediately(t *testing.T) {
	f := setupUpgradeService(t, "pro")

	upgrade, err := f.svc.Request(f.ctx, "starter")
	require.NoError(t, err)

	assert.Equal(t, upgradedomain.UpgradeStatusCompleted, upgrade.Status)
	assert.False(t, upgrade.PaymentRequired)
	assert.Negative(t, upgrade.Proration.Data().NetAmount)

	var sub subscriptiondomain.Subscription
	require.NoError(t, f.db.First(&sub, "id = ?", f.sub.ID).Error)
	assert.Equal(t, "starter", sub.Tier)
}

func TestRequestRejectsCurrentTier(t *testing.T) {
	f := setupUpgradeService(t, "pro")

	_, err := f.svc.Request(f.ctx, "pro")
	assert.ErrorIs(t, err, upgradedomain.ErrSameTier)
}

func TestCancelPendingUpgrade(t *testing.T) {
	f := setupUpgradeService(t, "starter")

	upgrade, err := f.svc.Request(f.ctx, "elite")
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(f.ctx, upgrade.ID)
	require.NoError(t, err)
	assert.Equal(t, upgradedomain.UpgradeStatusCancelled, cancelled.Status)

	var sub subscriptiondomain.Subscription
	require.NoError(t, f.db.First(&sub, "id = ?", f.sub.ID).Error)
	assert.Equal(t, "starter", sub.Tier)
}

func TestUpgradeScopedToOwner(t *testing.T) {
	f := setupUpgradeService(t, "starter")

	upgrade, err := f.svc.Request(f.ctx, "pro")
	require.NoError(t, err)

	stranger := creatorctx.WithCreatorID(context.Background(), int64(f.node.Generate()))
	_, err = f.svc.Apply(stranger, upgrade.ID)
	assert.ErrorIs(t, err, upgradedomain.ErrUpgradeNotOwned)
}
