package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/clock"
	"github.com/creatorstack/paisa/internal/config"
	creatordomain "github.com/creatorstack/paisa/internal/creator/domain"
	creatorrepository "github.com/creatorstack/paisa/internal/creator/repository"
	subscriptiondomain "github.com/creatorstack/paisa/internal/subscription/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type cycleStarterStub struct {
	started []subscriptiondomain.Subscription
}

func (c *cycleStarterStub) StartCycle(_ context.Context, sub subscriptiondomain.Subscription, _ string) error {
	c.started = append(c.started, sub)
	return nil
}

type subscriptionFixture struct {
	db      *gorm.DB
	svc     subscriptiondomain.Service
	node    *snowflake.Node
	cycles  *cycleStarterStub
	creator creatordomain.Creator
}

func setupSubscriptionService(t *testing.T) *subscriptionFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&subscriptiondomain.Subscription{}, &creatordomain.Creator{}))

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)

	creator := creatordomain.Creator{
		ID:    node.Generate(),
		Name:  "Asha Rao",
		Email: "asha@example.com",
	}
	require.NoError(t, db.Create(&creator).Error)

	starter := &cycleStarterStub{}
	svc := NewService(Params{
		DB:       db,
		Log:      zaptest.NewLogger(t),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)),
		Billing:  config.NewStaticBillingPolicyHolder(config.DefaultBillingPolicy()),
		Creators: creatorrepository.NewStore(db),
		Cycles:   starter,
	})

	return &subscriptionFixture{db: db, svc: svc, node: node, cycles: starter, creator: creator}
}

func TestActivateSnapshotsTierLimits(t *testing.T) {
	f := setupSubscriptionService(t)

	sub, err := f.svc.Activate(context.Background(), subscriptiondomain.ActivateRequest{
		SubscriberID: f.creator.ID,
		Tier:         "Pro",
		AutoRenew:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "pro", sub.Tier)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusActive, sub.Status)
	assert.EqualValues(t, 100, sub.FeatureLimits["deals"])

	require.Len(t, f.cycles.started, 1)
	assert.Equal(t, sub.ID, f.cycles.started[0].ID)

	var reloaded creatordomain.Creator
	require.NoError(t, f.db.First(&reloaded, "id = ?", f.creator.ID).Error)
	require.NotNil(t, reloaded.SubscriptionID)
	assert.Equal(t, sub.ID, *reloaded.SubscriptionID)
}

func TestActivateRejectsUnknownTier(t *testing.T) {
	f := setupSubscriptionService(t)

	_, err := f.svc.Activate(context.Background(), subscriptiondomain.ActivateRequest{
		SubscriberID: f.creator.ID,
		Tier:         "platinum",
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrUnknownTier)
}

func TestActivateRejectsSecondSubscription(t *testing.T) {
	f := setupSubscriptionService(t)

	_, err := f.svc.Activate(context.Background(), subscriptiondomain.ActivateRequest{
		SubscriberID: f.creator.ID,
		Tier:         "starter",
	})
	require.NoError(t, err)

	_, err = f.svc.Activate(context.Background(), subscriptiondomain.ActivateRequest{
		SubscriberID: f.creator.ID,
		Tier:         "pro",
	})
	assert.ErrorIs(t, err, subscriptiondomain.ErrAlreadySubscribed)
}

func TestCancelSubscription(t *testing.T) {
	f := setupSubscriptionService(t)

	_, err := f.svc.Activate(context.Background(), subscriptiondomain.ActivateRequest{
		SubscriberID: f.creator.ID,
		Tier:         "elite",
		AutoRenew:    true,
	})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), f.creator.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusCancelled, cancelled.Status)
	assert.False(t, cancelled.AutoRenew)
	assert.NotNil(t, cancelled.CancelledAt)

	_, err = f.svc.Cancel(context.Background(), f.creator.ID)
	assert.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotActive)
}

func TestGetBySubscriberMissing(t *testing.T) {
	f := setupSubscriptionService(t)

	_, err := f.svc.GetBySubscriber(context.Background(), f.node.Generate())
	assert.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)
}
