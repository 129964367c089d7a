package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/billingcycle"
	"github.com/creatorstack/paisa/internal/clock"
	"github.com/creatorstack/paisa/internal/config"
	"github.com/creatorstack/paisa/internal/creator"
	"github.com/creatorstack/paisa/internal/deal"
	"github.com/creatorstack/paisa/internal/invoice"
	"github.com/creatorstack/paisa/internal/lock"
	"github.com/creatorstack/paisa/internal/logger"
	"github.com/creatorstack/paisa/internal/migration"
	"github.com/creatorstack/paisa/internal/observability"
	"github.com/creatorstack/paisa/internal/payment"
	"github.com/creatorstack/paisa/internal/providers"
	"github.com/creatorstack/paisa/internal/reminder"
	"github.com/creatorstack/paisa/internal/scheduler"
	"github.com/creatorstack/paisa/internal/secret"
	"github.com/creatorstack/paisa/internal/server"
	"github.com/creatorstack/paisa/internal/subscription"
	"github.com/creatorstack/paisa/internal/upgrade"
	"github.com/creatorstack/paisa/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		secret.Module,
		lock.Module,
		providers.Module,

		// Billing domains
		creator.Module,
		deal.Module,
		invoice.Module,
		payment.Module,
		reminder.Module,
		subscription.Module,
		billingcycle.Module,
		upgrade.Module,

		scheduler.Module,
		server.Module,
	)
	app.Run()
}

// newSnowflakeNode builds the process-wide id generator. Deployments with
// more than one instance set a distinct NODE_ID each.
func newSnowflakeNode() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := os.Getenv("NODE_ID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && parsed >= 0 {
			nodeID = parsed % 1024
		}
	}
	return snowflake.NewNode(nodeID)
}
