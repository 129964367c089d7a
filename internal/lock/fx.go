package lock

import (
	"strings"

	"github.com/creatorstack/paisa/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// NewFromConfig returns a nil Locker when redis is not configured; callers
// treat nil as "run unlocked".
func NewFromConfig(cfg config.Config) *Locker {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	return NewLocker(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	}))
}

var Module = fx.Module("lock",
	fx.Provide(
		NewFromConfig,
	),
)
