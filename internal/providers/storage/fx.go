package storage

import (
	"github.com/creatorstack/paisa/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.storage",
	fx.Provide(
		func(cfg config.Config) (*LocalStore, error) {
			return NewLocalStore(cfg.DocumentDir)
		},
		func(s *LocalStore) ObjectStore { return s },
	),
)
