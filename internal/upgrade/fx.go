package upgrade

import (
	"github.com/creatorstack/paisa/internal/upgrade/service"
	"go.uber.org/fx"
)

var Module = fx.Module("upgrade",
	fx.Provide(
		service.NewService,
	),
)
