package creator

import (
	"github.com/creatorstack/paisa/internal/creator/repository"
	"github.com/creatorstack/paisa/internal/creator/service"
	"go.uber.org/fx"
)

var Module = fx.Module("creator",
	fx.Provide(repository.NewStore),
	fx.Provide(service.New),
)
