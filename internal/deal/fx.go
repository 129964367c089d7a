package deal

import (
	"github.com/creatorstack/paisa/internal/deal/repository"
	"github.com/creatorstack/paisa/internal/deal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("deal",
	fx.Provide(repository.NewStore),
	fx.Provide(service.NewSelector),
)
