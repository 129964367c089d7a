package billingcycle

import (
	billingcycledomain "github.com/creatorstack/paisa/internal/billingcycle/domain"
	"github.com/creatorstack/paisa/internal/billingcycle/service"
	subscriptiondomain "github.com/creatorstack/paisa/internal/subscription/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("billingcycle",
	fx.Provide(
		service.NewService,
		func(svc billingcycledomain.Service) subscriptiondomain.CycleStarter { return svc },
	),
)
