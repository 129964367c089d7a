package reminder

import (
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	paymentdomain "github.com/creatorstack/paisa/internal/payment/domain"
	reminderdomain "github.com/creatorstack/paisa/internal/reminder/domain"
	"github.com/creatorstack/paisa/internal/reminder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reminder",
	fx.Provide(
		service.NewService,
		func(svc reminderdomain.Service) paymentdomain.ReminderCanceller { return svc },
		func(svc reminderdomain.Service) invoicedomain.ReminderScheduler { return svc },
	),
)
