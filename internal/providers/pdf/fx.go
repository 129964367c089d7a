package pdf

import (
	paymentdomain "github.com/creatorstack/paisa/internal/payment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(
		NewRenderer,
		func(r *Renderer) paymentdomain.ReceiptRenderer { return r },
	),
)
