package providers

import (
	"github.com/creatorstack/paisa/internal/providers/email"
	"github.com/creatorstack/paisa/internal/providers/pdf"
	"github.com/creatorstack/paisa/internal/providers/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	storage.Module,
	pdf.Module,
)
