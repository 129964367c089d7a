package secret

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/creatorstack/paisa/internal/config"
	"go.uber.org/fx"
	"golang.org/x/crypto/chacha20poly1305"
)

var Module = fx.Module("secret",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) (*Codec, error) {
	if cfg.SecretKey == "" {
		// No key configured: seal with an ephemeral one. Sealed values do
		// not survive a restart in this mode.
		key := make([]byte, chacha20poly1305.KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		return NewCodec(key)
	}

	key, err := base64.StdEncoding.DecodeString(cfg.SecretKey)
	if err != nil {
		return nil, ErrInvalidKey
	}
	return NewCodec(key)
}
