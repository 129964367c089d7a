// Package secret provides the SecretString value type used for sensitive
// identifiers (bank account numbers, GSTIN, PAN). The computation layer only
// ever handles sealed handles; plaintext exists at the storage boundary, when
// a caller explicitly opens the value.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidKey        = errors.New("invalid_secret_key")
	ErrMalformedSealed   = errors.New("malformed_sealed_value")
	ErrDecryptionFailure = errors.New("secret_decryption_failure")
)

const sealedPrefix = "sealed:v1:"

// Codec seals and opens SecretString values with a process-wide key.
type Codec struct {
	key []byte
}

func NewCodec(key []byte) (*Codec, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	return &Codec{key: append([]byte(nil), key...)}, nil
}

// SecretString is an opaque handle to a sealed sensitive value. Its String
// and JSON representations never expose plaintext.
type SecretString struct {
	sealed string
}

func FromSealed(sealed string) SecretString {
	return SecretString{sealed: sealed}
}

func (s SecretString) Sealed() string { return s.sealed }

func (s SecretString) IsZero() bool { return s.sealed == "" }

func (s SecretString) String() string {
	if s.sealed == "" {
		return ""
	}
	return "[sealed]"
}

func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", s.sealed)), nil
}

func (s *SecretString) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return ErrMalformedSealed
	}
	s.sealed = string(data[1 : len(data)-1])
	return nil
}

// Seal encrypts plaintext into a SecretString. Empty plaintext seals to the
// zero value so optional fields stay optional.
func (c *Codec) Seal(plaintext string) (SecretString, error) {
	if plaintext == "" {
		return SecretString{}, nil
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return SecretString{}, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return SecretString{}, err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return SecretString{sealed: sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed)}, nil
}

// Open decrypts a SecretString back into plaintext. Only storage-boundary
// code (PDF rendering, notification payloads) should call this.
func (c *Codec) Open(value SecretString) (string, error) {
	if value.IsZero() {
		return "", nil
	}
	if len(value.sealed) <= len(sealedPrefix) || value.sealed[:len(sealedPrefix)] != sealedPrefix {
		return "", ErrMalformedSealed
	}

	raw, err := base64.RawStdEncoding.DecodeString(value.sealed[len(sealedPrefix):])
	if err != nil {
		return "", ErrMalformedSealed
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", ErrMalformedSealed
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailure
	}
	return string(plaintext), nil
}
