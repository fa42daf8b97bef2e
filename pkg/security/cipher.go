package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const sealedPrefix = "v1:"

var ErrDecrypt = errors.New("message decryption failed")

// MessageCipher seals order chat bodies at rest with XChaCha20-Poly1305.
// A nil key yields a pass-through cipher, used in development.
type MessageCipher struct {
	key []byte
}

func NewMessageCipher(key []byte) (*MessageCipher, error) {
	if key == nil {
		return &MessageCipher{}, nil
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("message key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &MessageCipher{key: append([]byte(nil), key...)}, nil
}

// Enabled reports whether bodies are actually encrypted.
func (c *MessageCipher) Enabled() bool {
	return c != nil && len(c.key) > 0
}

// Seal encrypts plain. Empty input stays empty.
func (c *MessageCipher) Seal(plain string) (string, error) {
	if !c.Enabled() || plain == "" {
		return plain, nil
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plain), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Values without the sealed prefix are returned unchanged so
// rows written before encryption was enabled stay readable.
func (c *MessageCipher) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	if !c.Enabled() {
		return "", ErrDecrypt
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", ErrDecrypt
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrDecrypt
	}
	nonce, body := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
