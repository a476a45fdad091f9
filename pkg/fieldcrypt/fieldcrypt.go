// Package fieldcrypt seals individual column values before they are written to
// a blob store and opens them again on read-back.
package fieldcrypt

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// prefix marks sealed values so plaintext rows written by older variants
// still read back unchanged. Clear values that would collide with the marker
// are stored behind rawPrefix instead.
const (
	prefix    = "enc:v1:"
	rawPrefix = "enc:raw:"
	namespace = "enc:"
)

var hkdfInfo = []byte("curso-asistencia field encryption")

// ErrMalformed is returned when a sealed value cannot be decoded.
var ErrMalformed = errors.New("fieldcrypt: malformed sealed value")

// Cipher seals and opens string values with XChaCha20-Poly1305. A nil
// *Cipher stores values in clear so callers can disable encryption by config.
type Cipher struct {
	aead cipher.AEAD
}

// New derives a 256-bit key from the process-wide secret. An empty secret
// returns a nil Cipher.
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, nil
	}
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, hkdfInfo)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive field key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init field cipher: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Enabled reports whether values are actually sealed.
func (c *Cipher) Enabled() bool {
	return c != nil && c.aead != nil
}

// Seal encrypts value. Empty strings stay empty so "required field" checks
// on read-back behave the same with and without encryption. Without a secret,
// values inside the marker namespace are escaped rather than stored verbatim.
func (c *Cipher) Seal(value string) (string, error) {
	if value == "" {
		return value, nil
	}
	if !c.Enabled() {
		if strings.HasPrefix(value, namespace) {
			return rawPrefix + value, nil
		}
		return value, nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	payload := c.aead.Seal(nonce, nonce, []byte(value), nil)
	return prefix + base64.RawURLEncoding.EncodeToString(payload), nil
}

// Open decrypts a value produced by Seal. Unsealed values are returned as-is.
func (c *Cipher) Open(value string) (string, error) {
	if strings.HasPrefix(value, rawPrefix) {
		return strings.TrimPrefix(value, rawPrefix), nil
	}
	if !IsSealed(value) {
		return value, nil
	}
	if !c.Enabled() {
		return "", fmt.Errorf("fieldcrypt: sealed value but no secret configured")
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	n := c.aead.NonceSize()
	if len(payload) < n {
		return "", ErrMalformed
	}
	plain, err := c.aead.Open(nil, payload[:n], payload[n:], nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(plain), nil
}

// IsSealed reports whether value carries the sealed-value prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, prefix)
}
