package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// TokenCipher seals GitHub access tokens before they reach the store, so a
// leaked document (a Gist, a SQLite file) does not leak credentials.
//
// XChaCha20-Poly1305 is used for its 24-byte nonce, which is safe to pick at
// random for every seal. The output is base64(nonce || ciphertext).
type TokenCipher struct {
	key []byte
}

// NewTokenCipher takes a 32-byte key encoded as 64 hex characters.
func NewTokenCipher(hexKey string) (*TokenCipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("auth: token encryption key is not hex: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("auth: token encryption key must be %d bytes (%d hex chars), got %d bytes",
			chacha20poly1305.KeySize, chacha20poly1305.KeySize*2, len(key))
	}
	return &TokenCipher{key: key}, nil
}

// GenerateKey returns a fresh random key in the form NewTokenCipher accepts.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("auth: generating key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Seal encrypts plaintext.
func (c *TokenCipher) Seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("auth: creating cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("auth: generating nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal with the same key.
func (c *TokenCipher) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("auth: decoding sealed token: %w", err)
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("auth: creating cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("auth: sealed token too short")
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("auth: opening sealed token: %w", err)
	}
	return string(plaintext), nil
}
