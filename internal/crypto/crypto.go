// Package crypto encrypts sensitive column values at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Prefix marks values produced by Encrypt. Values without it predate
// encryption being enabled and are returned unchanged by Decrypt.
const Prefix = "enc:v1:"

// FieldEncryptor handles AES-256-GCM encryption of individual column values
// such as OAuth tokens and passport numbers.
type FieldEncryptor struct {
	gcm cipher.AEAD
}

// NewFieldEncryptor creates a FieldEncryptor with the provided base64-encoded key.
// The key must be exactly 32 bytes (AES-256) after base64 decoding.
func NewFieldEncryptor(base64Key string) (*FieldEncryptor, error) {
	if base64Key == "" {
		return nil, fmt.Errorf("encryption key is required")
	}

	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}

	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes for AES-256, got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM mode: %w", err)
	}

	return &FieldEncryptor{gcm: gcm}, nil
}

// Encrypt returns Prefix + base64(nonce || ciphertext). Empty input stays empty.
func (e *FieldEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := e.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// IsEncrypted reports whether v was produced by Encrypt.
func IsEncrypted(v string) bool {
	return strings.HasPrefix(v, Prefix)
}

// Decrypt reverses Encrypt. Unprefixed values are legacy plaintext.
func (e *FieldEncryptor) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonceSize := e.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}
