package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	tokenSaltSize   = 16
	tokenKeySize    = 32
	tokenIterations = 100000
)

var ErrTokenCiphertext = errors.New("stored access token cannot be decrypted")

// TokenCipher encrypts OAuth access tokens before they are written to the
// session table. The key is derived once from the configured secret.
type TokenCipher struct {
	key []byte
}

// NewTokenCipher derives the encryption key from secret and salt
func NewTokenCipher(secret, salt string) (*TokenCipher, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	saltBytes := []byte(salt)
	if len(saltBytes) < tokenSaltSize {
		sum := sha256.Sum256([]byte("threesixtyfive:" + salt))
		saltBytes = sum[:tokenSaltSize]
	}
	return &TokenCipher{
		key: pbkdf2.Key([]byte(secret), saltBytes, tokenIterations, tokenKeySize, sha256.New),
	}, nil
}

// Encrypt seals the token with AES-GCM and returns base64 text
func (c *TokenCipher) Encrypt(token string) (string, error) {
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(token), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt
func (c *TokenCipher) Decrypt(encoded string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenCiphertext, err)
	}

	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrTokenCiphertext)
	}

	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenCiphertext, err)
	}
	return string(plain), nil
}

func (c *TokenCipher) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
