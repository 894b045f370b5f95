package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize          = 32 // AES-256
	nonceSize        = 12 // GCM standard nonce size
	saltSize         = 16
	secretSize       = 32
	pbkdf2Iterations = 100000
)

var errCorrupt = errors.New("decryption failed: invalid key or corrupted data")

// sealer encrypts tokens at rest with a key derived from a machine-local secret
type sealer struct {
	aead cipher.AEAD
}

func newSealer(secret, salt []byte) (*sealer, error) {
	key := pbkdf2.Key(secret, salt, pbkdf2Iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &sealer{aead: gcm}, nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// seal returns base64(nonce || ciphertext)
func (s *sealer) seal(plaintext []byte) (string, error) {
	nonce, err := randomBytes(nonceSize)
	if err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *sealer) open(sealed string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, errCorrupt
	}
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	plaintext, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, errCorrupt
	}
	return plaintext, nil
}

// loadSecret reads the secret file, creating it on first use
func loadSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil && len(data) == secretSize {
		return data, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	secret, err := randomBytes(secretSize)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create secret directory: %w", err)
	}
	if err := os.WriteFile(path, secret, 0600); err != nil {
		return nil, fmt.Errorf("failed to write secret: %w", err)
	}
	return secret, nil
}
