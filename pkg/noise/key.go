package noise

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// KeySize is the size of the pre-shared key in bytes.
const KeySize = 32

// Key errors.
var (
	ErrMissingKey = errors.New("encryption key is missing")
	ErrInvalidKey = errors.New("encryption key must be 32 bytes of base64")
)

// ParseKey decodes a base64 pre-shared key.
func ParseKey(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrMissingKey
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(key))
	}
	return key, nil
}

// GenerateKey returns a new random key in its base64 text form.
func GenerateKey() (string, error) {
	return generateKey(rand.Reader)
}

func generateKey(r io.Reader) (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
