package noise

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"math"

	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher errors.
var (
	ErrDecrypt        = errors.New("message authentication failed")
	ErrNonceExhausted = errors.New("cipher nonce exhausted")
)

// TagSize is the authentication tag appended to every ciphertext.
const TagSize = chacha20poly1305.Overhead

// CipherState encrypts or decrypts one direction of a session.
// It is not safe for concurrent use; callers serialize access.
type CipherState struct {
	aead  cipher.AEAD
	nonce uint64
}

func newCipherState(key []byte) (*CipherState, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &CipherState{aead: aead}, nil
}

// Nonce returns the counter that the next operation will use.
func (c *CipherState) Nonce() uint64 {
	return c.nonce
}

// Encrypt seals plaintext with ad and advances the nonce.
func (c *CipherState) Encrypt(ad, plaintext []byte) ([]byte, error) {
	if c.nonce == math.MaxUint64 {
		return nil, ErrNonceExhausted
	}
	out := c.aead.Seal(nil, c.nonceBytes(), plaintext, ad)
	c.nonce++
	return out, nil
}

// Decrypt opens ciphertext with ad. The nonce advances only on success.
func (c *CipherState) Decrypt(ad, ciphertext []byte) ([]byte, error) {
	if c.nonce == math.MaxUint64 {
		return nil, ErrNonceExhausted
	}
	out, err := c.aead.Open(nil, c.nonceBytes(), ciphertext, ad)
	if err != nil {
		return nil, ErrDecrypt
	}
	c.nonce++
	return out, nil
}

// 32 zero bits followed by the little-endian counter.
func (c *CipherState) nonceBytes() []byte {
	var n [chacha20poly1305.NonceSize]byte
	binary.LittleEndian.PutUint64(n[4:], c.nonce)
	return n[:]
}
