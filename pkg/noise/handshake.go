package noise

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// ProtocolName identifies the handshake pattern and primitives.
const ProtocolName = "Noise_NNpsk0_25519_ChaChaPoly_SHA256"

// Prologue is mixed into the handshake hash by both sides.
var Prologue = []byte("NoiseAPIInit\x00\x00")

// DHLen is the size of an X25519 public key.
const DHLen = 32

// Handshake errors.
var (
	ErrOutOfOrder    = errors.New("handshake message out of order")
	ErrShortMessage  = errors.New("handshake message too short")
	ErrNotComplete   = errors.New("handshake not complete")
	ErrHandshakeMAC  = errors.New("handshake authentication failed")
	ErrInvalidPublic = errors.New("invalid peer public key")
)

type symmetricState struct {
	ck [sha256.Size]byte
	h  [sha256.Size]byte
	cs *CipherState
}

func newSymmetricState(prologue []byte) symmetricState {
	var ss symmetricState
	if len(ProtocolName) <= sha256.Size {
		copy(ss.h[:], ProtocolName)
	} else {
		ss.h = sha256.Sum256([]byte(ProtocolName))
	}
	ss.ck = ss.h
	ss.mixHash(prologue)
	return ss
}

func (ss *symmetricState) mixHash(data []byte) {
	d := sha256.New()
	d.Write(ss.h[:])
	d.Write(data)
	d.Sum(ss.h[:0])
}

// Noise HKDF is RFC 5869 with the chaining key as salt and no info.
func (ss *symmetricState) hkdf(ikm []byte, outputs int) ([][]byte, error) {
	r := hkdf.New(sha256.New, ikm, ss.ck[:], nil)
	out := make([][]byte, outputs)
	for i := range out {
		out[i] = make([]byte, sha256.Size)
		if _, err := io.ReadFull(r, out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (ss *symmetricState) mixKey(ikm []byte) error {
	out, err := ss.hkdf(ikm, 2)
	if err != nil {
		return err
	}
	copy(ss.ck[:], out[0])
	ss.cs, err = newCipherState(out[1])
	return err
}

func (ss *symmetricState) mixKeyAndHash(ikm []byte) error {
	out, err := ss.hkdf(ikm, 3)
	if err != nil {
		return err
	}
	copy(ss.ck[:], out[0])
	ss.mixHash(out[1])
	ss.cs, err = newCipherState(out[2])
	return err
}

func (ss *symmetricState) encryptAndHash(plaintext []byte) ([]byte, error) {
	if ss.cs == nil {
		ss.mixHash(plaintext)
		return plaintext, nil
	}
	ct, err := ss.cs.Encrypt(ss.h[:], plaintext)
	if err != nil {
		return nil, err
	}
	ss.mixHash(ct)
	return ct, nil
}

func (ss *symmetricState) decryptAndHash(ciphertext []byte) ([]byte, error) {
	if ss.cs == nil {
		ss.mixHash(ciphertext)
		return ciphertext, nil
	}
	pt, err := ss.cs.Decrypt(ss.h[:], ciphertext)
	if err != nil {
		return nil, ErrHandshakeMAC
	}
	ss.mixHash(ciphertext)
	return pt, nil
}

func (ss *symmetricState) split() (*CipherState, *CipherState, error) {
	out, err := ss.hkdf(nil, 2)
	if err != nil {
		return nil, nil, err
	}
	c1, err := newCipherState(out[0])
	if err != nil {
		return nil, nil, err
	}
	c2, err := newCipherState(out[1])
	if err != nil {
		return nil, nil, err
	}
	return c1, c2, nil
}

type keyPair struct {
	private []byte
	public  []byte
}

func generateKeyPair(r io.Reader) (keyPair, error) {
	priv := make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(r, priv); err != nil {
		return keyPair{}, err
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return keyPair{}, err
	}
	return keyPair{private: priv, public: pub}, nil
}

// HandshakeState runs one side of the NNpsk0 handshake.
type HandshakeState struct {
	ss        symmetricState
	psk       []byte
	initiator bool
	rand      io.Reader

	e  keyPair
	re []byte

	step int
}

// Option configures a HandshakeState.
type Option func(*HandshakeState)

// WithRandom sets the entropy source for the ephemeral key.
func WithRandom(r io.Reader) Option {
	return func(hs *HandshakeState) { hs.rand = r }
}

// NewInitiator creates the client side of the handshake.
func NewInitiator(psk, prologue []byte, opts ...Option) (*HandshakeState, error) {
	return newHandshake(true, psk, prologue, opts)
}

// NewResponder creates the device side of the handshake.
func NewResponder(psk, prologue []byte, opts ...Option) (*HandshakeState, error) {
	return newHandshake(false, psk, prologue, opts)
}

func newHandshake(initiator bool, psk, prologue []byte, opts []Option) (*HandshakeState, error) {
	if len(psk) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(psk))
	}
	hs := &HandshakeState{
		ss:        newSymmetricState(prologue),
		psk:       append([]byte(nil), psk...),
		initiator: initiator,
		rand:      rand.Reader,
	}
	for _, opt := range opts {
		opt(hs)
	}
	return hs, nil
}

// Complete reports whether both handshake messages have been processed.
func (hs *HandshakeState) Complete() bool {
	return hs.step == 2
}

// WriteMessage produces the next outgoing handshake message carrying payload.
func (hs *HandshakeState) WriteMessage(payload []byte) ([]byte, error) {
	if hs.initiator != (hs.step == 0) || hs.step > 1 {
		return nil, ErrOutOfOrder
	}

	var err error
	if hs.e, err = generateKeyPair(hs.rand); err != nil {
		return nil, err
	}

	if hs.step == 0 {
		// -> psk, e
		if err := hs.ss.mixKeyAndHash(hs.psk); err != nil {
			return nil, err
		}
		if err := hs.mixEphemeral(hs.e.public); err != nil {
			return nil, err
		}
	} else {
		// <- e, ee
		if err := hs.mixEphemeral(hs.e.public); err != nil {
			return nil, err
		}
		if err := hs.mixDH(); err != nil {
			return nil, err
		}
	}

	ct, err := hs.ss.encryptAndHash(payload)
	if err != nil {
		return nil, err
	}
	hs.step++

	msg := make([]byte, 0, DHLen+len(ct))
	msg = append(msg, hs.e.public...)
	return append(msg, ct...), nil
}

// ReadMessage consumes the next incoming handshake message and returns its payload.
func (hs *HandshakeState) ReadMessage(msg []byte) ([]byte, error) {
	if hs.initiator != (hs.step == 1) || hs.step > 1 {
		return nil, ErrOutOfOrder
	}
	if len(msg) < DHLen {
		return nil, ErrShortMessage
	}
	hs.re = append([]byte(nil), msg[:DHLen]...)

	if hs.step == 0 {
		if err := hs.ss.mixKeyAndHash(hs.psk); err != nil {
			return nil, err
		}
		if err := hs.mixEphemeral(hs.re); err != nil {
			return nil, err
		}
	} else {
		if err := hs.mixEphemeral(hs.re); err != nil {
			return nil, err
		}
		if err := hs.mixDH(); err != nil {
			return nil, err
		}
	}

	payload, err := hs.ss.decryptAndHash(msg[DHLen:])
	if err != nil {
		return nil, err
	}
	hs.step++
	return payload, nil
}

// In psk handshakes every ephemeral public key is also mixed into the key.
func (hs *HandshakeState) mixEphemeral(pub []byte) error {
	hs.ss.mixHash(pub)
	return hs.ss.mixKey(pub)
}

func (hs *HandshakeState) mixDH() error {
	shared, err := curve25519.X25519(hs.e.private, hs.re)
	if err != nil {
		return ErrInvalidPublic
	}
	return hs.ss.mixKey(shared)
}

// Split returns the session ciphers once the handshake is complete.
// send protects outgoing frames and recv opens incoming ones.
func (hs *HandshakeState) Split() (send, recv *CipherState, err error) {
	if !hs.Complete() {
		return nil, nil, ErrNotComplete
	}
	c1, c2, err := hs.ss.split()
	if err != nil {
		return nil, nil, err
	}
	if hs.initiator {
		return c1, c2, nil
	}
	return c2, c1, nil
}

// HandshakeHash returns the transcript hash, equal on both sides after completion.
func (hs *HandshakeState) HandshakeHash() []byte {
	return append([]byte(nil), hs.ss.h[:]...)
}
