package noise

import (
	"bytes"
	"errors"
	"testing"
)

var testPSK = bytes.Repeat([]byte{0x42}, KeySize)

func handshakePair(t *testing.T, initPSK, respPSK []byte) (*HandshakeState, *HandshakeState) {
	t.Helper()
	i, err := NewInitiator(initPSK, Prologue)
	if err != nil {
		t.Fatalf("NewInitiator failed: %v", err)
	}
	r, err := NewResponder(respPSK, Prologue)
	if err != nil {
		t.Fatalf("NewResponder failed: %v", err)
	}
	return i, r
}

func TestHandshakeEstablishesSession(t *testing.T) {
	i, r := handshakePair(t, testPSK, testPSK)

	msg1, err := i.WriteMessage(nil)
	if err != nil {
		t.Fatalf("initiator WriteMessage failed: %v", err)
	}
	if len(msg1) != DHLen+TagSize {
		t.Errorf("message 1 length = %d, want %d", len(msg1), DHLen+TagSize)
	}
	if _, err := r.ReadMessage(msg1); err != nil {
		t.Fatalf("responder ReadMessage failed: %v", err)
	}

	msg2, err := r.WriteMessage(nil)
	if err != nil {
		t.Fatalf("responder WriteMessage failed: %v", err)
	}
	if _, err := i.ReadMessage(msg2); err != nil {
		t.Fatalf("initiator ReadMessage failed: %v", err)
	}

	if !i.Complete() || !r.Complete() {
		t.Fatal("handshake not complete on both sides")
	}
	if !bytes.Equal(i.HandshakeHash(), r.HandshakeHash()) {
		t.Error("handshake hashes differ")
	}

	iSend, iRecv, err := i.Split()
	if err != nil {
		t.Fatalf("initiator Split failed: %v", err)
	}
	rSend, rRecv, err := r.Split()
	if err != nil {
		t.Fatalf("responder Split failed: %v", err)
	}

	for n := 0; n < 3; n++ {
		ct, err := iSend.Encrypt(nil, []byte("ping"))
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		pt, err := rRecv.Decrypt(nil, ct)
		if err != nil {
			t.Fatalf("Decrypt #%d failed: %v", n, err)
		}
		if string(pt) != "ping" {
			t.Errorf("plaintext = %q, want %q", pt, "ping")
		}
	}

	ct, err := rSend.Encrypt(nil, []byte("pong"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	pt, err := iRecv.Decrypt(nil, ct)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if string(pt) != "pong" {
		t.Errorf("plaintext = %q, want %q", pt, "pong")
	}
}

func TestHandshakeWrongKey(t *testing.T) {
	other := bytes.Repeat([]byte{0x17}, KeySize)
	i, r := handshakePair(t, testPSK, other)

	msg1, err := i.WriteMessage(nil)
	if err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	if _, err := r.ReadMessage(msg1); !errors.Is(err, ErrHandshakeMAC) {
		t.Errorf("ReadMessage error = %v, want ErrHandshakeMAC", err)
	}
}

func TestHandshakePrologueMismatch(t *testing.T) {
	i, err := NewInitiator(testPSK, Prologue)
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewResponder(testPSK, []byte("other"))
	if err != nil {
		t.Fatal(err)
	}
	msg1, _ := i.WriteMessage(nil)
	if _, err := r.ReadMessage(msg1); !errors.Is(err, ErrHandshakeMAC) {
		t.Errorf("ReadMessage error = %v, want ErrHandshakeMAC", err)
	}
}

func TestHandshakeOrdering(t *testing.T) {
	i, r := handshakePair(t, testPSK, testPSK)

	if _, err := r.WriteMessage(nil); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("responder first write error = %v, want ErrOutOfOrder", err)
	}
	if _, err := i.ReadMessage(make([]byte, 48)); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("initiator first read error = %v, want ErrOutOfOrder", err)
	}
	if _, _, err := i.Split(); !errors.Is(err, ErrNotComplete) {
		t.Errorf("Split error = %v, want ErrNotComplete", err)
	}
	if _, err := r.ReadMessage([]byte{1, 2, 3}); !errors.Is(err, ErrShortMessage) {
		t.Errorf("short read error = %v, want ErrShortMessage", err)
	}
}

func TestCipherRejectsTamperedFrame(t *testing.T) {
	key := bytes.Repeat([]byte{1}, KeySize)
	enc, _ := newCipherState(key)
	dec, _ := newCipherState(key)

	ct, err := enc.Encrypt(nil, []byte("state"))
	if err != nil {
		t.Fatal(err)
	}
	ct[0] ^= 0xFF
	if _, err := dec.Decrypt(nil, ct); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Decrypt error = %v, want ErrDecrypt", err)
	}
	if dec.Nonce() != 0 {
		t.Errorf("nonce advanced on failure: %d", dec.Nonce())
	}
}

func TestCipherNonceAdvances(t *testing.T) {
	key := bytes.Repeat([]byte{1}, KeySize)
	c, _ := newCipherState(key)
	a, _ := c.Encrypt(nil, []byte("x"))
	b, _ := c.Encrypt(nil, []byte("x"))
	if bytes.Equal(a, b) {
		t.Error("same ciphertext for two messages; nonce did not advance")
	}
	if c.Nonce() != 2 {
		t.Errorf("Nonce() = %d, want 2", c.Nonce())
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"valid", "QkJCQkJCQkJCQkJCQkJCQkJCQkJCQkJCQkJCQkJCQkI=", nil},
		{"empty", "", ErrMissingKey},
		{"not base64", "not*base64", ErrInvalidKey},
		{"short", "QkJC", ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParseKey(tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ParseKey error = %v, want %v", err, tt.want)
			}
			if tt.want == nil && !bytes.Equal(key, testPSK) {
				t.Errorf("key = %x, want %x", key, testPSK)
			}
		})
	}
}

func TestGenerateKeyParses(t *testing.T) {
	s, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	if _, err := ParseKey(s); err != nil {
		t.Errorf("ParseKey(GenerateKey()) failed: %v", err)
	}
}
