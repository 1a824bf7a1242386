// Package noise implements the Noise_NNpsk0_25519_ChaChaPoly_SHA256
// handshake used by the ESPHome native API, and the cipher states that
// protect the session afterwards.
//
// The handshake has two messages:
//
//	-> psk, e
//	<- e, ee
//
// Both sides hold the same 32-byte pre-shared key. A wrong key makes the
// responder fail to authenticate message 1 (or the initiator fail on
// message 2), so a key mismatch is always detected before any application
// data is exchanged.
//
// The construction follows the Noise Protocol Framework revision 34 and is
// built directly on golang.org/x/crypto primitives.
package noise
