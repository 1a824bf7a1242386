// Package transport implements the encrypted frame transport of the
// ESPHome native API.
//
// Every frame on the socket is
//
//	[0x01][uint16 big-endian payload length][payload]
//
// A connection starts with the client hello (an empty frame) and the first
// Noise handshake message. The device answers with a server hello naming
// itself, then with its handshake message. From then on every payload is a
// ChaCha20-Poly1305 ciphertext of one wire packet.
//
// Transport owns one socket and one reader goroutine. Decoded packets and
// failures are reported to a Listener, optionally through an Executor so
// the listener sees them in order on a queue shared with other work for the
// same device. After the first failure signal nothing more is delivered.
package transport
