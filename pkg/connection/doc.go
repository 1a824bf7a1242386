// Package connection drives one device connection through its lifecycle.
//
// A Connection owns the encrypted transport, the connect-timeout and
// keepalive timers, and the pending reconnection attempt. Every change to
// its state happens under a single mutex, so a keepalive timeout and an
// inbound disconnect request can never both close the same transport.
//
// # States
//
//	UNINITIALIZED -> CONNECTING -> HELLO_SENT -> CONNECTED
//
// CONNECTING covers the socket and the Noise handshake. Once the cipher
// session is up the hello and login requests are sent back to back and the
// state moves to HELLO_SENT. The hello response moves it to CONNECTED, after
// which the device is interrogated: device info, entity enumeration, and
// finally a state subscription once enumeration is done.
//
// # Failure Handling
//
// Communication errors (timeouts, stream end, undecodable frames, missed
// pongs) close the transport and schedule one reconnection after a fixed
// interval. Configuration errors (missing key, rejected handshake, invalid
// password) close the transport and wait for corrected configuration.
// Protocol and unsupported-message errors never tear the connection down.
//
// # Timers
//
// Each timer is armed through a handle stored on the Connection. Arming a
// timer cancels the previous one, and a task that finds its handle replaced
// does nothing, so a canceled task that was already running cannot act on a
// newer connection attempt.
package connection
