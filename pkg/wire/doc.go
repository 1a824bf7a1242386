// Package wire defines the message layer of the ESPHome native API.
//
// A decrypted transport frame carries exactly one packet:
//
//	[varint message type][varint body length][body]
//
// Bodies are protobuf records. Protocol-management messages (hello, login,
// ping, device info, logs, Home Assistant services and states) have concrete
// Go types. Entity messages (enumeration, state, command) share generic
// record types whose well-known fields are decoded and whose remaining
// fields are kept as an opaque Fields list.
//
// # Registry
//
// A Registry maps message type codes to factories. Decoding a type that is
// not registered yields an *Unknown message instead of an error, so a newer
// device can never break the connection by sending something new.
//
// Default is the process-wide registry holding every message this package
// knows about. It is read-only after package initialization.
package wire
