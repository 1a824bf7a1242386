// Package discovery finds devices on the local network via mDNS/DNS-SD.
//
// Devices announce the _esphomelib._tcp service. The instance name is the
// node name, which is also the name the device reports in its handshake.
// TXT records carry descriptive metadata:
//
//   - friendly_name: user-facing name
//   - version: firmware version
//   - mac: MAC address, lower-case hex without separators
//   - platform, board: hardware description
//   - network: wifi or ethernet
//   - api_encryption: the Noise protocol name when encryption is required
//   - project_name, project_version: optional project metadata
//
// A device without api_encryption accepts only the plaintext protocol and
// cannot be used by this module.
package discovery
