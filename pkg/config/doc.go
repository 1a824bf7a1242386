// Package config loads the YAML configuration of esphome-ctl.
//
// A configuration file lists the devices to connect to and the shared
// settings applied to all of them:
//
//	defaults:
//	  encryption_key: "bOFFzzvfpg5DB94DuBGLXD/hMnhpDKgP9UQyBulwWVU="
//	  ping_interval: 10s
//	  reconnect_interval: 10s
//	devices:
//	  - name: kitchen
//	    host: kitchen.local
//	    allow_actions: true
//	    log_level: info
//	metrics_address: ":9090"
//	nats:
//	  url: nats://localhost:4222
//	  prefix: esphome
//	protocol_log: /var/log/esphome/protocol.cbor
//
// Durations are Go duration strings. Zero values fall back to the
// connection package defaults.
package config
