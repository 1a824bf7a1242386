// Package log captures protocol events of device connections.
//
// Protocol capture is separate from operational logging (slog): it records
// a machine-readable trace of every frame, decoded message, state change
// and error of a connection so sessions can be replayed and inspected
// after the fact with `esphome-ctl log`.
//
// Connections accept a Logger in their configuration:
//
//	// Development: mirror events into the console logger.
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Production: append to a capture file.
//	fl, _ := log.NewFileLogger("/var/lib/esphome/kitchen.elog")
//	cfg.ProtocolLogger = fl
//
//	// Both.
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// Capture files are a sequence of CBOR-encoded Events with integer keys.
// Reader iterates them, optionally through a Filter.
package log
