package log

// Logger receives protocol events. Implementations must be safe for
// concurrent use and must not block for long; connections log from their
// I/O goroutines.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards events. The zero value is ready to use.
type NoopLogger struct{}

// Log does nothing.
func (NoopLogger) Log(Event) {}

// MultiLogger fans events out to several loggers in order.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger. Nil loggers are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// Log passes event to every attached logger in order.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Len returns the number of attached loggers.
func (m *MultiLogger) Len() int {
	return len(m.loggers)
}

// DeviceLogger stamps every event with a device name before passing it on.
type DeviceLogger struct {
	next   Logger
	device string
}

// WithDevice wraps next so events carry device. A nil next yields nil.
func WithDevice(next Logger, device string) Logger {
	if next == nil {
		return nil
	}
	return &DeviceLogger{next: next, device: device}
}

// Log sets the device on events that carry none and forwards them.
func (d *DeviceLogger) Log(event Event) {
	if event.Device == "" {
		event.Device = d.device
	}
	d.next.Log(event)
}

// Compile-time interface satisfaction checks.
var (
	_ Logger = NoopLogger{}
	_ Logger = (*MultiLogger)(nil)
	_ Logger = (*DeviceLogger)(nil)
)
