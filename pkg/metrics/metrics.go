// Package metrics exposes Prometheus collectors for device connections.
//
// All recording methods are safe on a nil *Metrics, so components can take
// an optional collector without guarding every call.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace defaults to "esphome".
	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels

	// Buckets for the task duration histogram. Defaults to prometheus.DefBuckets.
	Buckets []float64

	// Registry defaults to prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Option configures Config.
type Option func(*Config)

func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

func WithSubsystem(subsystem string) Option {
	return func(c *Config) { c.Subsystem = subsystem }
}

func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// WithRegistry registers the collectors with registry instead of the default registerer.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

func defaultConfig() Config {
	return Config{
		Namespace: "esphome",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the connection collectors.
type Metrics struct {
	connectionState *prometheus.GaugeVec
	transitions     *prometheus.CounterVec
	reconnects      *prometheus.CounterVec
	disconnects     *prometheus.CounterVec
	frames          *prometheus.CounterVec
	frameBytes      *prometheus.CounterVec
	pingsSent       *prometheus.CounterVec
	pongs           *prometheus.CounterVec
	unsupported     *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}

	return &Metrics{
		connectionState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connection_state",
			Help:        "Current connection state, 1 for the active state label",
			ConstLabels: config.ConstLabels,
		}, []string{"device", "state"}),
		transitions: counter("state_transitions_total", "Connection state transitions", "device", "from", "to"),
		reconnects:  counter("reconnects_scheduled_total", "Reconnection attempts scheduled", "device"),
		disconnects: counter("disconnects_total", "Disconnections by error class", "device", "class"),
		frames:      counter("frames_total", "Transport frames by direction", "device", "direction"),
		frameBytes:  counter("frame_bytes_total", "Transport frame bytes by direction", "device", "direction"),
		pingsSent:   counter("pings_sent_total", "Keepalive pings sent", "device"),
		pongs:       counter("pongs_received_total", "Keepalive pongs received", "device"),
		unsupported: counter("unsupported_messages_total", "Messages without a handler", "device", "type"),
		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "scheduled_task_duration_seconds",
			Help:        "Run time of scheduled tasks",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"task"}),
	}
}

// StateChanged records a transition and moves the state gauge.
func (m *Metrics) StateChanged(device, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(device, from, to).Inc()
	if from != "" {
		m.connectionState.WithLabelValues(device, from).Set(0)
	}
	m.connectionState.WithLabelValues(device, to).Set(1)
}

func (m *Metrics) ReconnectScheduled(device string) {
	if m == nil {
		return
	}
	m.reconnects.WithLabelValues(device).Inc()
}

func (m *Metrics) Disconnected(device, class string) {
	if m == nil {
		return
	}
	m.disconnects.WithLabelValues(device, class).Inc()
}

// Frame records one frame of size bytes; direction is "in" or "out".
func (m *Metrics) Frame(device, direction string, size int) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(device, direction).Inc()
	m.frameBytes.WithLabelValues(device, direction).Add(float64(size))
}

func (m *Metrics) PingSent(device string) {
	if m == nil {
		return
	}
	m.pingsSent.WithLabelValues(device).Inc()
}

func (m *Metrics) PongReceived(device string) {
	if m == nil {
		return
	}
	m.pongs.WithLabelValues(device).Inc()
}

func (m *Metrics) UnsupportedMessage(device, msgType string) {
	if m == nil {
		return
	}
	m.unsupported.WithLabelValues(device, msgType).Inc()
}

// ObserveTask implements sched.TaskObserver.
func (m *Metrics) ObserveTask(name string, d time.Duration) {
	if m == nil {
		return
	}
	m.taskDuration.WithLabelValues(name).Observe(d.Seconds())
}

// Forget drops every series of device, used when a device is removed.
func (m *Metrics) Forget(device string) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"device": device}
	m.connectionState.DeletePartialMatch(labels)
	m.transitions.DeletePartialMatch(labels)
	m.reconnects.DeletePartialMatch(labels)
	m.disconnects.DeletePartialMatch(labels)
	m.frames.DeletePartialMatch(labels)
	m.frameBytes.DeletePartialMatch(labels)
	m.pingsSent.DeletePartialMatch(labels)
	m.pongs.DeletePartialMatch(labels)
	m.unsupported.DeletePartialMatch(labels)
}
