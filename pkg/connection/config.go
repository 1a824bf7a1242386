package connection

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/esphome-native/esphome-go/pkg/log"
	"github.com/esphome-native/esphome-go/pkg/noise"
	"github.com/esphome-native/esphome-go/pkg/wire"
)

// Defaults for Config.
const (
	DefaultPort              = 6053
	DefaultConnectTimeout    = 30 * time.Second
	DefaultReconnectInterval = 10 * time.Second
	DefaultPingInterval      = 10 * time.Second
	DefaultMaxMissedPings    = 4
	DefaultClientInfo        = "esphome-go"
)

// connectTaskThreshold is the slow-task warning threshold for connect tasks.
const connectTaskThreshold = 7 * time.Second

// Config describes one device endpoint. It is read at every connection
// attempt and must not be modified after New.
type Config struct {
	// Name identifies the device to the owner.
	Name string

	// Host is the device's hostname or IP address.
	Host string

	// Port is the native API port. Defaults to DefaultPort.
	Port int

	// EncryptionKey is the base64 pre-shared key. When empty,
	// DefaultEncryptionKey is used.
	EncryptionKey string

	// DefaultEncryptionKey is the fallback key shared by devices that have
	// none of their own.
	DefaultEncryptionKey string

	// ExpectedName, when set, must match the name the device announces.
	ExpectedName string

	// LogPrefix labels logs; defaults to Name.
	LogPrefix string

	// ConnectTimeout bounds each attempt from dial until CONNECTED.
	ConnectTimeout time.Duration

	// ReconnectInterval is the delay before retrying a failed attempt.
	ReconnectInterval time.Duration

	// PingInterval is the idle time after which a ping is sent.
	PingInterval time.Duration

	// MaxMissedPings is how many ping intervals may pass without a pong
	// before the connection is dropped.
	MaxMissedPings int

	// AllowActions subscribes to the device's service calls and events.
	AllowActions bool

	// DeviceLogLevel streams device logs when not LogLevelNone.
	DeviceLogLevel wire.LogLevel

	// ClientInfo is sent in the hello request.
	ClientInfo string

	// Logger is the operational logger. Nil disables logging.
	Logger *slog.Logger

	// DeviceLogger receives streamed device log lines. Defaults to Logger
	// with a logger=device attribute.
	DeviceLogger *slog.Logger

	// ProtocolLogger captures protocol events. Nil disables capture.
	ProtocolLogger log.Logger
}

// DefaultConfig returns a Config with every interval set to its default.
func DefaultConfig() Config {
	return Config{
		Port:              DefaultPort,
		ConnectTimeout:    DefaultConnectTimeout,
		ReconnectInterval: DefaultReconnectInterval,
		PingInterval:      DefaultPingInterval,
		MaxMissedPings:    DefaultMaxMissedPings,
		ClientInfo:        DefaultClientInfo,
	}
}

// Validate checks the static parts of the configuration. Host and key are
// checked by Start so a misconfigured device is reported, not rejected.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("connect timeout must be positive"))
	}
	if c.ReconnectInterval < 0 {
		errs = append(errs, errors.New("reconnect interval must not be negative"))
	}
	if c.PingInterval <= 0 {
		errs = append(errs, errors.New("ping interval must be positive"))
	}
	if c.MaxMissedPings <= 0 {
		errs = append(errs, errors.New("max missed pings must be positive"))
	}
	return errors.Join(errs...)
}

// id identifies the device in metrics and executor queues. Unlike the log
// prefix it must not be shared between devices.
func (c *Config) id() string {
	if c.Name != "" {
		return c.Name
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// prefix returns the label used in logs and capture files.
func (c *Config) prefix() string {
	if c.LogPrefix != "" {
		return c.LogPrefix
	}
	if c.Name != "" {
		return c.Name
	}
	return c.Host
}

// resolveKey returns the key for the next attempt.
func (c *Config) resolveKey() ([]byte, bool, error) {
	if c.EncryptionKey != "" {
		key, err := noise.ParseKey(c.EncryptionKey)
		return key, false, err
	}
	if c.DefaultEncryptionKey != "" {
		key, err := noise.ParseKey(c.DefaultEncryptionKey)
		return key, true, err
	}
	return nil, false, noise.ErrMissingKey
}

// pingTimeout is how long the connection tolerates missing pongs.
func (c *Config) pingTimeout() time.Duration {
	return time.Duration(c.MaxMissedPings) * c.PingInterval
}
