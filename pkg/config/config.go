package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/esphome-native/esphome-go/pkg/connection"
	"github.com/esphome-native/esphome-go/pkg/wire"
)

// Errors returned by Load and Parse.
var (
	ErrNoDevices     = errors.New("no devices configured")
	ErrDuplicateName = errors.New("duplicate device name")
	ErrMissingName   = errors.New("device without name")
	ErrUnknownDevice = errors.New("unknown device")
)

// DefaultNATSPrefix is the subject prefix used when nats.prefix is empty.
const DefaultNATSPrefix = "esphome"

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	if v < 0 {
		return fmt.Errorf("line %d: negative duration %s", value.Line, s)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// File is a parsed configuration file.
type File struct {
	Defaults Defaults `yaml:"defaults"`
	Devices  []Device `yaml:"devices"`

	// MetricsAddress is the listen address of the HTTP API and /metrics.
	// Empty disables the listener.
	MetricsAddress string `yaml:"metrics_address,omitempty"`

	NATS NATS `yaml:"nats,omitempty"`

	// ProtocolLog is the path of the CBOR protocol capture file.
	ProtocolLog string `yaml:"protocol_log,omitempty"`
}

// Defaults apply to every device that does not override them.
type Defaults struct {
	// EncryptionKey is used by devices that have no key of their own.
	EncryptionKey string `yaml:"encryption_key,omitempty"`

	ConnectTimeout    Duration `yaml:"connect_timeout,omitempty"`
	ReconnectInterval Duration `yaml:"reconnect_interval,omitempty"`
	PingInterval      Duration `yaml:"ping_interval,omitempty"`
	MaxMissedPings    int      `yaml:"max_missed_pings,omitempty"`
	ClientInfo        string   `yaml:"client_info,omitempty"`
}

// Device is one configured device endpoint.
type Device struct {
	Name          string `yaml:"name"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port,omitempty"`
	EncryptionKey string `yaml:"encryption_key,omitempty"`
	ExpectedName  string `yaml:"expected_name,omitempty"`
	LogPrefix     string `yaml:"log_prefix,omitempty"`
	AllowActions  bool   `yaml:"allow_actions,omitempty"`

	// LogLevel is the device log level name; empty means no streaming.
	LogLevel string `yaml:"log_level,omitempty"`

	PingInterval      Duration `yaml:"ping_interval,omitempty"`
	ReconnectInterval Duration `yaml:"reconnect_interval,omitempty"`
}

// NATS configures the state bridge. An empty URL disables it.
type NATS struct {
	URL    string `yaml:"url,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
}

// Load reads and validates the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a configuration document. Unknown keys are
// rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks device names and converts every device once so that
// invalid settings are reported at load time. Missing hosts and keys are
// left to the connection, which reports them as device status.
func (f *File) Validate() error {
	if len(f.Devices) == 0 {
		return ErrNoDevices
	}
	var errs []error
	seen := make(map[string]bool, len(f.Devices))
	for i := range f.Devices {
		d := &f.Devices[i]
		if d.Name == "" {
			errs = append(errs, fmt.Errorf("device %d: %w", i, ErrMissingName))
			continue
		}
		if seen[d.Name] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateName, d.Name))
			continue
		}
		seen[d.Name] = true
		cfg, err := f.connectionConfig(d)
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("device %s: %w", d.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ConnectionConfig returns the connection configuration of the named
// device with defaults applied.
func (f *File) ConnectionConfig(name string) (connection.Config, error) {
	for i := range f.Devices {
		if f.Devices[i].Name == name {
			return f.connectionConfig(&f.Devices[i])
		}
	}
	return connection.Config{}, fmt.Errorf("%w: %s", ErrUnknownDevice, name)
}

// ConnectionConfigs returns the configuration of every device in file
// order.
func (f *File) ConnectionConfigs() ([]connection.Config, error) {
	out := make([]connection.Config, 0, len(f.Devices))
	for i := range f.Devices {
		cfg, err := f.connectionConfig(&f.Devices[i])
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", f.Devices[i].Name, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

// NATSPrefix returns the configured subject prefix or DefaultNATSPrefix.
func (f *File) NATSPrefix() string {
	if f.NATS.Prefix != "" {
		return f.NATS.Prefix
	}
	return DefaultNATSPrefix
}

func (f *File) connectionConfig(d *Device) (connection.Config, error) {
	level, err := wire.ParseLogLevel(d.LogLevel)
	if err != nil {
		return connection.Config{}, err
	}

	cfg := connection.DefaultConfig()
	cfg.Name = d.Name
	cfg.Host = d.Host
	if d.Port != 0 {
		cfg.Port = d.Port
	}
	cfg.EncryptionKey = d.EncryptionKey
	cfg.DefaultEncryptionKey = f.Defaults.EncryptionKey
	cfg.ExpectedName = d.ExpectedName
	cfg.LogPrefix = d.LogPrefix
	cfg.AllowActions = d.AllowActions
	cfg.DeviceLogLevel = level

	setDuration(&cfg.ConnectTimeout, f.Defaults.ConnectTimeout)
	setDuration(&cfg.ReconnectInterval, f.Defaults.ReconnectInterval, d.ReconnectInterval)
	setDuration(&cfg.PingInterval, f.Defaults.PingInterval, d.PingInterval)
	if f.Defaults.MaxMissedPings != 0 {
		cfg.MaxMissedPings = f.Defaults.MaxMissedPings
	}
	if f.Defaults.ClientInfo != "" {
		cfg.ClientInfo = f.Defaults.ClientInfo
	}
	return cfg, nil
}

// setDuration applies the last non-zero value.
func setDuration(dst *time.Duration, values ...Duration) {
	for _, v := range values {
		if v != 0 {
			*dst = time.Duration(v)
		}
	}
}
