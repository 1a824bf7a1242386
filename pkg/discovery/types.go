package discovery

import (
	"errors"
	"net"
	"strings"
	"time"

	"github.com/esphome-native/esphome-go/pkg/connection"
)

const (
	// ServiceType is the DNS-SD service type devices announce.
	ServiceType = "_esphomelib._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// BrowseTimeout is the default duration of a one-shot browse.
	BrowseTimeout = 5 * time.Second
)

// TXT record keys.
const (
	TXTKeyFriendlyName   = "friendly_name"
	TXTKeyVersion        = "version"
	TXTKeyMAC            = "mac"
	TXTKeyPlatform       = "platform"
	TXTKeyBoard          = "board"
	TXTKeyNetwork        = "network"
	TXTKeyAPIEncryption  = "api_encryption"
	TXTKeyProjectName    = "project_name"
	TXTKeyProjectVersion = "project_version"
)

// NoiseEncryption is the api_encryption value of devices using the Noise
// protocol.
const NoiseEncryption = "Noise_NNpsk0_25519_ChaChaPoly_SHA256"

// Errors.
var (
	ErrNotFound         = errors.New("device not found")
	ErrInvalidTXTRecord = errors.New("invalid TXT record")
)

// Device is one announced device. Addresses from every interface the
// announcement arrived on are merged.
type Device struct {
	// Name is the DNS-SD instance name (the node name).
	Name string `json:"name"`

	// Host is the advertised host name without the trailing dot.
	Host string `json:"host"`

	Port      int      `json:"port"`
	Addresses []string `json:"addresses,omitempty"`

	Info
}

// Info is the metadata decoded from the TXT records.
type Info struct {
	FriendlyName   string `json:"friendly_name,omitempty"`
	Version        string `json:"version,omitempty"`
	MAC            string `json:"mac,omitempty"`
	Platform       string `json:"platform,omitempty"`
	Board          string `json:"board,omitempty"`
	Network        string `json:"network,omitempty"`
	APIEncryption  string `json:"api_encryption,omitempty"`
	ProjectName    string `json:"project_name,omitempty"`
	ProjectVersion string `json:"project_version,omitempty"`
}

// Encrypted reports whether the device requires the Noise protocol.
func (d *Device) Encrypted() bool {
	return d.APIEncryption != ""
}

// Address returns the address to dial: the first IPv4 address, else the
// first address, else the host name.
func (d *Device) Address() string {
	for _, a := range d.Addresses {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a
		}
	}
	if len(d.Addresses) > 0 {
		return d.Addresses[0]
	}
	return d.Host
}

// Config returns a connection configuration for the device. The caller
// supplies the encryption key.
func (d *Device) Config() connection.Config {
	cfg := connection.DefaultConfig()
	cfg.Name = d.Name
	cfg.Host = d.Address()
	if d.Port > 0 {
		cfg.Port = d.Port
	}
	cfg.ExpectedName = d.Name
	return cfg
}

func trimHost(h string) string {
	return strings.TrimSuffix(h, ".")
}
