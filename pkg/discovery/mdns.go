package discovery

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"slices"
	"sort"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// ErrStopped is returned by Browse after Stop.
var ErrStopped = errors.New("browser stopped")

// BrowserConfig configures a Browser.
type BrowserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// IncludePlaintext also reports devices that do not announce
	// api_encryption.
	IncludePlaintext bool

	// Logger for ignored announcements. Nil disables logging.
	Logger *slog.Logger
}

// Browser browses for devices using zeroconf.
type Browser struct {
	config BrowserConfig

	// browse runs one zeroconf browse; replaced in tests.
	browse func(ctx context.Context, entries, removed chan *zeroconf.ServiceEntry) error

	mu      sync.Mutex
	stopped bool
	cancels []context.CancelFunc
}

// NewBrowser creates a browser.
func NewBrowser(config BrowserConfig) *Browser {
	b := &Browser{config: config}
	b.browse = func(ctx context.Context, entries, removed chan *zeroconf.ServiceEntry) error {
		return zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.options()...)
	}
	return b
}

// Browse reports devices until ctx is canceled or Stop is called. A device
// is sent when first seen and again whenever its address set grows. The
// channel is closed when browsing ends.
func (b *Browser) Browse(ctx context.Context) (<-chan *Device, error) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil, ErrStopped
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	out := make(chan *Device)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go b.aggregate(ctx, entries, removed, out)

	// Start browsing in background
	go func() {
		if err := b.browse(ctx, entries, removed); err != nil {
			b.debugLog("browse failed", "error", err)
			cancel()
		}
	}()

	return out, nil
}

// Find browses until the device named name is seen.
func (b *Browser) Find(ctx context.Context, name string) (*Device, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	for {
		select {
		case d, ok := <-results:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				return nil, ErrNotFound
			}
			if d.Name == name {
				return d, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Scan browses until ctx is done and returns every device seen, sorted by
// name.
func (b *Browser) Scan(ctx context.Context) ([]*Device, error) {
	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]*Device)
	for d := range results {
		seen[d.Name] = d
	}
	out := make([]*Device, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Stop stops all active browsing operations.
func (b *Browser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

// aggregate merges announcements by instance name. Addresses from
// multiple interfaces are combined into a single device.
func (b *Browser) aggregate(ctx context.Context, entries, removed <-chan *zeroconf.ServiceEntry, out chan<- *Device) {
	defer close(out)

	devices := make(map[string]*Device)
	emit := func(d *Device) bool {
		snapshot := *d
		snapshot.Addresses = slices.Clone(d.Addresses)
		select {
		case out <- &snapshot:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			dev := b.entryToDevice(entry)
			if dev == nil {
				continue
			}
			existing, found := devices[dev.Name]
			if !found {
				devices[dev.Name] = dev
				if !emit(dev) {
					return
				}
				continue
			}
			merged := mergeAddresses(existing.Addresses, dev.Addresses)
			if len(merged) == len(existing.Addresses) {
				continue
			}
			existing.Addresses = merged
			if !emit(existing) {
				return
			}

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			if existing, found := devices[entry.Instance]; found {
				existing.Addresses = removeAddresses(existing.Addresses, entry)
				if len(existing.Addresses) == 0 {
					delete(devices, entry.Instance)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// entryToDevice converts a zeroconf entry, or returns nil for entries that
// cannot be used.
func (b *Browser) entryToDevice(entry *zeroconf.ServiceEntry) *Device {
	info, err := DecodeTXT(StringsToTXTRecords(entry.Text))
	if err != nil {
		b.debugLog("ignoring announcement", "instance", entry.Instance, "error", err)
		return nil
	}
	if info.APIEncryption == "" && !b.config.IncludePlaintext {
		b.debugLog("ignoring plaintext device", "instance", entry.Instance)
		return nil
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &Device{
		Name:      entry.Instance,
		Host:      trimHost(entry.HostName),
		Port:      entry.Port,
		Addresses: addrs,
		Info:      *info,
	}
}

// options returns zeroconf client options based on config.
func (b *Browser) options() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		} else {
			b.debugLog("unknown interface, browsing on all", "interface", b.config.Interface, "error", err)
		}
	}
	return opts
}

func (b *Browser) debugLog(msg string, args ...any) {
	if b.config.Logger != nil {
		b.config.Logger.Debug(msg, args...)
	}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes addresses from a zeroconf entry from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
