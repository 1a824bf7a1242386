package service

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/esphome-native/esphome-go/pkg/connection"
	"github.com/esphome-native/esphome-go/pkg/entity"
	"github.com/esphome-native/esphome-go/pkg/sched"
)

// Controller owns a set of device connections.
type Controller struct {
	config    Config
	scheduler sched.Scheduler
	owned     *sched.TimerScheduler
	executor  *sched.KeySequentialExecutor

	// mu guards the device table. It is never held while calling into a
	// connection.
	mu      sync.Mutex
	closed  bool
	devices map[string]*managedDevice

	handlersMu sync.RWMutex
	handlers   []EventHandler
}

type managedDevice struct {
	conn    *connection.Connection
	tracker *deviceTracker
}

// New creates a controller.
func New(config Config) *Controller {
	if config.Now == nil {
		config.Now = time.Now
	}
	c := &Controller{
		config:    config,
		scheduler: config.Scheduler,
		executor:  sched.NewKeySequentialExecutor(config.Logger),
		devices:   make(map[string]*managedDevice),
	}
	if c.scheduler == nil {
		tc := sched.TimerConfig{Logger: config.Logger}
		if config.Metrics != nil {
			tc.Observer = config.Metrics
		}
		c.owned = sched.NewTimerScheduler(tc)
		c.scheduler = c.owned
	}
	return c
}

// OnEvent registers an event handler.
func (c *Controller) OnEvent(handler EventHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers = append(c.handlers, handler)
}

func (c *Controller) emit(e Event) {
	c.handlersMu.RLock()
	handlers := slices.Clone(c.handlers)
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}

// Add creates a connection for cfg and starts it. A device whose host or
// key is missing is still added; its status reports the configuration
// error and no connection is attempted.
func (c *Controller) Add(cfg connection.Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("%w: device without name", ErrInvalidConfig)
	}
	if cfg.DefaultEncryptionKey == "" {
		cfg.DefaultEncryptionKey = c.config.DefaultEncryptionKey
	}
	if cfg.Logger == nil {
		cfg.Logger = c.config.Logger
	}
	if cfg.ProtocolLogger == nil {
		cfg.ProtocolLogger = c.config.ProtocolLogger
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if _, exists := c.devices[cfg.Name]; exists {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDeviceExists, cfg.Name)
	}

	var next connection.Collaborators
	if c.config.Collaborators != nil {
		next = c.config.Collaborators(cfg.Name)
	}
	tracker := newDeviceTracker(cfg.Name, next, c.emit, c.config.Now)
	conn, err := connection.New(cfg, connection.Deps{
		Collaborators: tracker.collaborators(),
		Scheduler:     c.scheduler,
		Executor:      c.executor,
		Metrics:       c.config.Metrics,
		Now:           c.config.Now,
		NewTransport:  c.config.NewTransport,
	})
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, cfg.Name, err)
	}
	c.devices[cfg.Name] = &managedDevice{conn: conn, tracker: tracker}
	c.mu.Unlock()

	if err := conn.Start(); err != nil {
		if connection.Classify(err) != connection.ClassConfiguration {
			return err
		}
		c.debugLog("device not started", "device", cfg.Name, "error", err)
	}
	return nil
}

// Remove disposes the named device's connection.
func (c *Controller) Remove(name string) error {
	c.mu.Lock()
	d, ok := c.devices[name]
	if ok {
		delete(c.devices, name)
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}

	d.conn.Dispose()
	if c.config.Metrics != nil {
		c.config.Metrics.Forget(d.conn.ID())
	}
	return nil
}

// Device returns the named device's connection.
func (c *Controller) Device(name string) (*connection.Connection, bool) {
	d, ok := c.lookup(name)
	if !ok {
		return nil, false
	}
	return d.conn, true
}

// Devices returns the device names in sorted order.
func (c *Controller) Devices() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.devices))
	for name := range c.devices {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Snapshot returns the named device's snapshot.
func (c *Controller) Snapshot(name string) (DeviceSnapshot, error) {
	d, ok := c.lookup(name)
	if !ok {
		return DeviceSnapshot{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	return d.snapshot(name), nil
}

// Snapshots returns every device's snapshot sorted by name.
func (c *Controller) Snapshots() []DeviceSnapshot {
	names := c.Devices()
	out := make([]DeviceSnapshot, 0, len(names))
	for _, name := range names {
		if snap, err := c.Snapshot(name); err == nil {
			out = append(out, snap)
		}
	}
	return out
}

// Command sends cmd to an entity of the named device.
func (c *Controller) Command(name string, meta entity.ChannelMeta, cmd entity.Command) error {
	d, ok := c.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	return d.conn.HandleCommand(meta, cmd)
}

// CommandText parses text for the entity's kind and sends it. The kind is
// taken from the device's entity list when kind is empty.
func (c *Controller) CommandText(name string, kind entity.Kind, key uint32, text string) error {
	d, ok := c.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	if kind == "" {
		snap := d.snapshot(name)
		e, found := snap.Entity(key)
		if !found {
			return fmt.Errorf("%w: %s has no entity %d", entity.ErrNoEntityKind, name, key)
		}
		kind = e.Kind
	}
	cmd, err := entity.ParseCommand(kind, text)
	if err != nil {
		return err
	}
	return d.conn.HandleCommand(entity.ChannelMeta{Kind: kind, Key: key}, cmd)
}

// PublishState pushes a host entity state to every device subscribed
// to it.
func (c *Controller) PublishState(entityID, attribute, state string) {
	for _, d := range c.all() {
		d.conn.PublishState(entityID, attribute, state)
	}
}

// Close disposes every connection and stops the shared facilities.
// Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	devices := c.devices
	c.devices = make(map[string]*managedDevice)
	c.mu.Unlock()

	for _, d := range devices {
		d.conn.Dispose()
	}
	if c.owned != nil {
		c.owned.Stop()
	}
	c.executor.Close()
}

func (c *Controller) lookup(name string) (*managedDevice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.devices[name]
	return d, ok
}

func (c *Controller) all() []*managedDevice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*managedDevice, 0, len(c.devices))
	for _, d := range c.devices {
		out = append(out, d)
	}
	return out
}

func (d *managedDevice) snapshot(name string) DeviceSnapshot {
	cfg := d.conn.Config()
	snap := DeviceSnapshot{
		Name:         name,
		Host:         cfg.Host,
		Port:         cfg.Port,
		State:        d.conn.State(),
		Interrogated: d.conn.Interrogated(),
		ConnectionID: d.conn.ConnectionID(),
	}
	d.tracker.fill(&snap)
	return snap
}

func (c *Controller) debugLog(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}
