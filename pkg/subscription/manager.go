package subscription

import (
	"sort"
	"sync"
	"time"
)

// Notification is a value to send to the device.
type Notification struct {
	Key

	// State is the value in the device's text representation.
	State string

	// IsPriming marks the notification sent when the subscription is made.
	IsPriming bool

	// Timestamp is when the notification was generated.
	Timestamp time.Time
}

// Manager manages the subscriptions of one device connection.
type Manager struct {
	mu sync.Mutex

	config        Config
	subscriptions map[Key]*Subscription

	onNotification func(Notification)
	now            func() time.Time
}

// NewManager creates a new subscription manager with default configuration.
func NewManager() *Manager {
	return NewManagerWithConfig(DefaultConfig())
}

// NewManagerWithConfig creates a new subscription manager with custom configuration.
func NewManagerWithConfig(config Config) *Manager {
	if config.MaxSubscriptions <= 0 {
		config.MaxSubscriptions = DefaultMaxSubscriptions
	}
	return &Manager{
		config:        config,
		subscriptions: make(map[Key]*Subscription),
		now:           time.Now,
	}
}

// Subscribe records a subscription and sends a priming notification with
// current via the callback. A repeated request for the same key is primed
// again but not duplicated; created reports whether a new entry was made.
func (m *Manager) Subscribe(entityID, attribute string, once bool, current string) (created bool, err error) {
	if entityID == "" {
		return false, ErrInvalidEntityID
	}
	key := Key{EntityID: entityID, Attribute: attribute}

	m.mu.Lock()
	sub, exists := m.subscriptions[key]
	switch {
	case exists:
		// A persistent subscription absorbs a later one-shot request.
		if !once {
			sub.Once = false
		}
	case once:
		sub = &Subscription{Key: key, Once: true}
	default:
		if len(m.subscriptions) >= m.config.MaxSubscriptions {
			m.mu.Unlock()
			return false, ErrResourceExhausted
		}
		sub = &Subscription{Key: key}
		m.subscriptions[key] = sub
		created = true
	}
	sub.record(current, false)
	onNotify := m.onNotification
	ts := m.now()
	m.mu.Unlock()

	// Send priming notification outside lock
	if onNotify != nil {
		onNotify(Notification{Key: key, State: current, IsPriming: true, Timestamp: ts})
	}
	return created, nil
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(entityID, attribute string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key{EntityID: entityID, Attribute: attribute}
	if _, exists := m.subscriptions[key]; !exists {
		return ErrSubscriptionNotFound
	}
	delete(m.subscriptions, key)
	return nil
}

// NotifyChange reports a host value change. Matching subscriptions produce
// one notification each through the callback; the count is returned.
func (m *Manager) NotifyChange(entityID, attribute, state string) int {
	key := Key{EntityID: entityID, Attribute: attribute}

	m.mu.Lock()
	sub, exists := m.subscriptions[key]
	if !exists || !sub.record(state, m.config.SuppressBounceBack) {
		m.mu.Unlock()
		return 0
	}
	onNotify := m.onNotification
	ts := m.now()
	m.mu.Unlock()

	if onNotify != nil {
		onNotify(Notification{Key: key, State: state, Timestamp: ts})
	}
	return 1
}

// Matches reports whether a change to entityID/attribute would be sent.
func (m *Manager) Matches(entityID, attribute string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subscriptions[Key{EntityID: entityID, Attribute: attribute}]
	return ok
}

// ClearAll removes all subscriptions (e.g., on connection loss) and
// returns how many there were.
func (m *Manager) ClearAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.subscriptions)
	m.subscriptions = make(map[Key]*Subscription)
	return n
}

// Count returns the number of retained subscriptions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscriptions)
}

// Keys returns the retained subscription keys in a stable order.
func (m *Manager) Keys() []Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]Key, 0, len(m.subscriptions))
	for k := range m.subscriptions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].EntityID != keys[j].EntityID {
			return keys[i].EntityID < keys[j].EntityID
		}
		return keys[i].Attribute < keys[j].Attribute
	})
	return keys
}

// Get returns a copy of the subscription for entityID/attribute.
func (m *Manager) Get(entityID, attribute string) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, exists := m.subscriptions[Key{EntityID: entityID, Attribute: attribute}]
	if !exists {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return *sub, nil
}

// OnNotification sets the callback for notifications. The callback runs
// without the manager lock held.
func (m *Manager) OnNotification(fn func(Notification)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onNotification = fn
}
