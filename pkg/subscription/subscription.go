package subscription

import (
	"errors"
	"fmt"
)

// Subscription errors.
var (
	ErrResourceExhausted    = errors.New("maximum subscriptions reached")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidEntityID      = errors.New("invalid entity ID")
)

// DefaultMaxSubscriptions bounds the subscriptions one device may hold.
const DefaultMaxSubscriptions = 256

// Config holds subscription manager configuration.
type Config struct {
	// MaxSubscriptions is the maximum number of subscriptions allowed.
	MaxSubscriptions int

	// SuppressBounceBack drops changes equal to the last value sent.
	SuppressBounceBack bool
}

// DefaultConfig returns the default subscription configuration.
func DefaultConfig() Config {
	return Config{
		MaxSubscriptions:   DefaultMaxSubscriptions,
		SuppressBounceBack: true,
	}
}

// Key identifies a subscription. An empty Attribute means the entity's
// main state.
type Key struct {
	EntityID  string
	Attribute string
}

func (k Key) String() string {
	if k.Attribute == "" {
		return k.EntityID
	}
	return fmt.Sprintf("%s[%s]", k.EntityID, k.Attribute)
}

// Subscription is one active subscription.
type Subscription struct {
	Key

	// Once marks a subscription satisfied by its priming notification.
	Once bool

	lastValue string
	notified  bool
}

// record stores value as sent and reports whether it should be sent.
func (s *Subscription) record(value string, suppress bool) bool {
	if suppress && s.notified && s.lastValue == value {
		return false
	}
	s.lastValue = value
	s.notified = true
	return true
}

// LastValue returns the last value sent, if any.
func (s *Subscription) LastValue() (string, bool) {
	return s.lastValue, s.notified
}
