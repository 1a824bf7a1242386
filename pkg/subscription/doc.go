// Package subscription tracks the state subscriptions a device opens on the
// host.
//
// A device may ask to be told about a host entity (and optionally one of its
// attributes). The Manager records the request, primes it with the current
// value, and then turns later host changes into notifications for every
// matching subscription.
//
// # Bounce-Back Suppression
//
// When enabled, a change that repeats the last value sent for a
// subscription produces no notification.
//
// # One-Shot Subscriptions
//
// A subscription requested with once set is satisfied by its priming
// notification and is not retained.
//
// # Lifecycle
//
// Subscriptions do NOT survive connection loss. The owner calls ClearAll on
// disconnect; the device re-subscribes after the next login.
package subscription
