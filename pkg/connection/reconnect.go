package connection

import (
	"time"

	"github.com/esphome-native/esphome-go/pkg/sched"
)

// timer is the handle of one armed task. A task whose handle was replaced
// or cleared is stale and does nothing.
type timer struct {
	handle sched.Cancelable
}

func (c *Connection) scheduleConnectLocked(delay time.Duration) {
	if delay > 0 {
		c.deps.Metrics.ReconnectScheduled(c.id)
	}
	c.scheduleLocked(&c.connectTask, taskConnect, delay, c.connectLocked, sched.Threshold(connectTaskThreshold))
}

// scheduleLocked arms a one-shot task in slot, canceling the previous one.
func (c *Connection) scheduleLocked(slot **timer, name string, delay time.Duration, fn func(), opts ...sched.TaskOption) {
	c.cancelLocked(slot)
	t := &timer{}
	*slot = t
	t.handle = c.deps.Scheduler.Schedule(c.taskName(name), delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if *slot != t {
			return
		}
		*slot = nil
		fn()
	}, opts...)
}

// scheduleRepeatingLocked arms a fixed-rate task in slot.
func (c *Connection) scheduleRepeatingLocked(slot **timer, name string, period time.Duration, fn func()) {
	c.cancelLocked(slot)
	t := &timer{}
	*slot = t
	t.handle = c.deps.Scheduler.ScheduleAtFixedRate(c.taskName(name), period, period, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if *slot != t {
			return
		}
		fn()
	})
}

func (c *Connection) cancelLocked(slot **timer) {
	t := *slot
	if t == nil {
		return
	}
	*slot = nil
	if t.handle != nil {
		t.handle.Cancel()
	}
}

func (c *Connection) taskName(name string) string {
	return c.id + "/" + name
}
