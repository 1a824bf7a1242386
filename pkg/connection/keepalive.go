package connection

import (
	"fmt"

	"github.com/esphome-native/esphome-go/pkg/wire"
)

// keepaliveLocked runs every PingInterval while CONNECTED. The connection
// is considered lost once no pong arrived for MaxMissedPings intervals.
func (c *Connection) keepaliveLocked() {
	if c.state != StateConnected {
		return
	}
	now := c.deps.Now()
	if now.After(c.lastPong.Add(c.config.pingTimeout())) {
		c.logger.Warn("ping responses lacking, assuming connection lost",
			"last_pong", c.lastPong, "max_missed", c.config.MaxMissedPings)
		c.disconnectLocked(ClassCommunication,
			fmt.Sprintf("ESPHome did not respond to ping requests. %d pings sent with %s interval",
				c.config.MaxMissedPings, c.config.PingInterval), ErrPingTimeout, true)
		return
	}
	if err := c.sendLocked(&wire.PingRequest{}); err != nil {
		c.logger.Warn("error sending ping", "error", err)
		return
	}
	c.deps.Metrics.PingSent(c.id)
}
