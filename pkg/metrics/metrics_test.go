package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStateGaugeFollowsTransitions(t *testing.T) {
	m := New(WithRegistry(prometheus.NewRegistry()))

	m.StateChanged("kitchen", "", "CONNECTING")
	m.StateChanged("kitchen", "CONNECTING", "HELLO_SENT")

	assert.Equal(t, 0.0, testutil.ToFloat64(m.connectionState.WithLabelValues("kitchen", "CONNECTING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectionState.WithLabelValues("kitchen", "HELLO_SENT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("kitchen", "CONNECTING", "HELLO_SENT")))
}

func TestCounters(t *testing.T) {
	m := New(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))

	m.Frame("porch", "in", 20)
	m.Frame("porch", "in", 30)
	m.PingSent("porch")
	m.PongReceived("porch")
	m.Disconnected("porch", "communication")
	m.ReconnectScheduled("porch")
	m.UnsupportedMessage("porch", "Unknown(200)")
	m.ObserveTask("porch connect", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.frames.WithLabelValues("porch", "in")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.frameBytes.WithLabelValues("porch", "in")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pingsSent.WithLabelValues("porch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pongs.WithLabelValues("porch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.disconnects.WithLabelValues("porch", "communication")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconnects.WithLabelValues("porch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unsupported.WithLabelValues("porch", "Unknown(200)")))
}

func TestForget(t *testing.T) {
	m := New(WithRegistry(prometheus.NewRegistry()))
	m.PingSent("a")
	m.PingSent("b")
	m.Forget("a")
	assert.Equal(t, 1, testutil.CollectAndCount(m.pingsSent))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.StateChanged("x", "a", "b")
	m.Frame("x", "out", 1)
	m.PingSent("x")
	m.PongReceived("x")
	m.Disconnected("x", "c")
	m.ReconnectScheduled("x")
	m.UnsupportedMessage("x", "t")
	m.ObserveTask("t", time.Second)
	m.Forget("x")
}
