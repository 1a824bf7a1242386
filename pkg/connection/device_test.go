package connection_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esphome-native/esphome-go/internal/testdevice"
	"github.com/esphome-native/esphome-go/pkg/connection"
	"github.com/esphome-native/esphome-go/pkg/entity"
	"github.com/esphome-native/esphome-go/pkg/noise"
	"github.com/esphome-native/esphome-go/pkg/sched"
	"github.com/esphome-native/esphome-go/pkg/wire"
)

type chanSink struct {
	entities chan []entity.Entity
	states   chan entity.State
}

func (s *chanSink) ApplyEntities(es []entity.Entity) { s.entities <- es }
func (s *chanSink) UpdateState(st entity.State)      { s.states <- st }

type statusFunc func(connection.Status)

func (f statusFunc) StatusChanged(s connection.Status) { f(s) }

func ctxT(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func startDevice(t *testing.T, cfg testdevice.Config) *testdevice.Device {
	t.Helper()
	if cfg.Key == nil {
		key, err := noise.ParseKey(testKey)
		require.NoError(t, err)
		cfg.Key = key
	}
	dev, err := testdevice.Start(cfg)
	require.NoError(t, err)
	t.Cleanup(dev.Close)
	return dev
}

func startConnection(t *testing.T, dev *testdevice.Device, deps connection.Deps) *connection.Connection {
	t.Helper()
	host, port := dev.Addr()
	cfg := connection.DefaultConfig()
	cfg.Name = "kitchen"
	cfg.Host = host
	cfg.Port = port
	cfg.EncryptionKey = testKey
	cfg.ExpectedName = "kitchen"
	cfg.ConnectTimeout = 2 * time.Second

	scheduler := sched.NewTimerScheduler(sched.TimerConfig{})
	t.Cleanup(scheduler.Stop)
	exec := sched.NewKeySequentialExecutor(nil)
	t.Cleanup(exec.Close)
	deps.Scheduler = scheduler
	deps.Executor = exec

	conn, err := connection.New(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(conn.Dispose)
	require.NoError(t, conn.Start())
	return conn
}

func TestDeviceSession(t *testing.T) {
	dev := startDevice(t, testdevice.Config{
		Name:        "kitchen",
		AutoRespond: true,
		Entities: []*wire.EntityInfo{
			{MsgType: wire.TypeListEntitiesSwitchResponse, ObjectID: "relay", Key: 7, Name: "Relay"},
		},
		States: []*wire.EntityState{
			{MsgType: wire.TypeSwitchStateResponse, Key: 7, Fields: wire.Fields{}.AppendBool(2, true)},
		},
	})
	sink := &chanSink{entities: make(chan []entity.Entity, 1), states: make(chan entity.State, 4)}
	conn := startConnection(t, dev, connection.Deps{Collaborators: connection.Collaborators{Entities: sink}})

	ctx := ctxT(t)
	session, err := dev.Accept(ctx)
	require.NoError(t, err)
	require.NoError(t, session.HandshakeErr)

	select {
	case es := <-sink.entities:
		require.Len(t, es, 1)
		assert.Equal(t, "relay", es[0].ObjectID)
		assert.Equal(t, entity.KindSwitch, es[0].Kind)
	case <-ctx.Done():
		t.Fatal("no entities")
	}
	select {
	case st := <-sink.states:
		assert.Equal(t, uint32(7), st.Key)
		assert.Equal(t, true, st.Value)
	case <-ctx.Done():
		t.Fatal("no state")
	}
	assert.Equal(t, connection.StateConnected, conn.State())
	assert.True(t, conn.Interrogated())

	require.NoError(t, conn.HandleCommand(entity.ChannelMeta{Kind: entity.KindSwitch, Key: 7}, entity.OnOff(false)))
	msg, err := session.Expect(ctx, wire.TypeSwitchCommandRequest)
	require.NoError(t, err)
	cmd := msg.(*wire.EntityCommand)
	assert.Equal(t, uint32(7), cmd.Key)
	assert.False(t, cmd.Fields.Bool(2))

	conn.Dispose()
	_, err = session.Expect(ctx, wire.TypeDisconnectRequest)
	require.NoError(t, err)
}

func TestDeviceRejectsHandshake(t *testing.T) {
	dev := startDevice(t, testdevice.Config{Name: "kitchen", RejectReason: "Handshake MAC failure"})

	statuses := make(chan connection.Status, 8)
	conn := startConnection(t, dev, connection.Deps{Collaborators: connection.Collaborators{
		Status: statusFunc(func(s connection.Status) { statuses <- s }),
	}})

	ctx := ctxT(t)
	for {
		select {
		case s := <-statuses:
			if s.Detail == connection.ClassNone {
				continue
			}
			assert.Equal(t, connection.ClassConfiguration, s.Detail)
			assert.False(t, s.Online)
			assert.NotContains(t, s.Message, "reconnect")
			assert.Equal(t, connection.StateUninitialized, conn.State())
			return
		case <-ctx.Done():
			t.Fatal("no offline status")
		}
	}
}
