package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/esphome-native/esphome-go/internal/testdevice"
	"github.com/esphome-native/esphome-go/pkg/connection"
	"github.com/esphome-native/esphome-go/pkg/connection/mocks"
	"github.com/esphome-native/esphome-go/pkg/entity"
	"github.com/esphome-native/esphome-go/pkg/noise"
	"github.com/esphome-native/esphome-go/pkg/sched"
	"github.com/esphome-native/esphome-go/pkg/service"
	"github.com/esphome-native/esphome-go/pkg/transport"
	"github.com/esphome-native/esphome-go/pkg/wire"
)

const testKey = "bOFFzzvfpg5DB94DuBGLXD/hMnhpDKgP9UQyBulwWVU="

type fakeTransport struct {
	config transport.Config

	mu     sync.Mutex
	closed bool
}

func (f *fakeTransport) Connect(context.Context, string, int) error { return nil }
func (f *fakeTransport) Send(wire.Message) error                    { return nil }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// manualController runs on a manual clock with recorded transports.
type manualController struct {
	*service.Controller
	clock *sched.Manual

	mu         sync.Mutex
	transports []*fakeTransport
}

func newManualController(t *testing.T, cfg service.Config) *manualController {
	t.Helper()
	m := &manualController{clock: sched.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))}
	cfg.Scheduler = m.clock
	cfg.Now = m.clock.Now
	cfg.NewTransport = func(tc transport.Config, _ transport.Listener) (connection.Transport, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		tr := &fakeTransport{config: tc}
		m.transports = append(m.transports, tr)
		return tr, nil
	}
	m.Controller = service.New(cfg)
	t.Cleanup(m.Close)
	return m
}

func (m *manualController) lastTransport(t *testing.T) *fakeTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.transports)
	return m.transports[len(m.transports)-1]
}

func deviceConfig(name string) connection.Config {
	cfg := connection.DefaultConfig()
	cfg.Name = name
	cfg.Host = name + ".local"
	cfg.EncryptionKey = testKey
	return cfg
}

func TestAddRejectsInvalidDevices(t *testing.T) {
	ctrl := newManualController(t, service.Config{})

	err := ctrl.Add(connection.Config{})
	assert.ErrorIs(t, err, service.ErrInvalidConfig)

	bad := deviceConfig("kitchen")
	bad.PingInterval = 0
	err = ctrl.Add(bad)
	assert.ErrorIs(t, err, service.ErrInvalidConfig)
	assert.Empty(t, ctrl.Devices())

	require.NoError(t, ctrl.Add(deviceConfig("kitchen")))
	err = ctrl.Add(deviceConfig("kitchen"))
	assert.ErrorIs(t, err, service.ErrDeviceExists)
	assert.Equal(t, []string{"kitchen"}, ctrl.Devices())
}

func TestAddWithoutHostReportsStatus(t *testing.T) {
	ctrl := newManualController(t, service.Config{})

	cfg := deviceConfig("attic")
	cfg.Host = ""
	require.NoError(t, ctrl.Add(cfg))

	snap, err := ctrl.Snapshot("attic")
	require.NoError(t, err)
	assert.False(t, snap.Online())
	assert.Equal(t, connection.ClassConfiguration, snap.Status.Detail)
	assert.Equal(t, connection.StateUninitialized, snap.State)
	assert.Empty(t, ctrl.clock.Pending())
}

func TestDefaultEncryptionKey(t *testing.T) {
	ctrl := newManualController(t, service.Config{DefaultEncryptionKey: testKey})

	cfg := deviceConfig("kitchen")
	cfg.EncryptionKey = ""
	require.NoError(t, ctrl.Add(cfg))
	ctrl.clock.RunPending()

	want, err := noise.ParseKey(testKey)
	require.NoError(t, err)
	assert.Equal(t, want, ctrl.lastTransport(t).config.Key)
}

func TestRemove(t *testing.T) {
	ctrl := newManualController(t, service.Config{})
	require.NoError(t, ctrl.Add(deviceConfig("kitchen")))
	require.NoError(t, ctrl.Add(deviceConfig("garage")))
	ctrl.clock.RunPending()

	assert.ErrorIs(t, ctrl.Remove("attic"), service.ErrDeviceNotFound)

	require.NoError(t, ctrl.Remove("kitchen"))
	assert.Equal(t, []string{"garage"}, ctrl.Devices())
	_, ok := ctrl.Device("kitchen")
	assert.False(t, ok)
	assert.NotContains(t, ctrl.clock.Pending(), "kitchen/connect-timeout")

	conn, ok := ctrl.Device("garage")
	require.True(t, ok)
	assert.Equal(t, connection.StateConnecting, conn.State())
}

func TestUnknownDevice(t *testing.T) {
	ctrl := newManualController(t, service.Config{})

	_, err := ctrl.Snapshot("attic")
	assert.ErrorIs(t, err, service.ErrDeviceNotFound)
	err = ctrl.Command("attic", entity.ChannelMeta{Kind: entity.KindSwitch, Key: 1}, entity.OnOff(true))
	assert.ErrorIs(t, err, service.ErrDeviceNotFound)
	err = ctrl.CommandText("attic", entity.KindSwitch, 1, "on")
	assert.ErrorIs(t, err, service.ErrDeviceNotFound)
}

func TestCloseDisposesDevices(t *testing.T) {
	ctrl := newManualController(t, service.Config{})
	require.NoError(t, ctrl.Add(deviceConfig("kitchen")))
	ctrl.clock.RunPending()
	tr := ctrl.lastTransport(t)

	ctrl.Close()
	ctrl.Close()

	assert.True(t, tr.isClosed())
	assert.Empty(t, ctrl.Devices())
	assert.Empty(t, ctrl.clock.Pending())
	assert.ErrorIs(t, ctrl.Add(deviceConfig("garage")), service.ErrClosed)
}

func TestControllerSession(t *testing.T) {
	key, err := noise.ParseKey(testKey)
	require.NoError(t, err)
	dev, err := testdevice.Start(testdevice.Config{
		Name:        "kitchen",
		Key:         key,
		AutoRespond: true,
		Info:        wire.DeviceInfoResponse{MACAddress: "AA:BB:CC:00:11:22", ESPHomeVersion: "2024.6.1"},
		Entities: []*wire.EntityInfo{
			{MsgType: wire.TypeListEntitiesSwitchResponse, ObjectID: "relay", Key: 7, Name: "Relay"},
		},
		States: []*wire.EntityState{
			{MsgType: wire.TypeSwitchStateResponse, Key: 7, Fields: wire.Fields{}.AppendBool(2, true)},
		},
	})
	require.NoError(t, err)
	t.Cleanup(dev.Close)

	props := mocks.NewMockPropertiesSink(t)
	props.EXPECT().UpdateProperties(mock.MatchedBy(func(p map[string]string) bool {
		return p[connection.PropertyMACAddress] == "AA:BB:CC:00:11:22"
	})).Once()

	ctrl := service.New(service.Config{
		Collaborators: func(device string) connection.Collaborators {
			assert.Equal(t, "kitchen", device)
			return connection.Collaborators{Properties: props}
		},
	})
	t.Cleanup(ctrl.Close)

	events := make(chan service.Event, 64)
	ctrl.OnEvent(func(e service.Event) {
		select {
		case events <- e:
		default:
		}
	})

	host, port := dev.Addr()
	cfg := deviceConfig("kitchen")
	cfg.Host = host
	cfg.Port = port
	cfg.ExpectedName = "kitchen"
	require.NoError(t, ctrl.Add(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	session, err := dev.Accept(ctx)
	require.NoError(t, err)
	require.NoError(t, session.HandshakeErr)

	require.Eventually(t, func() bool {
		snap, err := ctrl.Snapshot("kitchen")
		return err == nil && snap.Interrogated && len(snap.States) == 1
	}, 3*time.Second, 10*time.Millisecond)

	snap, err := ctrl.Snapshot("kitchen")
	require.NoError(t, err)
	assert.True(t, snap.Online())
	assert.Equal(t, connection.StateConnected, snap.State)
	assert.Equal(t, "2024.6.1", snap.Properties[connection.PropertyFirmwareVersion])
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, entity.KindSwitch, snap.Entities[0].Kind)
	assert.Equal(t, true, snap.States[0].Value)
	assert.Len(t, ctrl.Snapshots(), 1)

	seen := map[service.EventType]bool{}
	for len(events) > 0 {
		seen[(<-events).Type] = true
	}
	assert.True(t, seen[service.EventStatusChanged])
	assert.True(t, seen[service.EventEntitiesChanged])
	assert.True(t, seen[service.EventStateChanged])
	assert.True(t, seen[service.EventPropertiesChanged])

	// The kind comes from the entity list.
	require.NoError(t, ctrl.CommandText("kitchen", "", 7, "off"))
	msg, err := session.Expect(ctx, wire.TypeSwitchCommandRequest)
	require.NoError(t, err)
	assert.False(t, msg.(*wire.EntityCommand).Fields.Bool(2))

	err = ctrl.CommandText("kitchen", "", 99, "on")
	assert.ErrorIs(t, err, entity.ErrNoEntityKind)

	require.NoError(t, ctrl.Command("kitchen", entity.ChannelMeta{Kind: entity.KindSwitch, Key: 7}, entity.OnOff(true)))
	msg, err = session.Expect(ctx, wire.TypeSwitchCommandRequest)
	require.NoError(t, err)
	assert.True(t, msg.(*wire.EntityCommand).Fields.Bool(2))

	ctrl.Close()
	_, err = session.Expect(ctx, wire.TypeDisconnectRequest)
	require.NoError(t, err)
}
