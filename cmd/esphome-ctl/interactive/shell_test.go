package interactive

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esphome-native/esphome-go/pkg/connection"
	"github.com/esphome-native/esphome-go/pkg/entity"
	"github.com/esphome-native/esphome-go/pkg/service"
)

type fakeController struct {
	snap      service.DeviceSnapshot
	handler   service.EventHandler
	commands  []string
	published []string
	cmdErr    error
}

func (f *fakeController) Devices() []string { return []string{f.snap.Name} }

func (f *fakeController) Snapshot(name string) (service.DeviceSnapshot, error) {
	if name != f.snap.Name {
		return service.DeviceSnapshot{}, fmt.Errorf("%w: %s", service.ErrDeviceNotFound, name)
	}
	return f.snap, nil
}

func (f *fakeController) CommandText(name string, kind entity.Kind, key uint32, text string) error {
	f.commands = append(f.commands, fmt.Sprintf("%s %s %d %s", name, kind, key, text))
	return f.cmdErr
}

func (f *fakeController) PublishState(entityID, attribute, state string) {
	f.published = append(f.published, entityID+"|"+attribute+"|"+state)
}

func (f *fakeController) OnEvent(h service.EventHandler) { f.handler = h }

func newTestShell() (*fakeController, *Shell, *bytes.Buffer) {
	ctrl := &fakeController{snap: service.DeviceSnapshot{
		Name:         "kitchen",
		Host:         "10.0.0.5",
		Port:         6053,
		State:        connection.StateConnected,
		Status:       connection.Status{Online: true},
		Interrogated: true,
		Properties:   map[string]string{"esphome_version": "2024.6.0"},
		Entities:     []entity.Entity{{Kind: entity.KindSwitch, Key: 7, ObjectID: "relay", Name: "Relay"}},
		States:       []entity.State{{Kind: entity.KindSwitch, Key: 7, Value: true}},
	}}
	var out bytes.Buffer
	return ctrl, newShell(ctrl, &out), &out
}

func TestExecuteListings(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"devices", []string{"NAME", "kitchen", "CONNECTED", "true"}},
		{"status kitchen", []string{"10.0.0.5:6053", "Interrogated: true", "esphome_version:"}},
		{"entities kitchen", []string{"relay", "switch", "Relay"}},
		{"states kitchen", []string{"switch/7: true"}},
		{"status garage", []string{"device not found"}},
		{"status", []string{"Usage: status <device>"}},
		{"frobnicate", []string{"Unknown command: frobnicate"}},
		{"help", []string{"cmd <device> <key> <value> [kind]"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, sh, out := newTestShell()
			assert.True(t, sh.Execute(tt.line))
			for _, want := range tt.want {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestExecuteCommand(t *testing.T) {
	ctrl, sh, out := newTestShell()

	sh.Execute("cmd kitchen 7 on")
	sh.Execute("cmd kitchen 7 off switch")
	require.Equal(t, []string{"kitchen  7 on", "kitchen switch 7 off"}, ctrl.commands)
	assert.Contains(t, out.String(), "Sent on to kitchen/7")

	out.Reset()
	sh.Execute("cmd kitchen seven on")
	assert.Contains(t, out.String(), "Invalid key")

	out.Reset()
	sh.Execute("cmd kitchen 7 on toaster")
	assert.Contains(t, out.String(), "Error:")
	assert.Len(t, ctrl.commands, 2)

	out.Reset()
	ctrl.cmdErr = connection.ErrNotConnected
	sh.Execute("cmd kitchen 7 on")
	assert.Contains(t, out.String(), "not connected")
}

func TestExecutePublish(t *testing.T) {
	ctrl, sh, _ := newTestShell()

	sh.Execute("publish sensor.outside 21.5")
	sh.Execute("publish climate.lounge temperature 20")
	sh.Execute("publish")
	assert.Equal(t, []string{"sensor.outside||21.5", "climate.lounge|temperature|20"}, ctrl.published)
}

func TestExecuteQuit(t *testing.T) {
	_, sh, _ := newTestShell()
	assert.True(t, sh.Execute("   "))
	assert.False(t, sh.Execute("quit"))
	assert.False(t, sh.Execute("EXIT"))
}

func TestEvents(t *testing.T) {
	ctrl, sh, out := newTestShell()
	require.NotNil(t, ctrl.handler)

	ctrl.handler(service.Event{Type: service.EventStatusChanged, Device: "kitchen", Status: connection.Status{Message: "ping timeout"}})
	ctrl.handler(service.Event{Type: service.EventAction, Device: "kitchen", Action: connection.Action{Service: "esphome.doorbell"}})
	st := entity.State{Kind: entity.KindSwitch, Key: 7, Value: false}
	ctrl.handler(service.Event{Type: service.EventStateChanged, Device: "kitchen", State: st})
	assert.Contains(t, out.String(), "[kitchen] offline: ping timeout")
	assert.Contains(t, out.String(), "[kitchen] action esphome.doorbell")
	assert.NotContains(t, out.String(), "switch/7")

	sh.Execute("watch")
	ctrl.handler(service.Event{Type: service.EventStateChanged, Device: "kitchen", State: st})
	assert.Contains(t, out.String(), "[kitchen] switch/7: false")
}
