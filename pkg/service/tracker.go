package service

import (
	"cmp"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/esphome-native/esphome-go/pkg/connection"
	"github.com/esphome-native/esphome-go/pkg/entity"
)

// deviceTracker keeps the snapshot of one device and forwards every
// callback to the device's own collaborators and the controller's event
// handlers. The connection calls it with its lock held.
type deviceTracker struct {
	device string
	next   connection.Collaborators
	emit   func(Event)
	now    func() time.Time

	mu         sync.Mutex
	status     connection.Status
	properties map[string]string
	entities   []entity.Entity
	states     map[uint32]entity.State
	updated    time.Time
}

func newDeviceTracker(device string, next connection.Collaborators, emit func(Event), now func() time.Time) *deviceTracker {
	return &deviceTracker{
		device: device,
		next:   next,
		emit:   emit,
		now:    now,
		states: make(map[uint32]entity.State),
	}
}

// collaborators returns the set handed to the connection.
func (t *deviceTracker) collaborators() connection.Collaborators {
	return connection.Collaborators{
		Entities:   t,
		Properties: t,
		Actions:    t,
		States:     t,
		Status:     t,
	}
}

func (t *deviceTracker) ApplyEntities(es []entity.Entity) {
	t.mu.Lock()
	t.entities = slices.Clone(es)
	clear(t.states)
	t.updated = t.now()
	t.mu.Unlock()

	if t.next.Entities != nil {
		t.next.Entities.ApplyEntities(es)
	}
	t.emit(Event{Type: EventEntitiesChanged, Device: t.device})
}

func (t *deviceTracker) UpdateState(s entity.State) {
	t.mu.Lock()
	t.states[s.Key] = s
	t.updated = t.now()
	t.mu.Unlock()

	if t.next.Entities != nil {
		t.next.Entities.UpdateState(s)
	}
	t.emit(Event{Type: EventStateChanged, Device: t.device, State: s})
}

func (t *deviceTracker) UpdateProperties(props map[string]string) {
	t.mu.Lock()
	t.properties = maps.Clone(props)
	t.updated = t.now()
	t.mu.Unlock()

	if t.next.Properties != nil {
		t.next.Properties.UpdateProperties(props)
	}
	t.emit(Event{Type: EventPropertiesChanged, Device: t.device})
}

func (t *deviceTracker) PublishAction(a connection.Action) {
	if t.next.Actions != nil {
		t.next.Actions.PublishAction(a)
	}
	t.emit(Event{Type: EventAction, Device: t.device, Action: a})
}

func (t *deviceTracker) State(entityID, attribute string) string {
	if t.next.States != nil {
		return t.next.States.State(entityID, attribute)
	}
	return ""
}

func (t *deviceTracker) StatusChanged(s connection.Status) {
	t.mu.Lock()
	t.status = s
	t.updated = t.now()
	t.mu.Unlock()

	if t.next.Status != nil {
		t.next.Status.StatusChanged(s)
	}
	t.emit(Event{Type: EventStatusChanged, Device: t.device, Status: s})
}

// fill copies the tracked parts into snap.
func (t *deviceTracker) fill(snap *DeviceSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap.Status = t.status
	snap.Properties = maps.Clone(t.properties)
	snap.Entities = slices.Clone(t.entities)
	snap.States = make([]entity.State, 0, len(t.states))
	for _, s := range t.states {
		snap.States = append(snap.States, s)
	}
	slices.SortFunc(snap.States, func(a, b entity.State) int { return cmp.Compare(a.Key, b.Key) })
	snap.UpdatedAt = t.updated
}
