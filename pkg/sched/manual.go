package sched

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler whose clock only moves on Advance. Due tasks run
// synchronously on the goroutine calling Advance, in due-time order.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	m      *Manual
	name   string
	due    time.Time
	period time.Duration
	seq    int
	run    func()
}

// NewManual creates a manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the manual clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Schedule(name string, delay time.Duration, task func(), _ ...TaskOption) Cancelable {
	return m.add(name, delay, 0, task)
}

func (m *Manual) ScheduleAtFixedRate(name string, initial, period time.Duration, task func(), _ ...TaskOption) Cancelable {
	return m.add(name, initial, period, task)
}

func (m *Manual) add(name string, delay, period time.Duration, task func()) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{m: m, name: name, due: m.now.Add(delay), period: period, seq: m.seq, run: task}
	m.tasks = append(m.tasks, t)
	return t
}

func (t *manualTask) Cancel() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.remove(t)
}

func (m *Manual) remove(t *manualTask) {
	for i, x := range m.tasks {
		if x == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}

// Advance moves the clock forward by d, running every task that falls due.
// Tasks scheduled by running tasks also run if they fall due within d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		m.now = t.due
		if t.period > 0 {
			t.due = t.due.Add(t.period)
		} else {
			m.remove(t)
		}
		m.mu.Unlock()
		t.run()
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()
}

// RunPending runs the tasks due at the current time.
func (m *Manual) RunPending() {
	m.Advance(0)
}

func (m *Manual) nextDue(target time.Time) *manualTask {
	var next *manualTask
	for _, t := range m.tasks {
		if t.due.After(target) {
			continue
		}
		if next == nil || t.due.Before(next.due) || (t.due.Equal(next.due) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

// Pending returns the names of scheduled tasks ordered by due time.
func (m *Manual) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := append([]*manualTask(nil), m.tasks...)
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].due.Before(tasks[j].due) })
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.name
	}
	return names
}

// NextDue returns the delay until the named task runs, and whether it is pending.
func (m *Manual) NextDue(name string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.name == name {
			return t.due.Sub(m.now), true
		}
	}
	return 0, false
}

var _ Scheduler = (*Manual)(nil)
