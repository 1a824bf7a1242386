package sched

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerSchedulerRunsOnce(t *testing.T) {
	s := NewTimerScheduler(TimerConfig{})
	defer s.Stop()

	done := make(chan struct{})
	s.Schedule("once", 10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTimerSchedulerCancel(t *testing.T) {
	s := NewTimerScheduler(TimerConfig{})
	defer s.Stop()

	var ran atomic.Bool
	h := s.Schedule("canceled", 20*time.Millisecond, func() { ran.Store(true) })
	h.Cancel()
	h.Cancel()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, ran.Load())
	assert.Equal(t, 0, s.Pending())
}

func TestTimerSchedulerFixedRate(t *testing.T) {
	s := NewTimerScheduler(TimerConfig{})
	defer s.Stop()

	var runs atomic.Int32
	h := s.ScheduleAtFixedRate("tick", time.Millisecond, 5*time.Millisecond, func() { runs.Add(1) })

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	h.Cancel()
	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, runs.Load(), after+1)
}

func TestTimerSchedulerStop(t *testing.T) {
	s := NewTimerScheduler(TimerConfig{})
	var ran atomic.Bool
	s.Schedule("pending", time.Hour, func() { ran.Store(true) })
	s.Stop()

	assert.Equal(t, 0, s.Pending())
	s.Schedule("after stop", 0, func() { ran.Store(true) })
	time.Sleep(10 * time.Millisecond)
	assert.False(t, ran.Load())
}

type recordingObserver struct {
	mu    sync.Mutex
	names []string
}

func (o *recordingObserver) ObserveTask(name string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, name)
}

func TestTimerSchedulerSurvivesPanic(t *testing.T) {
	obs := &recordingObserver{}
	s := NewTimerScheduler(TimerConfig{Observer: obs})
	defer s.Stop()

	done := make(chan struct{})
	s.Schedule("boom", 0, func() { panic("boom") })
	s.Schedule("after", 5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler stopped running tasks after a panic")
	}
	assert.Eventually(t, func() bool {
		obs.mu.Lock()
		defer obs.mu.Unlock()
		return len(obs.names) == 2
	}, time.Second, time.Millisecond)
}

func TestKeySequentialExecutorOrdersPerKey(t *testing.T) {
	e := NewKeySequentialExecutor(nil)

	var mu sync.Mutex
	got := map[string][]int{}
	for i := 0; i < 100; i++ {
		for _, key := range []string{"a", "b"} {
			i, key := i, key
			require.NoError(t, e.Submit(key, func() {
				mu.Lock()
				got[key] = append(got[key], i)
				mu.Unlock()
			}))
		}
	}
	e.Close()

	for _, key := range []string{"a", "b"} {
		require.Len(t, got[key], 100)
		for i, v := range got[key] {
			if v != i {
				t.Fatalf("key %s position %d = %d", key, i, v)
			}
		}
	}
}

func TestKeySequentialExecutorNeverOverlapsKey(t *testing.T) {
	e := NewKeySequentialExecutor(nil)

	var active, maxActive atomic.Int32
	for i := 0; i < 50; i++ {
		require.NoError(t, e.Submit("dev", func() {
			n := active.Add(1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			time.Sleep(100 * time.Microsecond)
			active.Add(-1)
		}))
	}
	e.Close()
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestKeySequentialExecutorClosed(t *testing.T) {
	e := NewKeySequentialExecutor(nil)
	e.Close()
	assert.ErrorIs(t, e.Submit("k", func() {}), ErrExecutorClosed)
}

func TestManualAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)

	var order []string
	m.Schedule("late", 2*time.Second, func() { order = append(order, "late") })
	m.Schedule("early", time.Second, func() { order = append(order, "early") })
	tick := m.ScheduleAtFixedRate("tick", time.Second, time.Second, func() { order = append(order, "tick") })

	m.Advance(500 * time.Millisecond)
	assert.Empty(t, order)

	m.Advance(2 * time.Second)
	assert.Equal(t, []string{"early", "tick", "late", "tick"}, order)
	assert.Equal(t, start.Add(2500*time.Millisecond), m.Now())

	tick.Cancel()
	m.Advance(10 * time.Second)
	assert.Len(t, order, 4)
	assert.Empty(t, m.Pending())
}

func TestManualTaskSchedulesTask(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ran := false
	m.Schedule("outer", time.Second, func() {
		m.Schedule("inner", time.Second, func() { ran = true })
	})

	m.Advance(1500 * time.Millisecond)
	assert.False(t, ran)
	d, ok := m.NextDue("inner")
	require.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, d)

	m.Advance(time.Second)
	assert.True(t, ran)
}
