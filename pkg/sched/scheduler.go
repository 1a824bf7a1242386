package sched

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultSlowTaskThreshold is the run time above which a task logs a warning.
const DefaultSlowTaskThreshold = 5 * time.Second

// Cancelable is a handle to a scheduled task.
type Cancelable interface {
	// Cancel prevents future runs. A run already in progress is not interrupted.
	Cancel()
}

// Scheduler runs named tasks after a delay or at a fixed rate.
type Scheduler interface {
	Schedule(name string, delay time.Duration, task func(), opts ...TaskOption) Cancelable
	ScheduleAtFixedRate(name string, initial, period time.Duration, task func(), opts ...TaskOption) Cancelable
}

// TaskOption adjusts how a single task is monitored.
type TaskOption func(*taskOptions)

type taskOptions struct {
	threshold time.Duration
}

// Threshold overrides the slow-task threshold for one task.
func Threshold(d time.Duration) TaskOption {
	return func(o *taskOptions) { o.threshold = d }
}

// TaskObserver receives the run time of every task. Metrics collectors
// implement it.
type TaskObserver interface {
	ObserveTask(name string, d time.Duration)
}

// TimerConfig configures a TimerScheduler.
type TimerConfig struct {
	// SlowTaskThreshold defaults to DefaultSlowTaskThreshold.
	SlowTaskThreshold time.Duration

	// Logger for slow-task warnings. Nil disables logging.
	Logger *slog.Logger

	// Observer is optional.
	Observer TaskObserver
}

// TimerScheduler is a Scheduler backed by runtime timers.
type TimerScheduler struct {
	config TimerConfig

	mu      sync.Mutex
	stopped bool
	active  map[*timerTask]struct{}
}

// NewTimerScheduler creates a scheduler.
func NewTimerScheduler(config TimerConfig) *TimerScheduler {
	if config.SlowTaskThreshold <= 0 {
		config.SlowTaskThreshold = DefaultSlowTaskThreshold
	}
	return &TimerScheduler{
		config: config,
		active: make(map[*timerTask]struct{}),
	}
}

type timerTask struct {
	s    *TimerScheduler
	name string
	opts taskOptions
	run  func()

	mu       sync.Mutex
	canceled bool
	timer    *time.Timer
	stop     chan struct{}
}

func (t *timerTask) Cancel() {
	t.mu.Lock()
	if t.canceled {
		t.mu.Unlock()
		return
	}
	t.canceled = true
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.stop != nil {
		close(t.stop)
	}
	t.mu.Unlock()
	t.s.forget(t)
}

func (t *timerTask) isCanceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canceled
}

// Schedule runs task once after delay.
func (s *TimerScheduler) Schedule(name string, delay time.Duration, task func(), opts ...TaskOption) Cancelable {
	t := s.newTask(name, task, opts)
	if t == nil {
		return noopCancel{}
	}
	t.mu.Lock()
	t.timer = time.AfterFunc(delay, func() {
		if t.isCanceled() {
			return
		}
		s.forget(t)
		s.runMonitored(t)
	})
	t.mu.Unlock()
	return t
}

// ScheduleAtFixedRate runs task after initial and then every period until
// canceled. Runs never overlap; a slow run delays the next tick.
func (s *TimerScheduler) ScheduleAtFixedRate(name string, initial, period time.Duration, task func(), opts ...TaskOption) Cancelable {
	t := s.newTask(name, task, opts)
	if t == nil {
		return noopCancel{}
	}
	t.mu.Lock()
	t.stop = make(chan struct{})
	stop := t.stop
	t.mu.Unlock()

	go func() {
		first := time.NewTimer(initial)
		defer first.Stop()
		select {
		case <-first.C:
		case <-stop:
			return
		}
		s.runMonitored(t)

		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if t.isCanceled() {
					return
				}
				s.runMonitored(t)
			case <-stop:
				return
			}
		}
	}()
	return t
}

func (s *TimerScheduler) newTask(name string, task func(), opts []TaskOption) *timerTask {
	t := &timerTask{s: s, name: name, run: task, opts: taskOptions{threshold: s.config.SlowTaskThreshold}}
	for _, opt := range opts {
		opt(&t.opts)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.active[t] = struct{}{}
	return t
}

func (s *TimerScheduler) forget(t *timerTask) {
	s.mu.Lock()
	delete(s.active, t)
	s.mu.Unlock()
}

func (s *TimerScheduler) runMonitored(t *timerTask) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		if r := recover(); r != nil {
			if s.config.Logger != nil {
				s.config.Logger.Error("scheduled task panicked", "task", t.name, "panic", r)
			}
		}
		if elapsed > t.opts.threshold && s.config.Logger != nil {
			s.config.Logger.Warn("scheduled task ran longer than expected",
				"task", t.name, "elapsed", elapsed, "threshold", t.opts.threshold)
		}
		if s.config.Observer != nil {
			s.config.Observer.ObserveTask(t.name, elapsed)
		}
	}()
	t.run()
}

// Stop cancels every pending task. Later Schedule calls return inert handles.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	tasks := make([]*timerTask, 0, len(s.active))
	for t := range s.active {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
}

// Pending returns the number of tasks that have not yet run or been canceled.
// Fixed-rate tasks count until canceled.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

type noopCancel struct{}

func (noopCancel) Cancel() {}

var (
	_ Scheduler  = (*TimerScheduler)(nil)
	_ Cancelable = (*timerTask)(nil)
)
