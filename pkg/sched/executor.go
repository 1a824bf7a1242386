package sched

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrExecutorClosed is returned by Submit after Close.
var ErrExecutorClosed = errors.New("executor closed")

// KeySequentialExecutor runs tasks submitted under the same key one at a
// time in submission order. Tasks under different keys run concurrently.
// A goroutine exists per key only while that key has queued work.
type KeySequentialExecutor struct {
	logger *slog.Logger

	mu     sync.Mutex
	queues map[string][]func()
	closed bool
	wg     sync.WaitGroup
}

// NewKeySequentialExecutor creates an executor. A nil logger disables logging.
func NewKeySequentialExecutor(logger *slog.Logger) *KeySequentialExecutor {
	return &KeySequentialExecutor{
		logger: logger,
		queues: make(map[string][]func()),
	}
}

// Submit queues task under key.
func (e *KeySequentialExecutor) Submit(key string, task func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrExecutorClosed
	}

	q, running := e.queues[key]
	e.queues[key] = append(q, task)
	if !running {
		e.wg.Add(1)
		go e.drain(key)
	}
	return nil
}

func (e *KeySequentialExecutor) drain(key string) {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		q := e.queues[key]
		if len(q) == 0 {
			delete(e.queues, key)
			e.mu.Unlock()
			return
		}
		task := q[0]
		q[0] = nil
		e.queues[key] = q[1:]
		e.mu.Unlock()

		e.run(key, task)
	}
}

func (e *KeySequentialExecutor) run(key string, task func()) {
	defer func() {
		if r := recover(); r != nil && e.logger != nil {
			e.logger.Error("queued task panicked", "key", key, "panic", r)
		}
	}()
	task()
}

// Close stops accepting tasks and waits for queued tasks to finish.
func (e *KeySequentialExecutor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
}
