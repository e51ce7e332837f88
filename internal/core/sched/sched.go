// Package sched runs delayed and fixed-rate background tasks for the game
// systems. Every callback is recovered at the boundary: a panicking task must
// never take the process down.
package sched

import (
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a handle to a scheduled callback. Cancel is best-effort: a one-shot
// whose timer already fired may still run, so callbacks re-validate their own
// preconditions.
type Task struct {
	name string
	s    *Scheduler

	mu       sync.Mutex
	timer    *time.Timer  // one-shot
	ticker   *time.Ticker // fixed-rate
	done     chan struct{}
	canceled bool
}

// Cancel stops the task. Safe to call more than once and from any goroutine.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled {
		return
	}
	t.canceled = true
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.ticker != nil {
		t.ticker.Stop()
		close(t.done)
	}
}

func (t *Task) isCanceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canceled
}

// Scheduler owns all background timers of a server instance.
type Scheduler struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Scheduler {
	return &Scheduler{log: log}
}

// Schedule runs fn once after delay. A non-positive delay runs it almost
// immediately (still on a timer goroutine, never inline).
func (s *Scheduler) Schedule(name string, delay time.Duration, fn func()) *Task {
	if delay < 0 {
		delay = 0
	}
	t := &Task{name: name, s: s}
	t.timer = time.AfterFunc(delay, func() {
		if t.isCanceled() {
			return
		}
		s.run(name, fn)
	})
	return t
}

// ScheduleAtFixedRate runs fn every interval until the task is canceled.
// The first run happens after one full interval.
func (s *Scheduler) ScheduleAtFixedRate(name string, interval time.Duration, fn func()) *Task {
	t := &Task{name: name, s: s, done: make(chan struct{})}
	t.ticker = time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				if t.isCanceled() {
					return
				}
				s.run(name, fn)
			}
		}
	}()
	return t
}

func (s *Scheduler) run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled task panicked",
				zap.String("task", name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	fn()
}
