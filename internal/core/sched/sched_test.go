package sched

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScheduleFires(t *testing.T) {
	s := New(zap.NewNop())
	var fired atomic.Bool
	s.Schedule("t", 10*time.Millisecond, func() { fired.Store(true) })
	require.Eventually(t, fired.Load, time.Second, 5*time.Millisecond)
}

func TestScheduleCancel(t *testing.T) {
	s := New(zap.NewNop())
	var fired atomic.Bool
	task := s.Schedule("t", 30*time.Millisecond, func() { fired.Store(true) })
	task.Cancel()
	task.Cancel() // idempotent
	time.Sleep(80 * time.Millisecond)
	require.False(t, fired.Load())
}

func TestCancelNilTask(t *testing.T) {
	var task *Task
	task.Cancel() // must not panic
}

func TestFixedRate(t *testing.T) {
	s := New(zap.NewNop())
	var ticks atomic.Int32
	task := s.ScheduleAtFixedRate("t", 10*time.Millisecond, func() { ticks.Add(1) })
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, 5*time.Millisecond)
	task.Cancel()
	n := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	require.LessOrEqual(t, ticks.Load(), n+1)
}

func TestPanicRecovered(t *testing.T) {
	s := New(zap.NewNop())
	var after atomic.Bool
	s.Schedule("boom", 5*time.Millisecond, func() { panic("boom") })
	s.Schedule("after", 20*time.Millisecond, func() { after.Store(true) })
	require.Eventually(t, after.Load, time.Second, 5*time.Millisecond)
}
