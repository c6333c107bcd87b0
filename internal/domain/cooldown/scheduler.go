package cooldown

import (
	"sync"
	"time"
)

// Task is a handle to a scheduled single-shot function.
type Task interface {
	// Cancel stops the task if it has not fired yet and reports whether it
	// did. Cancelling an already fired or already cancelled task is a no-op.
	Cancel() bool
}

// Scheduler schedules single-shot, independently cancellable tasks. The
// state machine's buffering timers go through this interface so tests can
// drive them deterministically.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Task
}

// timerScheduler is the production scheduler backed by runtime timers.
type timerScheduler struct{}

// NewTimerScheduler returns a scheduler backed by time.AfterFunc.
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) Schedule(d time.Duration, fn func()) Task {
	return &timerTask{timer: time.AfterFunc(d, fn)}
}

type timerTask struct {
	mu        sync.Mutex
	timer     *time.Timer
	cancelled bool
}

func (t *timerTask) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelled {
		return false
	}
	t.cancelled = true
	return t.timer.Stop()
}
