package authenticator

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTaskStopped is returned by Task.Wait when the task was stopped before
// its delay elapsed.
var ErrTaskStopped = errors.New("task stopped")

// Task is a simulated unit of work that takes a fixed delay and reports
// progress from 0 to 100 while it runs. It owns its timers and releases them
// on completion or Stop.
type Task struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	progress  int
	completed bool
}

// StartTask starts a task lasting delay, reporting progress every interval.
// report may be nil. Reported values never decrease and never exceed 100.
func StartTask(delay, interval time.Duration, report func(int)) *Task {
	t := &Task{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	if report == nil {
		report = func(int) {}
	}
	if interval <= 0 {
		interval = delay / 20
	}
	if delay <= 0 {
		t.advance(100, report)
		t.finish(true)
		return t
	}
	if interval <= 0 {
		interval = time.Millisecond
	}

	go t.run(delay, interval, report)
	return t
}

func (t *Task) run(delay, interval time.Duration, report func(int)) {
	ticker := time.NewTicker(interval)
	timer := time.NewTimer(delay)
	defer ticker.Stop()
	defer timer.Stop()

	start := time.Now()
	for {
		select {
		case <-t.stop:
			t.finish(false)
			return
		case <-timer.C:
			t.advance(100, report)
			t.finish(true)
			return
		case now := <-ticker.C:
			p := int(now.Sub(start) * 100 / delay)
			// 100 is reserved for completion so a slow timer cannot be reported as done.
			if p > 99 {
				p = 99
			}
			t.advance(p, report)
		}
	}
}

func (t *Task) advance(p int, report func(int)) {
	t.mu.Lock()
	if p > 100 {
		p = 100
	}
	if p <= t.progress {
		t.mu.Unlock()
		return
	}
	t.progress = p
	t.mu.Unlock()
	report(p)
}

func (t *Task) finish(completed bool) {
	t.mu.Lock()
	t.completed = completed
	t.mu.Unlock()
	close(t.done)
}

// Progress returns the last reported progress value.
func (t *Task) Progress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Done is closed once the task has completed or been stopped.
func (t *Task) Done() <-chan struct{} { return t.done }

// Stop releases the task's timers. It is safe to call more than once and
// after completion.
func (t *Task) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Wait blocks until the task finishes. It stops the task and returns the
// context error if ctx ends first, and ErrTaskStopped if the task was stopped.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
	case <-ctx.Done():
		t.Stop()
		<-t.done
		return ctx.Err()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.completed {
		return ErrTaskStopped
	}
	return nil
}
