package browser

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrLoopClosed is returned when work is submitted to a stopped loop.
	ErrLoopClosed = errors.New("browser loop closed")
	// ErrTimeout is returned when a submitted task does not complete in
	// time. The task itself keeps running on the loop; only the waiting
	// caller gives up.
	ErrTimeout = errors.New("browser operation timed out")
)

// task pairs a unit of work with the promise channel its submitter waits on.
// done is buffered so an abandoned (timed out) result never blocks the loop.
type task struct {
	run  func() (any, error)
	done chan taskResult
}

type taskResult struct {
	value any
	err   error
}

func (t *task) finish() {
	defer func() {
		if r := recover(); r != nil {
			t.done <- taskResult{err: fmt.Errorf("browser task panicked: %v", r)}
		}
	}()
	v, err := t.run()
	t.done <- taskResult{value: v, err: err}
}

// loop runs all submitted tasks on a single goroutine, in submission order.
// The Playwright driver is not safe for concurrent use, so every touch of
// the browser goes through here.
type loop struct {
	tasks    chan *task
	quit     chan struct{}
	stopped  chan struct{}
	quitOnce sync.Once
}

func newLoop(buffer int) *loop {
	if buffer <= 0 {
		buffer = 16
	}
	l := &loop{
		tasks:   make(chan *task, buffer),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.quit:
			return
		case t := <-l.tasks:
			t.finish()
		}
	}
}

// submit schedules fn on the loop goroutine and blocks until it completes,
// the timeout elapses, or the loop stops. The timeout covers the whole wait,
// enqueue included, so a full queue cannot strand the caller. On timeout the
// task may still run to completion later; its result is discarded.
func (l *loop) submit(fn func() (any, error), timeout time.Duration) (any, error) {
	t := &task{run: fn, done: make(chan taskResult, 1)}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case l.tasks <- t:
	case <-timer.C:
		return nil, ErrTimeout
	case <-l.stopped:
		return nil, ErrLoopClosed
	}

	select {
	case r := <-t.done:
		return r.value, r.err
	case <-timer.C:
		return nil, ErrTimeout
	case <-l.stopped:
		return nil, ErrLoopClosed
	}
}

// stop shuts the loop down and waits up to join for the goroutine to exit.
// Queued tasks that have not started are dropped; their submitters unblock
// with ErrLoopClosed.
func (l *loop) stop(join time.Duration) error {
	l.quitOnce.Do(func() { close(l.quit) })
	select {
	case <-l.stopped:
		return nil
	case <-time.After(join):
		return fmt.Errorf("browser loop did not stop within %s", join)
	}
}
