package browser

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitReturnsResult(t *testing.T) {
	l := newLoop(4)
	defer l.stop(time.Second)

	v, err := l.submit(func() (any, error) {
		return 42, nil
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSubmitPropagatesError(t *testing.T) {
	l := newLoop(4)
	defer l.stop(time.Second)

	_, err := l.submit(func() (any, error) {
		return nil, errors.New("nav failed")
	}, time.Second)
	assert.EqualError(t, err, "nav failed")
}

func TestSubmitRunsTasksInOrder(t *testing.T) {
	l := newLoop(4)
	defer l.stop(time.Second)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		_, err := l.submit(func() (any, error) {
			order = append(order, i)
			return nil, nil
		}, time.Second)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestSubmitTimesOutWithoutKillingLoop(t *testing.T) {
	l := newLoop(4)
	defer l.stop(2 * time.Second)

	release := make(chan struct{})
	_, err := l.submit(func() (any, error) {
		<-release
		return "late", nil
	}, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	// Unblock the stuck task; the loop keeps serving afterwards.
	close(release)
	v, err := l.submit(func() (any, error) {
		return "alive", nil
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "alive", v)
}

func TestSubmitTimesOutWhenQueueIsFull(t *testing.T) {
	l := newLoop(1)

	release := make(chan struct{})
	started := make(chan struct{})
	blocker := &task{run: func() (any, error) {
		close(started)
		<-release
		return nil, nil
	}, done: make(chan taskResult, 1)}
	l.tasks <- blocker
	<-started

	// Occupy the single buffer slot while the loop is stuck.
	queued := &task{run: func() (any, error) { return nil, nil }, done: make(chan taskResult, 1)}
	l.tasks <- queued

	// The enqueue itself must honor the timeout, not just the result wait.
	start := time.Now()
	_, err := l.submit(func() (any, error) { return nil, nil }, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	close(release)
	require.NoError(t, l.stop(2*time.Second))
}

func TestSubmitRecoversFromPanic(t *testing.T) {
	l := newLoop(4)
	defer l.stop(time.Second)

	_, err := l.submit(func() (any, error) {
		panic("browser crashed")
	}, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser task panicked")

	// The loop goroutine survives the panic.
	v, err := l.submit(func() (any, error) {
		return "still here", nil
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "still here", v)
}

func TestSubmitAfterStop(t *testing.T) {
	l := newLoop(4)
	require.NoError(t, l.stop(time.Second))

	_, err := l.submit(func() (any, error) {
		return nil, nil
	}, time.Second)
	assert.ErrorIs(t, err, ErrLoopClosed)
}

func TestStopIsIdempotent(t *testing.T) {
	l := newLoop(4)
	require.NoError(t, l.stop(time.Second))
	require.NoError(t, l.stop(time.Second))
}
