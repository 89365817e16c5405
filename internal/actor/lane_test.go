package actor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/txlab/internal/config"
	"github.com/phrazzld/txlab/internal/platform/logger"
)

func startLane(t *testing.T, cfg LaneConfig) *Lane {
	t.Helper()
	log, _ := logger.GetTestLogger(t)
	l := NewLane("actor-b", cfg, log)
	l.Start()
	t.Cleanup(l.Stop)
	return l
}

func TestNewLane(t *testing.T) {
	l := NewLane("b", LaneConfig{QueueSize: 5}, logger.Discard())
	assert.Equal(t, 5, cap(l.units))
	assert.Equal(t, config.DefaultPollInterval, l.cfg.PollInterval)
	assert.Equal(t, "b", l.Name())

	l = NewLane("b", LaneConfig{QueueSize: -5}, logger.Discard())
	assert.Equal(t, config.DefaultLaneQueueSize, cap(l.units))
}

func TestLane_SubmitStates(t *testing.T) {
	l := NewLane("b", DefaultLaneConfig(), logger.Discard())
	noop := func(context.Context) error { return nil }

	_, err := l.Submit(noop)
	assert.ErrorIs(t, err, ErrLaneNotStarted)

	l.Start()
	_, err = l.Submit(nil)
	assert.ErrorIs(t, err, ErrNilWork)

	h, err := l.Submit(noop)
	require.NoError(t, err)
	require.NoError(t, h.Wait(context.Background()))

	l.Stop()
	_, err = l.Submit(noop)
	assert.ErrorIs(t, err, ErrLaneClosed)
}

func TestLane_RunsInSubmissionOrder(t *testing.T) {
	l := startLane(t, DefaultLaneConfig())

	var (
		mu    sync.Mutex
		order []int
	)
	units := make([]Work, 10)
	for i := range units {
		units[i] = func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
			return nil
		}
	}

	require.NoError(t, l.RunSync(context.Background(), units...))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestLane_RunSyncDoesNotShortCircuit(t *testing.T) {
	l := startLane(t, DefaultLaneConfig())

	first := errors.New("first")
	var ran atomic.Int32
	err := l.RunSync(context.Background(),
		func(context.Context) error { ran.Add(1); return first },
		func(context.Context) error { ran.Add(1); return nil },
		func(context.Context) error { ran.Add(1); return errors.New("third") },
	)

	assert.Same(t, first, err)
	assert.EqualValues(t, 3, ran.Load())
}

func TestLane_RunSyncHonoursCallerContext(t *testing.T) {
	l := startLane(t, DefaultLaneConfig())
	release := NewLatch(1)
	defer release.CountDown()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.RunSync(ctx, func(context.Context) error {
		return release.Await(context.Background())
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLane_RunSyncFromTheLaneIsRejected(t *testing.T) {
	l := startLane(t, DefaultLaneConfig())

	var inner error
	err := l.RunSync(context.Background(), func(ctx context.Context) error {
		inner = l.RunSync(ctx, func(context.Context) error { return nil })
		return nil
	})

	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrReentrant)
}

func TestCurrentActor(t *testing.T) {
	l := startLane(t, DefaultLaneConfig())

	_, ok := CurrentActor(context.Background())
	assert.False(t, ok)

	var name string
	require.NoError(t, l.RunSync(context.Background(), func(ctx context.Context) error {
		name, ok = CurrentActor(ctx)
		logger.FromContext(ctx).Info("inside lane")
		return nil
	}))
	assert.True(t, ok)
	assert.Equal(t, "actor-b", name)
}

func TestLane_PanickingUnitIsReportedAndLaneContinues(t *testing.T) {
	l := startLane(t, DefaultLaneConfig())

	err := l.RunSync(context.Background(), func(context.Context) error { panic("kaboom") })
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "kaboom", pe.Value)

	assert.NoError(t, l.RunSync(context.Background(), func(context.Context) error { return nil }))
}

func TestLane_QueueFullAndCancel(t *testing.T) {
	l := startLane(t, LaneConfig{QueueSize: 1})

	started, release := NewLatch(1), NewLatch(1)
	running, err := l.Submit(func(context.Context) error {
		started.CountDown()
		return release.Await(context.Background())
	})
	require.NoError(t, err)
	require.NoError(t, started.Await(context.Background()))

	var queuedRan atomic.Bool
	queued, err := l.Submit(func(context.Context) error { queuedRan.Store(true); return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, l.Pending())

	_, err = l.Submit(func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)

	assert.False(t, running.Cancel(), "a started unit runs to completion")
	assert.True(t, queued.Cancel())
	assert.ErrorIs(t, queued.Err(), ErrCanceled)

	release.CountDown()
	require.NoError(t, running.Wait(context.Background()))

	require.NoError(t, l.RunSync(context.Background(), func(context.Context) error { return nil }))
	assert.False(t, queuedRan.Load())
}

func TestLane_RunSyncWaitsForQueueRoom(t *testing.T) {
	l := startLane(t, LaneConfig{QueueSize: 2})

	var (
		mu    sync.Mutex
		order []int
	)
	units := make([]Work, 10)
	for i := range units {
		units[i] = func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
			return nil
		}
	}

	require.NoError(t, l.RunSync(context.Background(), units...))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

// fillLane blocks the lane goroutine and fills its queue. The returned latch
// releases the running unit.
func fillLane(t *testing.T, l *Lane) *Latch {
	t.Helper()
	started, release := NewLatch(1), NewLatch(1)
	_, err := l.Submit(func(context.Context) error {
		started.CountDown()
		return release.Await(context.Background())
	})
	require.NoError(t, err)
	require.NoError(t, started.Await(context.Background()))
	for l.Pending() < cap(l.units) {
		_, err := l.Submit(func(context.Context) error { return nil })
		require.NoError(t, err)
	}
	return release
}

func TestLane_SubmitWaitOnFullQueue(t *testing.T) {
	t.Run("caller context ends", func(t *testing.T) {
		l := startLane(t, LaneConfig{QueueSize: 1})
		release := fillLane(t, l)
		defer release.CountDown()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := l.SubmitWait(ctx, func(context.Context) error { return nil })
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("room frees up", func(t *testing.T) {
		l := startLane(t, LaneConfig{QueueSize: 1})
		release := fillLane(t, l)

		done := make(chan error, 1)
		go func() {
			h, err := l.SubmitWait(context.Background(), func(context.Context) error { return nil })
			if err == nil {
				err = h.Wait(context.Background())
			}
			done <- err
		}()
		release.CountDown()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("blocked submission never ran")
		}
	})

	t.Run("lane stops", func(t *testing.T) {
		l := NewLane("b", LaneConfig{QueueSize: 1}, logger.Discard())
		l.Start()
		release := fillLane(t, l)

		done := make(chan error, 1)
		go func() {
			_, err := l.SubmitWait(context.Background(), func(context.Context) error { return nil })
			done <- err
		}()
		stopped := make(chan struct{})
		go func() { l.Stop(); close(stopped) }()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, ErrLaneClosed)
		case <-time.After(time.Second):
			t.Fatal("blocked submission survived Stop")
		}
		release.CountDown()
		<-stopped
	})

	t.Run("lane fails", func(t *testing.T) {
		l := startLane(t, LaneConfig{QueueSize: 1, FatalHandler: func(error) {}})
		release := fillLane(t, l)
		defer release.CountDown()

		done := make(chan error, 1)
		go func() {
			_, err := l.SubmitWait(context.Background(), func(context.Context) error { return nil })
			done <- err
		}()
		cause := errors.New("callback broke")
		l.fail(cause)

		select {
		case err := <-done:
			assert.ErrorIs(t, err, ErrLaneFailed)
			assert.ErrorIs(t, err, cause)
		case <-time.After(time.Second):
			t.Fatal("blocked submission survived lane failure")
		}

		err := l.RunSync(context.Background(), func(context.Context) error { return nil })
		assert.ErrorIs(t, err, ErrLaneFailed)
	})
}

func TestLane_RunAsync(t *testing.T) {
	l := startLane(t, LaneConfig{QueueSize: 4, PollInterval: 5 * time.Millisecond})

	release := NewLatch(1)
	completed := make(chan bool, 2)
	var calls atomic.Int32

	var h *Handle
	h, err := l.RunAsync(
		func(context.Context) error { return release.Await(context.Background()) },
		func() error {
			calls.Add(1)
			completed <- h.Finished()
			return nil
		},
	)
	require.NoError(t, err)

	select {
	case <-completed:
		t.Fatal("completion callback ran before the unit finished")
	case <-time.After(30 * time.Millisecond):
	}

	release.CountDown()
	select {
	case finished := <-completed:
		assert.True(t, finished)
	case <-time.After(time.Second):
		t.Fatal("completion callback never ran")
	}

	l.Stop()
	assert.EqualValues(t, 1, calls.Load())
}

func TestLane_RunAsyncCallbackFailureIsFatal(t *testing.T) {
	fatal := make(chan error, 1)
	l := startLane(t, LaneConfig{
		QueueSize:    4,
		PollInterval: 5 * time.Millisecond,
		FatalHandler: func(err error) { fatal <- err },
	})

	callbackErr := errors.New("assertion failed")
	_, err := l.RunAsync(
		func(context.Context) error { return nil },
		func() error { return callbackErr },
	)
	require.NoError(t, err)

	select {
	case err := <-fatal:
		assert.ErrorIs(t, err, callbackErr)
	case <-time.After(time.Second):
		t.Fatal("fatal handler never ran")
	}

	_, err = l.Submit(func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrLaneFailed)
	assert.ErrorIs(t, l.Err(), callbackErr)
}

func TestLane_RunAsyncCallbackPanicIsFatal(t *testing.T) {
	fatal := make(chan error, 1)
	l := startLane(t, LaneConfig{QueueSize: 4, FatalHandler: func(err error) { fatal <- err }})

	_, err := l.RunAsync(
		func(context.Context) error { return nil },
		func() error { panic("callback exploded") },
	)
	require.NoError(t, err)

	select {
	case err := <-fatal:
		var pe *PanicError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "callback exploded", pe.Value)
	case <-time.After(time.Second):
		t.Fatal("fatal handler never ran")
	}
}

func TestLane_StopWithoutStartCancelsQueued(t *testing.T) {
	l := NewLane("b", DefaultLaneConfig(), logger.Discard())
	l.Stop()
	_, err := l.Submit(func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrLaneClosed)
}
