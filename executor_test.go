package nara

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// yieldN is a Future that reports pending n times, waking itself
// immediately each time, before reporting ready. Used to exercise
// multi-tick scheduling without any I/O.
type yieldN struct {
	remaining int
}

func (y *yieldN) Poll(w Waker) (struct{}, bool) {
	if y.remaining <= 0 {
		return struct{}{}, true
	}
	y.remaining--
	w.Wake()
	return struct{}{}, false
}

func TestRunValue_ReadyImmediately(t *testing.T) {
	ex, err := New()
	require.NoError(t, err)
	defer ex.Close()

	out, err := RunValue[int](ex, Ready(42))
	require.NoError(t, err)
	require.Equal(t, 42, out)
}

func TestRunValue_MultiTickYield(t *testing.T) {
	ex, err := New()
	require.NoError(t, err)
	defer ex.Close()

	_, err = RunValue[struct{}](ex, &yieldN{remaining: 50})
	require.NoError(t, err)
}

// spawnThenSleep spawns work once, detaches it, then waits out sleepFor —
// a stateful Future so that spawning and the sleep each happen exactly
// once across however many polls it takes to complete.
type spawnThenSleep struct {
	ex       *Executor
	work     Future[struct{}]
	sleepFor time.Duration
	started  bool
	sleep    *Sleep
}

func (s *spawnThenSleep) Poll(w Waker) (struct{}, bool) {
	if !s.started {
		Spawn[struct{}](s.ex, s.work).Detach()
		s.sleep = NewSleep(s.ex, s.sleepFor)
		s.started = true
	}
	return s.sleep.Poll(w)
}

// TestSpawnDetach_CounterReachesTarget is scenario 4 of the end-to-end
// properties: spawn a task that increments a shared counter over many
// yields, detach its JoinHandle immediately, and confirm the task still
// runs to completion by the time a sibling sleep elapses.
func TestSpawnDetach_CounterReachesTarget(t *testing.T) {
	ex, err := New()
	require.NoError(t, err)
	defer ex.Close()

	counter := 0
	const target = 1000

	counterTask := FutureFunc[struct{}](func(w Waker) (struct{}, bool) {
		counter++
		if counter >= target {
			return struct{}{}, true
		}
		w.Wake()
		return struct{}{}, false
	})

	root := &spawnThenSleep{ex: ex, work: counterTask, sleepFor: 20 * time.Millisecond}
	_, err = RunValue[struct{}](ex, root)
	require.NoError(t, err)
	require.Equal(t, target, counter)
}

func TestSpawnJoinHandle_ObservesValue(t *testing.T) {
	ex, err := New()
	require.NoError(t, err)
	defer ex.Close()

	h := Spawn[int](ex, Ready(7))
	out, err := RunValue[Outcome[int]](ex, FutureFunc[Outcome[int]](func(w Waker) (Outcome[int], bool) {
		return h.Poll(w)
	}))
	require.NoError(t, err)
	require.Equal(t, 7, out.Value)
	require.NoError(t, out.Err)
}

func TestJoinHandle_PanicPropagates(t *testing.T) {
	ex, err := New()
	require.NoError(t, err)
	defer ex.Close()

	panicker := FutureFunc[int](func(w Waker) (int, bool) {
		panic("boom")
	})

	h := Spawn[int](ex, panicker)
	out, err := RunValue[Outcome[int]](ex, FutureFunc[Outcome[int]](func(w Waker) (Outcome[int], bool) {
		return h.Poll(w)
	}))
	require.NoError(t, err)
	require.Error(t, out.Err)
	var pe *PanicError
	require.True(t, errors.As(out.Err, &pe))
	require.Equal(t, "boom", pe.Value)
}

func TestRunValue_NestedRunRejected(t *testing.T) {
	ex, err := New()
	require.NoError(t, err)
	defer ex.Close()

	root := FutureFunc[struct{}](func(w Waker) (struct{}, bool) {
		_, nestedErr := RunValue[int](ex, Ready(1))
		require.ErrorIs(t, nestedErr, ErrNestedRun)
		return struct{}{}, true
	})
	_, err = RunValue[struct{}](ex, root)
	require.NoError(t, err)
}

func TestRunValue_ClosedExecutorRejected(t *testing.T) {
	ex, err := New()
	require.NoError(t, err)
	_, err = RunValue[struct{}](ex, Ready(struct{}{}))
	require.NoError(t, err)

	_, err = RunValue[int](ex, Ready(1))
	require.ErrorIs(t, err, ErrExecutorClosed)
}
