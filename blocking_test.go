package nara

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSpawnBlocking_ReturnsValueOffThread is scenario 6 of the end-to-end
// properties: spawn_blocking sleeps 100ms then returns 7; awaiting it
// completes within roughly 100-150ms, and the closure runs on a different
// goroutine than the one driving block_on.
func TestSpawnBlocking_ReturnsValueOffThread(t *testing.T) {
	ex, err := New()
	require.NoError(t, err)
	defer ex.Close()

	callerGID := currentGoroutineID()
	var workerGID uint64

	start := time.Now()
	out, err := RunValue[Outcome[int]](ex, SpawnBlocking(ex, func() (int, error) {
		workerGID = currentGoroutineIDFromWorker()
		time.Sleep(100 * time.Millisecond)
		return 7, nil
	}))
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.NoError(t, out.Err)
	require.Equal(t, 7, out.Value)
	require.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	require.Less(t, elapsed, 150*time.Millisecond)
	require.NotZero(t, workerGID)
	require.NotEqual(t, callerGID, workerGID)
}

// currentGoroutineIDFromWorker exists only so the test above can capture an
// id from inside the SpawnBlocking closure's own goroutine.
func currentGoroutineIDFromWorker() uint64 {
	runtime.Gosched()
	return currentGoroutineID()
}

func TestSpawnBlocking_PropagatesError(t *testing.T) {
	ex, err := New()
	require.NoError(t, err)
	defer ex.Close()

	boom := errors.New("boom")
	out, err := RunValue[Outcome[int]](ex, SpawnBlocking(ex, func() (int, error) {
		return 0, boom
	}))
	require.NoError(t, err)
	require.ErrorIs(t, out.Err, boom)
}

func TestSpawnBlocking_PanicBecomesPanicError(t *testing.T) {
	ex, err := New()
	require.NoError(t, err)
	defer ex.Close()

	out, err := RunValue[Outcome[int]](ex, SpawnBlocking(ex, func() (int, error) {
		panic("kaboom")
	}))
	require.NoError(t, err)
	require.Error(t, out.Err)
	var pe *PanicError
	require.True(t, errors.As(out.Err, &pe))
	require.Equal(t, "kaboom", pe.Value)
}

func TestSpawnBlocking_AfterCloseReturnsErrPoolClosed(t *testing.T) {
	ex, err := New()
	require.NoError(t, err)
	require.NoError(t, ex.Close())

	fut := SpawnBlocking(ex, func() (int, error) { return 1, nil })
	out, ready := fut.Poll(Waker{})
	require.True(t, ready)
	require.ErrorIs(t, out.Err, ErrPoolClosed)
}
