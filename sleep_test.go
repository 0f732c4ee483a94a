package nara

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	ms    int
	sleep *Sleep
	done  bool
}

// joinSleeps polls each recorder's Sleep until all three report ready,
// appending each recorder's label to order as it resolves.
type joinSleeps struct {
	order *[]int
	rs    []*sleepRecorder
}

func (j *joinSleeps) Poll(w Waker) (struct{}, bool) {
	remaining := false
	for _, r := range j.rs {
		if r.done {
			continue
		}
		if _, ready := r.sleep.Poll(w); ready {
			r.done = true
			*j.order = append(*j.order, r.ms)
		} else {
			remaining = true
		}
	}
	return struct{}{}, !remaining
}

// TestSleepOrdering is scenario 1 of the end-to-end properties: three
// sleeps for 30ms, 10ms and 20ms, started at the same instant, must wake
// in deadline order regardless of the order they were constructed in.
func TestSleepOrdering(t *testing.T) {
	ex, err := New()
	require.NoError(t, err)
	defer ex.Close()

	var order []int
	rs := []*sleepRecorder{
		{ms: 30, sleep: NewSleep(ex, 30*time.Millisecond)},
		{ms: 10, sleep: NewSleep(ex, 10*time.Millisecond)},
		{ms: 20, sleep: NewSleep(ex, 20*time.Millisecond)},
	}

	start := time.Now()
	_, err = RunValue[struct{}](ex, &joinSleeps{order: &order, rs: rs})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Equal(t, []int{10, 20, 30}, order)
	require.Less(t, elapsed, 45*time.Millisecond)
}

// TestTimeout_LosingRaceReturnsErrTimeout is scenario 5: timeout(sleep(1s),
// 50ms) must resolve to ErrTimeout within roughly 50-100ms, with no
// lingering timer entry once the race has resolved.
func TestTimeout_LosingRaceReturnsErrTimeout(t *testing.T) {
	ex, err := New()
	require.NoError(t, err)
	defer ex.Close()

	slow := NewSleep(ex, time.Second)
	start := time.Now()
	out, err := RunValue[Outcome[struct{}]](ex, Timeout[struct{}](ex, slow, 50*time.Millisecond))
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.ErrorIs(t, out.Err, ErrTimeout)
	require.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	require.Less(t, elapsed, 100*time.Millisecond)

	_, ok := ex.timers.nextDeadline()
	require.False(t, ok, "no timer entry should remain after the race resolves")
}

// TestTimeout_WinningFutureReturnsValue exercises the non-losing branch.
func TestTimeout_WinningFutureReturnsValue(t *testing.T) {
	ex, err := New()
	require.NoError(t, err)
	defer ex.Close()

	out, err := RunValue[Outcome[int]](ex, Timeout[int](ex, Ready(9), time.Second))
	require.NoError(t, err)
	require.NoError(t, out.Err)
	require.Equal(t, 9, out.Value)
}
