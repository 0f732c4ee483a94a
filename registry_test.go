package nara

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadyQueue_DrainIsEmptiedAndReusable(t *testing.T) {
	q := newReadyQueue()
	require.True(t, q.empty())

	q.push(1)
	q.push(2)
	require.False(t, q.empty())

	jobs := q.drain()
	require.Equal(t, []uint64{1, 2}, jobs)
	require.True(t, q.empty())

	q.push(3)
	require.Equal(t, []uint64{3}, q.drain())
}

// TestReadyQueue_PushDuringDrainLandsInNextBatch models the executor's
// double-buffer guarantee (§4.4): a push that happens while iterating a
// previously drained batch must not be visible in that same batch.
func TestReadyQueue_PushDuringDrainLandsInNextBatch(t *testing.T) {
	q := newReadyQueue()
	q.push(1)
	q.push(2)

	batch := q.drain()
	require.Equal(t, []uint64{1, 2}, batch)
	for range batch {
		q.push(99) // simulates a waker firing mid-tick
	}

	next := q.drain()
	require.Equal(t, []uint64{99, 99}, next)
}

func TestRegistry_InsertGet(t *testing.T) {
	r := newRegistry()
	c := &taskCell{id: r.allocID()}
	r.insert(c)

	got := r.get(c.id)
	require.Same(t, c, got)
	require.Nil(t, r.get(c.id+1))
}

func TestRegistry_AllocIDIsMonotonic(t *testing.T) {
	r := newRegistry()
	a := r.allocID()
	b := r.allocID()
	require.Less(t, a, b)
}

// TestRegistry_CompleteScavengesWhenNoHandles covers the "a task cell is
// destroyed once it is completed and no JoinHandle references it" rule:
// completing a cell whose only handle was already detached removes it from
// the map immediately.
func TestRegistry_CompleteScavengesWhenNoHandles(t *testing.T) {
	r := newRegistry()
	c := &taskCell{id: r.allocID(), handles: 1}
	r.insert(c)

	r.detach(c.id) // drops the only handle before completion
	require.NotNil(t, r.get(c.id), "still present: not yet completed")

	r.complete(c, 7, nil, newLeveled(nil))
	require.Nil(t, r.get(c.id), "scavenged once completed with zero handles")
}

// TestRegistry_CompleteRetainsCellWhileHandleLive covers the opposite
// ordering: completion happens first, the handle detaches afterward.
func TestRegistry_CompleteRetainsCellWhileHandleLive(t *testing.T) {
	r := newRegistry()
	c := &taskCell{id: r.allocID(), handles: 1}
	r.insert(c)

	r.complete(c, 7, nil, newLeveled(nil))
	require.NotNil(t, r.get(c.id), "still referenced by its JoinHandle")

	r.detach(c.id)
	require.Nil(t, r.get(c.id), "scavenged once the last handle detaches")
}

// recordingLogger captures every Log call for assertions, instead of
// writing anywhere.
type recordingLogger struct {
	calls []string
}

func (l *recordingLogger) Log(level LogLevel, msg string, fields ...any) {
	l.calls = append(l.calls, msg)
}

// TestRegistry_CompleteLogsPanicOnDetachedTask covers §7's "swallowed with
// a diagnostic" requirement: a panic surfacing on a cell with no remaining
// JoinHandle must still reach the configured Logger, not vanish silently.
func TestRegistry_CompleteLogsPanicOnDetachedTask(t *testing.T) {
	r := newRegistry()
	c := &taskCell{id: r.allocID(), handles: 1}
	r.insert(c)
	r.detach(c.id)

	rec := &recordingLogger{}
	r.complete(c, nil, &PanicError{Value: "boom"}, newLeveled(rec))

	require.Len(t, rec.calls, 1)
	require.Nil(t, r.get(c.id))
}

// TestRegistry_CompleteDoesNotLogWhenHandleStillLive covers the opposite:
// a JoinHandle still referencing the cell will observe the panic itself, so
// no diagnostic is needed.
func TestRegistry_CompleteDoesNotLogWhenHandleStillLive(t *testing.T) {
	r := newRegistry()
	c := &taskCell{id: r.allocID(), handles: 1}
	r.insert(c)

	rec := &recordingLogger{}
	r.complete(c, nil, &PanicError{Value: "boom"}, newLeveled(rec))

	require.Empty(t, rec.calls)
}

// TestTaskCell_AddJoinWaiterFiresImmediatelyIfAlreadyCompleted covers the
// race addJoinWaiter guards against: a JoinHandle registering its waker
// after the task has already completed must be woken right away rather
// than parked in joinWaiters forever.
func TestTaskCell_AddJoinWaiterFiresImmediatelyIfAlreadyCompleted(t *testing.T) {
	c := &taskCell{id: 1}
	c.finish(5, nil)

	ex := &Executor{registry: newRegistry(), ready: newReadyQueue()}
	waiterTask := &taskCell{id: ex.registry.allocID(), poll: func(Waker) {}}
	ex.registry.insert(waiterTask)

	c.addJoinWaiter(Waker{taskID: waiterTask.id, ex: ex})

	require.False(t, ex.ready.empty(), "wake should have pushed the waiter's task onto the ready queue")
	require.Empty(t, c.joinWaiters, "a completed cell must not retain the waiter")
}

func TestTaskCell_TakeOutcomeReturnsStoredResultAndPanic(t *testing.T) {
	c := &taskCell{id: 1}
	c.finish(nil, &PanicError{Value: "oops"})

	result, panicVal := c.takeOutcome()
	require.Nil(t, result)
	require.NotNil(t, panicVal)
	require.Equal(t, "oops", panicVal.Value)
}
