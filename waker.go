package nara

// Waker is a callable bound to a task identifier and the executor that owns
// its ready-queue. Invoking Wake enqueues the task unless it is already
// enqueued (§3, §4.4: "invoking it enqueues the task identifier unless
// already enqueued").
//
// Wakers are comparable by value, may be cloned freely (a Waker is a plain
// struct, copying it is cloning it), and may be invoked from any goroutine:
// the cross-thread state they touch is the executor's registry and
// ready-queue (both mutex-guarded), the task cell's atomic in-queue flag,
// the executor's atomic run state and, when the executor is blocked in the
// reactor, the self-pipe.
type Waker struct {
	taskID uint64
	ex     *Executor
}

// Wake requests that the bound task be polled again. A nil Waker, or one
// bound to a task that has already completed and been scavenged, is a
// harmless no-op — this mirrors the teacher's wakeup dedup design, which
// never requires wakers to outlive what they wake.
func (w Waker) Wake() {
	if w.ex == nil {
		return
	}
	w.ex.wake(w.taskID)
}

// IsZero reports whether w is the zero Waker (never bound via spawn/poll).
func (w Waker) IsZero() bool {
	return w == Waker{}
}
