package nara

// Outcome is the result observed through a JoinHandle: either the task's
// produced value, or the panic it raised (§7: "JoinHandle awaiting it
// observes the panic (re-raised on join)"). This is the idiomatic-Go
// rendering of Rust's Result<T, JoinError> — an explicit error field
// instead of a second enum variant.
type Outcome[T any] struct {
	Value T
	Err   error
}

// JoinHandle is both a handle to a spawned task and itself a Future: it can
// be polled directly, or awaited from inside another task's Poll by
// forwarding the Waker it is given.
//
// A JoinHandle that is never polled to completion and never Detach'd keeps
// its task cell alive past completion (§3, "destroyed once completed and
// no JoinHandle references it") — callers that only care about a task's
// side effects, not its result, should call Detach once spawned.
type JoinHandle[T any] struct {
	id       uint64
	ex       *Executor
	consumed bool
}

// Poll implements Future[Outcome[T]]. Once it has returned (outcome, true)
// once, the handle is spent: further calls return the zero Outcome and
// false, the same "polled after ready" misuse contract as any other
// Future.
func (h *JoinHandle[T]) Poll(w Waker) (Outcome[T], bool) {
	if h.consumed || h.ex == nil {
		var zero Outcome[T]
		return zero, false
	}
	cell := h.ex.registry.get(h.id)
	if cell == nil {
		var zero Outcome[T]
		return zero, false
	}
	if !cell.completed.load() {
		cell.addJoinWaiter(w)
		var zero Outcome[T]
		return zero, false
	}

	result, panicVal := cell.takeOutcome()
	h.consumed = true
	h.ex.registry.detach(h.id)

	out := Outcome[T]{}
	if panicVal != nil {
		out.Err = panicVal
	} else if result != nil {
		out.Value = result.(T)
	}
	return out, true
}

// Detach relinquishes this handle's reference to the underlying task
// without waiting for it to complete, the idiomatic-Go stand-in for
// dropping a JoinHandle in the source design (§3 GLOSSARY "Detach"):
// the task keeps running (or keeps its output around, briefly, if already
// done) but nothing will ever observe its outcome through this handle
// again. Calling it again, or after Poll has returned the outcome, is a
// no-op.
func (h *JoinHandle[T]) Detach() {
	if h.consumed || h.ex == nil {
		return
	}
	h.consumed = true
	h.ex.registry.detach(h.id)
}
