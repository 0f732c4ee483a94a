package nara

import "runtime"

// capturedStack grabs a best-effort stack trace for PanicError, trimmed to
// a size generous enough to be useful in a log line without being
// unbounded.
func capturedStack() []byte {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return buf[:n]
}

// Spawn registers fut as a new task owned by ex and returns a JoinHandle
// that can be polled (or awaited from inside another task) for its
// outcome (§4.4 "spawn"). The task is pushed onto the ready-queue
// immediately so it receives its first poll on the next tick, matching the
// teacher's "new work always gets at least one pass through the queue"
// convention (eventloop/loop.go Submit/SubmitInternal) rather than polling
// eagerly inline.
//
// Spawn must only be called from the goroutine driving ex's Run loop, or
// before that loop has started; the task system itself is not safe to call
// from other goroutines (that is what SpawnBlocking and Channel are for).
func Spawn[T any](ex *Executor, fut Future[T]) *JoinHandle[T] {
	id := ex.registry.allocID()
	cell := &taskCell{id: id, handles: 1}

	cell.poll = func(w Waker) {
		defer func() {
			if r := recover(); r != nil {
				ex.registry.complete(cell, nil, &PanicError{Value: r, Stack: capturedStack()}, ex.logger())
			}
		}()
		v, ready := fut.Poll(w)
		if ready {
			ex.registry.complete(cell, v, nil, ex.logger())
		}
	}

	ex.registry.insert(cell)
	cell.inQueue.store(true)
	ex.ready.push(id)
	ex.logger().Debug("task spawned", "task_id", id)

	return &JoinHandle[T]{id: id, ex: ex}
}

// pollTask drives one step of the task identified by id, if it still
// exists and has not already completed. Called from Executor.tick for
// every id drained from the ready-queue this tick.
func (ex *Executor) pollTask(id uint64) {
	cell := ex.registry.get(id)
	if cell == nil {
		return
	}
	// Clear in-queue before polling: a Wake that arrives during poll must
	// re-enqueue for the next tick, not be coalesced away as a duplicate
	// of the poll currently in flight (§4.4).
	cell.inQueue.store(false)
	if cell.completed.load() || cell.poll == nil {
		return
	}
	cell.poll(Waker{taskID: id, ex: ex})
}
