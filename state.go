package nara

import "sync/atomic"

// runState tracks the lifecycle of an Executor's single drive loop.
//
// State machine (mirrors the teacher's FastState design, trimmed to what
// a single-threaded block_on loop actually needs):
//
//	stateIdle    -> stateRunning    [Run() begins]
//	stateRunning -> stateSleeping   [about to block in reactor.turn]
//	stateSleeping -> stateRunning   [turn returned]
//	stateRunning -> stateClosed     [root task completed, or Close()]
//	stateIdle    -> stateClosed     [Close() before any Run()]
//
// Only Idle -> Running uses CAS, so that a second or nested Run is
// rejected; the Running/Sleeping flips inside the drive loop and the
// terminal Closed state are plain Stores.
type runState uint32

const (
	stateIdle runState = iota
	stateRunning
	stateSleeping
	stateClosed
)

// atomicState is a small CAS-based state cell, grounded on the teacher's
// FastState (eventloop/state.go), without the cache-line padding that
// package needs for its much hotter path.
type atomicState struct {
	v atomic.Uint32
}

func (s *atomicState) load() runState {
	return runState(s.v.Load())
}

func (s *atomicState) store(v runState) {
	s.v.Store(uint32(v))
}

func (s *atomicState) cas(from, to runState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

// atomicBool is the small coalescing flag behind the in-queue and completed
// bits on a task cell, where Waker.Wake needs lock-free CAS semantics.
type atomicBool struct {
	v atomic.Bool
}

func (b *atomicBool) load() bool { return b.v.Load() }

func (b *atomicBool) store(v bool) { b.v.Store(v) }

// compareAndSwap reports whether the swap from `from` to `to` succeeded.
func (b *atomicBool) compareAndSwap(from, to bool) bool {
	return b.v.CompareAndSwap(from, to)
}
