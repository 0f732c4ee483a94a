package nara

import "sync"

// taskCell is the heap-allocated state of one spawned task (§3 Data Model,
// "Task cell T"): its own computation, an output slot, the set of join
// waiters, a completed flag, and an in-queue flag used to coalesce
// redundant wakeups (§4.4).
//
// mu guards result, panicVal and joinWaiters: everything a completing task
// must update atomically together. inQueue and completed are atomics so
// Waker.Wake can use them lock-free from arbitrary goroutines; handles is
// guarded by the owning registry's mutex.
type taskCell struct {
	id uint64

	inQueue   atomicBool
	completed atomicBool

	// poll advances the task's computation by one step. It is nil once the
	// task has completed; its closure owns the underlying Future[T] so the
	// registry itself stays untyped.
	poll func(w Waker)

	mu          sync.Mutex
	result      any
	panicVal    *PanicError
	joinWaiters []Waker
	handles     int32 // live JoinHandle references; starts at 1 from spawn
}

func (c *taskCell) addJoinWaiter(w Waker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed.load() {
		// Completed between the caller's completed check and this lock;
		// wake immediately instead of registering.
		c.mu.Unlock()
		w.Wake()
		c.mu.Lock()
		return
	}
	c.joinWaiters = append(c.joinWaiters, w)
}

// finish records the task's outcome and fires every registered join waiter.
// Called exactly once, from the executor's poll step, on the loop thread.
func (c *taskCell) finish(result any, panicVal *PanicError) {
	c.mu.Lock()
	c.result = result
	c.panicVal = panicVal
	waiters := c.joinWaiters
	c.joinWaiters = nil
	c.poll = nil
	c.mu.Unlock()

	c.completed.store(true)
	for _, w := range waiters {
		w.Wake()
	}
}

// takeOutcome returns the stored result and panic; the cell keeps them
// until it is scavenged. Safe to call only after completed is observed true.
func (c *taskCell) takeOutcome() (any, *PanicError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.panicVal
}

// registry owns the id -> taskCell mapping. It is a plain mutex-guarded map
// rather than the teacher's weak-pointer scavenging ring (eventloop/registry.go):
// task cells here are reference-counted by explicit JoinHandle lifetime
// (spawn/detach/complete), not by promise-adapter GC pressure, so there is
// no weak-pointer staleness to reclaim in batches — a cell is deleted the
// instant its refcount and completion state say it is unobservable.
type registry struct {
	mu     sync.Mutex
	cells  map[uint64]*taskCell
	nextID uint64
}

func newRegistry() *registry {
	return &registry{cells: make(map[uint64]*taskCell, 64)}
}

func (r *registry) insert(c *taskCell) {
	r.mu.Lock()
	r.cells[c.id] = c
	r.mu.Unlock()
}

func (r *registry) get(id uint64) *taskCell {
	r.mu.Lock()
	c := r.cells[id]
	r.mu.Unlock()
	return c
}

// allocID returns the next task identifier. Identifiers are never reused
// within the lifetime of an Executor (§3: "monotonically increasing").
func (r *registry) allocID() uint64 {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.mu.Unlock()
	return id
}

// complete marks a cell completed and scavenges it from the map if no
// JoinHandle references it (handles <= 0): the destruction rule from §3,
// "a task cell is destroyed once it is completed and no JoinHandle
// references it".
//
// A panic on a cell with no remaining handles has nothing left to observe
// it: §7 requires it be "swallowed with a diagnostic" rather than silently
// dropped, so it is logged here, at the one place completion and handle
// count are both known.
func (r *registry) complete(c *taskCell, result any, panicVal *PanicError, log leveledLogger) {
	c.finish(result, panicVal)
	r.mu.Lock()
	detached := c.handles <= 0
	if detached {
		delete(r.cells, c.id)
	}
	r.mu.Unlock()
	if detached && panicVal != nil {
		log.Error("detached task panicked", "task_id", c.id, "panic", panicVal.Value)
	}
}

// detach drops one JoinHandle reference. If the task already completed and
// this was the last reference, the cell is scavenged immediately.
func (r *registry) detach(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.cells[id]
	if c == nil {
		return
	}
	c.handles--
	if c.handles <= 0 && c.completed.load() {
		delete(r.cells, id)
	}
}

// readyQueue is the FIFO of task identifiers due for polling. Draining uses
// a double-buffer swap (grounded on eventloop/loop.go's auxJobs/auxJobsSpare
// batch-drain) so that a waker invoked from inside a poll call during this
// tick's drain lands in the queue for the *next* tick rather than extending
// the current one.
type readyQueue struct {
	mu    sync.Mutex
	jobs  []uint64
	spare []uint64
}

func newReadyQueue() *readyQueue {
	return &readyQueue{jobs: make([]uint64, 0, 64), spare: make([]uint64, 0, 64)}
}

func (q *readyQueue) push(id uint64) {
	q.mu.Lock()
	q.jobs = append(q.jobs, id)
	q.mu.Unlock()
}

// drain returns every task id queued so far and leaves the queue empty.
func (q *readyQueue) drain() []uint64 {
	q.mu.Lock()
	jobs := q.jobs
	q.jobs = q.spare
	q.mu.Unlock()
	q.spare = jobs[:0]
	return jobs
}

func (q *readyQueue) empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) == 0
}
