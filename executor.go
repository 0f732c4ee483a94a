package nara

import (
	"runtime"
	"strconv"
	"time"
)

// platformMaxWait is the upper clamp on a single reactor turn, matching the
// teacher's calculateTimeout ceiling (eventloop/loop.go maxDelay) rather
// than inventing a new constant.
const platformMaxWait = 10 * time.Second

// Executor is the single-threaded drive loop described by §4.5: it owns a
// task registry, a ready-queue, a timer wheel and a reactor, and blocks the
// calling goroutine inside RunValue until the root future completes.
//
// An Executor is not safe for concurrent use by multiple goroutines except
// through the specific cross-thread touchpoints the design calls out:
// Waker.Wake, SpawnBlocking's completion path, and Channel.Send.
type Executor struct {
	registry *registry
	ready    *readyQueue
	timers   *timers
	reactor  *Reactor

	state     atomicState
	runnerGID uint64 // goroutine id currently inside RunValue; 0 when idle

	rootCell *taskCell

	opts    executorOptions
	log     Logger
	metrics *Metrics

	blockingPool *blockingPool
}

// New constructs an Executor with its reactor, timer wheel and task
// registry already bootstrapped (§4.5 step 1), so Spawn may be called
// before the first RunValue.
func New(opts ...Option) (*Executor, error) {
	o := defaultExecutorOptions()
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&o)
		}
	}

	if o.autoGOMAXPROCS {
		applyAutoGOMAXPROCS(o.log)
	}
	if o.autoGOMEMLIMIT {
		applyAutoGOMEMLIMIT(o.log)
	}

	reactor, err := newReactor()
	if err != nil {
		return nil, err
	}
	reactor.log = o.log

	ex := &Executor{
		registry: newRegistry(),
		ready:    newReadyQueue(),
		timers:   newTimers(),
		reactor:  reactor,
		opts:     o,
		log:      o.log,
	}
	if o.metricsEnabled {
		ex.metrics = newMetrics()
	}
	ex.blockingPool = newBlockingPool(o.blockingPoolSize)
	return ex, nil
}

// logger returns the configured Logger, falling back to the no-op logger
// when it is nil.
func (ex *Executor) logger() leveledLogger {
	return newLeveled(ex.log)
}

// Metrics returns the runtime's diagnostic counters, or nil if WithMetrics
// was not supplied to New.
func (ex *Executor) Metrics() *Metrics {
	return ex.metrics
}

// Close releases the reactor's self-pipe and epoll/kqueue descriptor and
// shuts down the blocking-offload pool. Close is idempotent. It must not be
// called while a RunValue is in flight on another goroutine.
func (ex *Executor) Close() error {
	ex.state.store(stateClosed)
	ex.blockingPool.close()
	return ex.reactor.close()
}

// wake is the target of every Waker.Wake call: it enqueues the task,
// coalescing against its in-queue flag (§4.4), and, if the executor is
// currently blocked in reactor.turn, writes the self-pipe to unblock it
// (§4.5 step 4, §5).
func (ex *Executor) wake(id uint64) {
	cell := ex.registry.get(id)
	if cell == nil {
		return
	}
	if !cell.inQueue.compareAndSwap(false, true) {
		return
	}
	ex.ready.push(id)
	if ex.state.load() == stateSleeping {
		ex.reactor.wakeSelf()
	}
}

// currentGoroutineID extracts the numeric goroutine id from runtime.Stack,
// the same trick the teacher's getGoroutineID uses (eventloop/loop.go) to
// detect whether the caller is the loop's own goroutine.
func currentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := string(buf[:n])
	// Expected prefix: "goroutine 123 [running]:"
	const prefix = "goroutine "
	if len(s) <= len(prefix) {
		return 0
	}
	s = s[len(prefix):]
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	id, _ := strconv.ParseUint(s[:end], 10, 64)
	return id
}

// RunValue drives ex until fut completes, returning its value (§4.5
// block_on). Only one RunValue may be in flight on a given Executor at a
// time; calling it re-entrantly from the same goroutine (e.g. a task's
// Poll calling RunValue on the executor that is polling it) returns
// ErrNestedRun rather than deadlocking.
func RunValue[T any](ex *Executor, fut Future[T]) (T, error) {
	var zero T

	gid := currentGoroutineID()
	if !ex.state.cas(stateIdle, stateRunning) {
		if ex.state.load() == stateClosed {
			return zero, ErrExecutorClosed
		}
		return zero, ErrNestedRun
	}
	ex.runnerGID = gid
	defer func() {
		ex.runnerGID = 0
		ex.state.store(stateClosed)
	}()

	cell := &taskCell{id: ex.registry.allocID(), handles: 1}
	var result T
	var outcomeErr error
	cell.poll = func(w Waker) {
		defer func() {
			if r := recover(); r != nil {
				outcomeErr = &PanicError{Value: r, Stack: capturedStack()}
				ex.registry.complete(cell, nil, outcomeErr.(*PanicError), ex.logger())
			}
		}()
		v, ready := fut.Poll(w)
		if ready {
			result = v
			ex.registry.complete(cell, v, nil, ex.logger())
		}
	}
	ex.registry.insert(cell)
	cell.inQueue.store(true)
	ex.ready.push(cell.id)
	ex.rootCell = cell

	for {
		if ex.tick() {
			break
		}
	}

	if cell.panicVal != nil {
		return zero, cell.panicVal
	}
	if outcomeErr != nil {
		return zero, outcomeErr
	}
	return result, nil
}

// Run is the struct{}-valued convenience form of RunValue, for root
// futures run purely for effect.
func Run(ex *Executor, fut Future[struct{}]) error {
	_, err := RunValue[struct{}](ex, fut)
	return err
}

// tick runs one pass of the executor loop (§4.5 step 3) and reports
// whether the root task has completed.
func (ex *Executor) tick() bool {
	// (a) snapshot-drain the ready queue; anything enqueued by a poll call
	// below lands in the *next* drain, not this one (fair-tick property).
	jobs := ex.ready.drain()
	for _, id := range jobs {
		ex.pollTask(id)
		if ex.metrics != nil {
			ex.metrics.recordPoll()
		}
	}

	// (b)
	if ex.rootCell.completed.load() {
		return true
	}

	// (c)
	maxWait := platformMaxWait
	if d, ok := ex.timers.nextDeadline(); ok {
		if w := time.Until(d); w < maxWait {
			if w < 0 {
				w = 0
			}
			maxWait = w
		}
	}

	// (d)
	ex.state.store(stateSleeping)
	// Tasks woken during this tick's polls are already queued: turn the
	// reactor without blocking so they run on the next tick. Checked after
	// entering stateSleeping, so a concurrent wake either is seen here or
	// writes the self-pipe.
	if !ex.ready.empty() {
		maxWait = 0
	}
	ex.reactor.turn(maxWait)
	ex.state.store(stateRunning)

	// (e)
	for _, w := range ex.timers.drainExpired(time.Now()) {
		w.Wake()
	}

	if ex.metrics != nil {
		ex.metrics.recordTick(len(jobs) == 0)
	}
	return ex.rootCell.completed.load()
}
