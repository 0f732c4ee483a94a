package nara

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// blockingPool bounds the number of concurrently in-flight SpawnBlocking
// goroutines with a weighted semaphore (§11: golang.org/x/sync/semaphore),
// grounded on the teacher's Promisify (eventloop/promisify.go) for the
// goroutine-tracking and panic-safety shape, generalized from "fire into
// the loop's promise machinery" to "deposit into a completion cell and wake
// a waker". A runtime.Goexit inside fn deposits nothing, so that handle
// never completes.
type blockingPool struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func newBlockingPool(size int64) *blockingPool {
	if size <= 0 {
		size = 1 << 20 // effectively unbounded
	}
	return &blockingPool{sem: semaphore.NewWeighted(size)}
}

func (p *blockingPool) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

// blockingCell is the "task-cell-like completion cell" of §4.4
// spawn_blocking: written once by the pool worker, then read-only — the
// write happens strictly before the self-pipe byte that wakes the
// executor, establishing the happens-before edge §5 requires.
//
// poll re-raises a stored error as a panic rather than surfacing it as a
// plain Outcome.Err: the cell is always wrapped in a real Spawn (below), so
// routing failures through the same recover-into-PanicError path Spawn
// already uses gives spawn_blocking the same JoinHandle<T> accounting and
// "re-raised on join" semantics as a panic inside an ordinary task (§7),
// instead of a second, parallel error channel.
type blockingCell[T any] struct {
	mu     sync.Mutex
	done   bool
	value  T
	err    error
	waiter Waker
}

func (c *blockingCell[T]) poll(w Waker) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done {
		c.waiter = w
		var zero T
		return zero, false
	}
	if c.err != nil {
		// Re-raise the original panic value verbatim rather than the
		// *PanicError wrapping it, so the wrapping Spawn's recover produces
		// a single-level PanicError instead of one nested inside another.
		if pe, ok := c.err.(*PanicError); ok {
			panic(pe.Value)
		}
		panic(c.err)
	}
	return c.value, true
}

func (c *blockingCell[T]) deposit(v T, err error) {
	c.mu.Lock()
	c.done = true
	c.value = v
	c.err = err
	w := c.waiter
	c.waiter = Waker{}
	c.mu.Unlock()
	w.Wake()
}

// SpawnBlocking hands fn to the external thread pool (§4.4), returning the
// same JoinHandle<T> surface as Spawn (§6: spawn_blocking's declared return
// type) rather than a bare Future — the handle is registered in the task
// registry and ready-queue exactly like any other spawned task, so it gets
// poll-for-completion and Detach accounting, even though fn itself runs on
// its own OS thread outside the executor's single-thread guarantee and must
// not touch task/reactor/timer state directly.
func SpawnBlocking[T any](ex *Executor, fn func() (T, error)) *JoinHandle[T] {
	cell := &blockingCell[T]{}

	ex.blockingPool.mu.Lock()
	closed := ex.blockingPool.closed
	if !closed {
		ex.blockingPool.wg.Add(1)
	}
	ex.blockingPool.mu.Unlock()
	if closed {
		cell.deposit(zeroValue[T](), ErrPoolClosed)
		// The pool is only closed by Executor.Close, so no drive loop will
		// ever poll this task: poll it once here to settle the handle.
		h := Spawn[T](ex, FutureFunc[T](cell.poll))
		ex.pollTask(h.id)
		return h
	}

	ctx := context.Background()
	if err := ex.blockingPool.sem.Acquire(ctx, 1); err != nil {
		ex.blockingPool.wg.Done()
		cell.deposit(zeroValue[T](), err)
		return Spawn[T](ex, FutureFunc[T](cell.poll))
	}

	go func() {
		defer ex.blockingPool.wg.Done()
		defer ex.blockingPool.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				cell.deposit(zeroValue[T](), &PanicError{Value: r, Stack: capturedStack()})
			}
		}()
		v, err := fn()
		cell.deposit(v, err)
	}()

	return Spawn[T](ex, FutureFunc[T](cell.poll))
}

func zeroValue[T any]() T {
	var z T
	return z
}
