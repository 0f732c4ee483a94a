package nara

import "sync"

// Channel is the minimal oneshot cross-thread primitive of §12: Send
// stores a value and wakes whatever waker Recv last registered; Recv polls
// once, registering its waker if nothing has arrived yet.
//
// Unlike the task system, Channel is explicitly safe to Send from any
// goroutine (§8 scenario 2): the value write happens-before the waker
// invocation, and Waker.Wake itself already handles the cross-thread
// self-pipe edge, so Channel needs no synchronization of its own beyond
// the mutex protecting its fields.
type Channel[T any] struct {
	mu     sync.Mutex
	has    bool
	value  T
	closed bool
	waiter Waker
}

// NewChannel returns an empty, open Channel.
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{}
}

// Send stores v and wakes a pending receiver, if any. Sending more than
// once overwrites any value that was never received — Channel is a oneshot
// slot, not a queue.
func (c *Channel[T]) Send(v T) {
	c.mu.Lock()
	c.has = true
	c.value = v
	w := c.waiter
	c.waiter = Waker{}
	c.mu.Unlock()
	w.Wake()
}

// Close marks the channel closed; a pending or future Recv observes
// ErrChannelClosed once no value is available.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	c.closed = true
	w := c.waiter
	c.waiter = Waker{}
	c.mu.Unlock()
	w.Wake()
}

// Recv implements Future[Outcome[T]]: ready(value) once Send has been
// called, ready(zero, ErrChannelClosed) once Close has been called with no
// pending value, otherwise pending with w registered to be woken by the
// next Send or Close.
func (c *Channel[T]) Recv(w Waker) (Outcome[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.has {
		c.has = false
		return Outcome[T]{Value: c.value}, true
	}
	if c.closed {
		return Outcome[T]{Err: ErrChannelClosed}, true
	}
	c.waiter = w
	return Outcome[T]{}, false
}

// AsFuture adapts Recv to the Future[Outcome[T]] interface for use with
// Spawn/RunValue/Timeout.
func (c *Channel[T]) AsFuture() Future[Outcome[T]] {
	return FutureFunc[Outcome[T]](c.Recv)
}
