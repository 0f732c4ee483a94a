package nara

// Future is the unit of asynchronous computation (§3 Data Model,
// "Future/computation"). A Future advances its state machine by exactly one
// step per Poll call: it must not block, and it must not access state it
// does not own outside of the single goroutine driving the executor.
//
// Poll returns (zero, false) when the future is not yet ready to produce a
// value — before returning, it must arrange for w to be woken once it can
// make progress, or no caller will ever poll it again. Poll returns
// (value, true) exactly once, at which point the future is spent and must
// not be polled again.
//
// This is the idiomatic-Go rendering of the Poll(Waker) -> Pending|Ready
// contract described by the design notes: an explicit method instead of a
// coroutine, a typed return instead of an enum.
type Future[T any] interface {
	Poll(w Waker) (T, bool)
}

// Canceler is implemented by futures that hold releasable resources — a
// timer entry, a reactor registration — so that a combinator racing two
// futures (e.g. Timeout) can drop the loser's state instead of leaking it
// (§5 "the loser's resources are released on drop") without knowing the
// loser's concrete type. A future with nothing to release need not
// implement it; combinators treat its absence as a no-op.
type Canceler interface {
	Cancel()
}

// FutureFunc adapts a plain function to the Future interface, the way
// http.HandlerFunc adapts a function to http.Handler.
type FutureFunc[T any] func(w Waker) (T, bool)

// Poll implements Future.
func (f FutureFunc[T]) Poll(w Waker) (T, bool) {
	return f(w)
}

// Ready returns a Future that is immediately ready with v, never consulting
// its Waker. Useful for futures whose result is already known (e.g. Dial's
// early failures) and in tests.
func Ready[T any](v T) Future[T] {
	return readyFuture[T]{v: v}
}

type readyFuture[T any] struct{ v T }

func (r readyFuture[T]) Poll(Waker) (T, bool) { return r.v, true }
