package nara

import "time"

// Sleep is a future that becomes ready once its deadline has passed
// (§4.2 "Integration: each sleep(duration) future owns an entry_id").
// The zero value is not usable; construct with NewSleep.
type Sleep struct {
	ex       *Executor
	deadline time.Time
	entryID  uint64
	armed    bool
	done     bool
}

// NewSleep returns a Sleep future that completes after d has elapsed.
func NewSleep(ex *Executor, d time.Duration) *Sleep {
	return &Sleep{ex: ex, deadline: time.Now().Add(d)}
}

// Poll implements Future[struct{}]. First poll inserts the timer entry and
// registers its waker; subsequent polls check whether the stored deadline
// has passed and, if not, re-register the current waker (§4.2
// Integration) — necessary because a new Waker may be handed in on each
// poll call.
func (s *Sleep) Poll(w Waker) (struct{}, bool) {
	if s.done {
		return struct{}{}, true
	}
	if !time.Now().Before(s.deadline) {
		s.done = true
		if s.armed {
			s.ex.timers.cancel(s.entryID)
		}
		return struct{}{}, true
	}
	if !s.armed {
		s.entryID = s.ex.timers.insert(s.deadline)
		s.armed = true
	}
	s.ex.timers.setWaker(s.entryID, w)
	return struct{}{}, false
}

// Cancel releases the underlying timer entry without waiting for it to
// fire, the idiomatic-Go stand-in for dropping the future (§5: "Dropping a
// sleep future cancels its timer entry").
func (s *Sleep) Cancel() {
	if s.armed && !s.done {
		s.ex.timers.cancel(s.entryID)
	}
	s.done = true
}

// Timeout races fut against a Sleep of duration d, returning fut's value
// if it wins, or ErrTimeout if the sleep wins first (§5, §12). The loser's
// resources are released before Timeout returns: a losing Sleep has its
// timer entry cancelled explicitly, and a losing fut is cancelled through
// Canceler if it implements it (otherwise it is simply no longer polled).
func Timeout[T any](ex *Executor, fut Future[T], d time.Duration) Future[Outcome[T]] {
	sleep := NewSleep(ex, d)
	var decided bool
	return FutureFunc[Outcome[T]](func(w Waker) (Outcome[T], bool) {
		if decided {
			return Outcome[T]{}, false
		}
		if v, ready := fut.Poll(w); ready {
			decided = true
			sleep.Cancel()
			return Outcome[T]{Value: v}, true
		}
		if _, ready := sleep.Poll(w); ready {
			decided = true
			if c, ok := fut.(Canceler); ok {
				c.Cancel()
			}
			return Outcome[T]{Err: ErrTimeout}, true
		}
		return Outcome[T]{}, false
	})
}
