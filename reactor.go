package nara

import (
	"sync"
	"time"
)

// Token is the opaque handle an I/O adapter holds for one fd registration
// (§3 "Reactor registration", §4.3 "register(fd, interest) -> token").
type Token int

// registration is the reactor's record of interest in one fd: the
// currently-armed interest bitmask plus, per interest, the waker to fire
// on the next matching readiness edge. The reactor deliberately stores no
// reference to whatever task or adapter owns the fd (§4.3 design
// decisions: "The reactor does not know about tasks; it only knows about
// wakers").
type registration struct {
	fd         int
	interests  ioEvents
	readWaker  Waker
	writeWaker Waker
}

// Reactor owns registered file descriptors and the self-pipe, and blocks
// in the platform readiness-polling syscall bounded by the executor's
// computed max_wait (§4.3).
type Reactor struct {
	mu     sync.Mutex
	p      poller
	pipe   *selfPipe
	regs   map[int]*registration
	closed bool
	log    Logger
}

func newReactor() (*Reactor, error) {
	p, err := newPlatformPoller()
	if err != nil {
		return nil, err
	}
	pipe, err := newSelfPipe()
	if err != nil {
		_ = p.close()
		return nil, err
	}
	if err := p.registerFD(pipe.readFD, eventRead); err != nil {
		_ = pipe.close()
		_ = p.close()
		return nil, err
	}
	return &Reactor{p: p, pipe: pipe, regs: make(map[int]*registration, 16)}, nil
}

// Register begins observing fd for interest, returning a token the caller
// uses for subsequent SetWaker/Deregister calls (§4.3).
func (r *Reactor) Register(fd int, interest ioEvents) (Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrReactorClosed
	}
	if _, exists := r.regs[fd]; exists {
		return 0, ErrFDAlreadyRegistered
	}
	if err := setNonblock(fd); err != nil {
		return 0, &SyscallError{Op: "set_nonblock", Err: err}
	}
	if err := r.p.registerFD(fd, interest); err != nil {
		return 0, err
	}
	r.regs[fd] = &registration{fd: fd, interests: interest}
	return Token(fd), nil
}

// SetWaker records w to fire the next time interest is observed ready on
// tok's fd, replacing any previous waker for that interest (§4.3). If
// interest introduces an edge the fd was not already armed for, the
// underlying poller registration is widened.
func (r *Reactor) SetWaker(tok Token, interest ioEvents, w Waker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrReactorClosed
	}
	reg, ok := r.regs[int(tok)]
	if !ok {
		return ErrTokenUnknown
	}
	if interest&eventRead != 0 {
		reg.readWaker = w
	}
	if interest&eventWrite != 0 {
		reg.writeWaker = w
	}
	needed := reg.interests | (interest &^ (eventError | eventHangup))
	if needed != reg.interests {
		if err := r.p.modifyFD(reg.fd, needed); err != nil {
			return err
		}
		reg.interests = needed
	}
	return nil
}

// Deregister removes all state for tok's fd (§4.3). Idempotent: calling it
// twice, or on an already-closed reactor, is a harmless no-op — the
// matching invariant for "dropping an I/O adapter deregisters its reactor
// token" (§5) must hold even if the drop races a reactor shutdown.
func (r *Reactor) Deregister(tok Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[int(tok)]
	if !ok {
		return nil
	}
	delete(r.regs, reg.fd)
	if r.closed {
		return nil
	}
	return r.p.unregisterFD(reg.fd)
}

// turn blocks in the readiness-polling syscall up to maxWait, then invokes
// the waker registered for every ready interest, clearing that slot first
// (§4.3: "takes the stored waker for that interest, leaving the slot
// empty, and invokes it").
func (r *Reactor) turn(maxWait time.Duration) {
	if maxWait < 0 {
		maxWait = 0
	}
	if maxWait > platformMaxWait {
		maxWait = platformMaxWait
	}

	events, err := r.p.wait(maxWait)
	if err != nil {
		r.logger().Error("reactor poll failed", "error", err)
		return
	}

	for _, ev := range events {
		if ev.fd == r.pipe.readFD {
			r.pipe.drain()
			continue
		}

		r.mu.Lock()
		reg, ok := r.regs[ev.fd]
		var readW, writeW Waker
		if ok {
			if ev.events&(eventRead|eventError|eventHangup) != 0 && !reg.readWaker.IsZero() {
				readW, reg.readWaker = reg.readWaker, Waker{}
			}
			if ev.events&(eventWrite|eventError|eventHangup) != 0 && !reg.writeWaker.IsZero() {
				writeW, reg.writeWaker = reg.writeWaker, Waker{}
			}
		}
		r.mu.Unlock()

		if !readW.IsZero() {
			readW.Wake()
		}
		if !writeW.IsZero() {
			writeW.Wake()
		}
	}
}

// wakeSelf writes a byte to the self-pipe, unblocking a concurrent turn
// from any thread (§4.5 step 4).
func (r *Reactor) wakeSelf() {
	r.pipe.wake()
}

func (r *Reactor) logger() leveledLogger {
	return newLeveled(r.log)
}

func (r *Reactor) close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()
	err1 := r.pipe.close()
	err2 := r.p.close()
	if err1 != nil {
		return err1
	}
	return err2
}
