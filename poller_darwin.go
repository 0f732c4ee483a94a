//go:build darwin

package nara

import (
	"time"

	"golang.org/x/sys/unix"
)

// kqueuePoller is the Darwin realization of poller, grounded on the
// teacher's eventloop/poller_darwin.go: kqueue(2) plus EV_ADD/EV_DELETE
// changelists and a reusable Kevent_t buffer.
type kqueuePoller struct {
	kq       int
	eventBuf [256]unix.Kevent_t
}

func newPlatformPoller() (poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, &SyscallError{Op: "kqueue", Err: err}
	}
	return &kqueuePoller{kq: kq}, nil
}

// eventsToKevents builds the changelist entries for fd's desired interest
// set, one Kevent_t per filter (read/write are independent kqueue
// filters, unlike epoll's single combined event).
func eventsToKevents(fd int, events ioEvents, flags uint16) []unix.Kevent_t {
	var out []unix.Kevent_t
	if events&eventRead != 0 {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&eventWrite != 0 {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return out
}

func (p *kqueuePoller) applyChangelist(changes []unix.Kevent_t) error {
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *kqueuePoller) registerFD(fd int, events ioEvents) error {
	if err := p.applyChangelist(eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE)); err != nil {
		return &SyscallError{Op: "kevent(ADD)", Err: err}
	}
	return nil
}

func (p *kqueuePoller) modifyFD(fd int, events ioEvents) error {
	// kqueue has no atomic "replace interest set" primitive; drop both
	// filters then re-add whichever are wanted. Registrations change
	// rarely (only when an adapter's interest flips read<->write), so the
	// two extra syscalls are not on any hot path.
	_ = p.applyChangelist(eventsToKevents(fd, eventRead|eventWrite, unix.EV_DELETE))
	if err := p.applyChangelist(eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE)); err != nil {
		return &SyscallError{Op: "kevent(MOD)", Err: err}
	}
	return nil
}

func (p *kqueuePoller) unregisterFD(fd int) error {
	if err := p.applyChangelist(eventsToKevents(fd, eventRead|eventWrite, unix.EV_DELETE)); err != nil {
		return &SyscallError{Op: "kevent(DEL)", Err: err}
	}
	return nil
}

func (p *kqueuePoller) wait(timeout time.Duration) ([]readyEvent, error) {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	n, err := retryEINTR(func() (int, error) { return unix.Kevent(p.kq, nil, p.eventBuf[:], ts) })
	if err != nil {
		return nil, &SyscallError{Op: "kevent(wait)", Err: err}
	}
	out := make([]readyEvent, 0, n)
	for i := 0; i < n; i++ {
		ev := p.eventBuf[i]
		var e ioEvents
		switch ev.Filter {
		case unix.EVFILT_READ:
			e = eventRead
		case unix.EVFILT_WRITE:
			e = eventWrite
		}
		if ev.Flags&unix.EV_EOF != 0 {
			e |= eventHangup
		}
		if ev.Flags&unix.EV_ERROR != 0 {
			e |= eventError
		}
		out = append(out, readyEvent{fd: int(ev.Ident), events: e})
	}
	return out, nil
}

func (p *kqueuePoller) close() error {
	return closeFD(p.kq)
}
