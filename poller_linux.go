//go:build linux

package nara

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux realization of poller, grounded on the
// teacher's eventloop/poller_linux.go FastPoller: epoll_create1, EpollCtl
// ADD/MOD/DEL, and a reusable EpollEvent buffer for epoll_wait. Simplified
// relative to the teacher's fixed [maxFDs]fdInfo array and RWMutex: this
// poller carries no callbacks or generation counters of its own — the
// Reactor above it owns wakers and registration bookkeeping, so the poller
// only needs to translate fd <-> epoll event.
type epollPoller struct {
	epfd      int
	eventBuf  [256]unix.EpollEvent
}

func newPlatformPoller() (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, &SyscallError{Op: "epoll_create1", Err: err}
	}
	return &epollPoller{epfd: fd}, nil
}

func eventsToEpoll(ev ioEvents) uint32 {
	var e uint32
	if ev&eventRead != 0 {
		e |= unix.EPOLLIN
	}
	if ev&eventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func epollToEvents(e uint32) ioEvents {
	var ev ioEvents
	if e&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		ev |= eventRead
	}
	if e&unix.EPOLLOUT != 0 {
		ev |= eventWrite
	}
	if e&unix.EPOLLERR != 0 {
		ev |= eventError
	}
	if e&unix.EPOLLHUP != 0 {
		ev |= eventHangup
	}
	return ev
}

func (p *epollPoller) registerFD(fd int, events ioEvents) error {
	ev := &unix.EpollEvent{Events: eventsToEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return &SyscallError{Op: "epoll_ctl(ADD)", Err: err}
	}
	return nil
}

func (p *epollPoller) modifyFD(fd int, events ioEvents) error {
	ev := &unix.EpollEvent{Events: eventsToEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev); err != nil {
		return &SyscallError{Op: "epoll_ctl(MOD)", Err: err}
	}
	return nil
}

func (p *epollPoller) unregisterFD(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return &SyscallError{Op: "epoll_ctl(DEL)", Err: err}
	}
	return nil
}

func (p *epollPoller) wait(timeout time.Duration) ([]readyEvent, error) {
	ms := int(timeout / time.Millisecond)
	if timeout > 0 && ms == 0 {
		ms = 1
	}
	if timeout < 0 {
		ms = -1
	}
	n, err := retryEINTR(func() (int, error) { return unix.EpollWait(p.epfd, p.eventBuf[:], ms) })
	if err != nil {
		return nil, &SyscallError{Op: "epoll_wait", Err: err}
	}
	out := make([]readyEvent, 0, n)
	for i := 0; i < n; i++ {
		ev := p.eventBuf[i]
		out = append(out, readyEvent{fd: int(ev.Fd), events: epollToEvents(ev.Events)})
	}
	return out, nil
}

func (p *epollPoller) close() error {
	return closeFD(p.epfd)
}
