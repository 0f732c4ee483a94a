package nara

import "time"

// ioEvents is a small bitmask of readiness interests, kept separate from
// any particular platform's wire representation (grounds: eventloop's
// poller_linux.go IOEvents bitmask, generalized across epoll and kqueue).
type ioEvents uint32

const (
	eventRead ioEvents = 1 << iota
	eventWrite
	eventError
	eventHangup
)

// readyEvent is one fd's readiness result from a poller wait call.
type readyEvent struct {
	fd     int
	events ioEvents
}

// poller is the platform-specific readiness-polling syscall façade behind
// the Reactor (§4.1, §4.3): epoll on Linux, kqueue on Darwin. It knows
// nothing about wakers or tasks — only fds and interest bitmasks — mirroring
// the spec's "the reactor does not know about tasks; it only knows about
// wakers" layering one level down: the poller does not even know about
// wakers.
type poller interface {
	// registerFD begins observing fd for the given interests.
	registerFD(fd int, events ioEvents) error
	// modifyFD replaces fd's interest set.
	modifyFD(fd int, events ioEvents) error
	// unregisterFD stops observing fd.
	unregisterFD(fd int) error
	// wait blocks up to timeout for at least one registered fd to become
	// ready, returning the ready set. A zero timeout does not block; a
	// negative timeout blocks until an fd is ready.
	wait(timeout time.Duration) ([]readyEvent, error)
	// close releases the underlying kernel object (epoll/kqueue fd).
	close() error
}

// newPlatformPoller is implemented per-OS in poller_linux.go / poller_darwin.go.
