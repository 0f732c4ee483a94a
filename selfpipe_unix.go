//go:build linux || darwin

package nara

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// selfPipe is the pair of fds created at runtime startup described by §3
// "Self-pipe": the read end is registered with the reactor for
// readability; a byte written to the write end (from any thread) unblocks
// a reactor turn that is currently parked in the readiness-polling
// syscall.
//
// Deliberately a real pipe(2), not an eventfd: the teacher's own
// wakeup_linux.go uses a Linux-only eventfd for this role, but the design
// here calls for "unnamed pipe creation returning two non-blocking fds"
// (§4.1(b)) so the same implementation works unmodified on Darwin, which
// has no eventfd.
type selfPipe struct {
	readFD, writeFD int
	pending         atomic.Bool
}

func newSelfPipe() (*selfPipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, &SyscallError{Op: "pipe2", Err: err}
	}
	return &selfPipe{readFD: fds[0], writeFD: fds[1]}, nil
}

// wake writes a single byte if one is not already pending. The pending
// flag is the "atomic flag guarding the pending wake byte" from §9: one
// byte suffices regardless of how many wakers fire concurrently, so
// concurrent wakers coalesce onto a single write.
func (p *selfPipe) wake() {
	if !p.pending.CompareAndSwap(false, true) {
		return
	}
	if err := writeByteFD(p.writeFD, 1); err != nil {
		// A self-pipe that cannot be written to leaves the reactor unable
		// to ever be woken from another thread again: per §7 this is
		// unrecoverable.
		panic(&SyscallError{Op: "selfpipe write", Err: err})
	}
}

// drain empties the read end and clears the pending flag, called by the
// reactor when the self-pipe's fd is reported ready (§4.3: "The self-pipe's
// ready bytes are drained and discarded").
func (p *selfPipe) drain() {
	var buf [64]byte
	for {
		n, wouldBlock, err := readFD(p.readFD, buf[:])
		if wouldBlock || err != nil || n == 0 {
			break
		}
	}
	p.pending.Store(false)
}

func (p *selfPipe) close() error {
	err1 := closeFD(p.readFD)
	err2 := closeFD(p.writeFD)
	if err1 != nil {
		return err1
	}
	return err2
}
