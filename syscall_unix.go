//go:build linux || darwin

package nara

import "golang.org/x/sys/unix"

// syscall_unix.go is the shim of §4.1: EINTR retry, fd close/read, the
// single-byte self-pipe write and non-blocking mode. The pollers, the
// self-pipe constructor and the TCP adapter also call golang.org/x/sys/unix
// directly for their own syscalls. Grounded on the teacher's fd_unix.go (closeFD/readFD/writeFD), extended
// with the EINTR-retry and WouldBlock-tolerance the spec calls out.

// retryEINTR runs op until it returns something other than EINTR.
// Signal-interruption is retried internally and never surfaces (§7
// SyscallInterrupted).
func retryEINTR(op func() (int, error)) (int, error) {
	for {
		n, err := op()
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// closeFD closes fd, ignoring EINTR.
func closeFD(fd int) error {
	err := unix.Close(fd)
	if err == unix.EINTR {
		return nil
	}
	return err
}

// readFD reads into buf, retrying EINTR and treating EAGAIN/EWOULDBLOCK as
// the expected "no data yet" signal: n=0, wouldBlock=true, err=nil.
func readFD(fd int, buf []byte) (n int, wouldBlock bool, err error) {
	n, err = retryEINTR(func() (int, error) { return unix.Read(fd, buf) })
	if err == unix.EAGAIN {
		return 0, true, nil
	}
	return n, false, err
}

// writeByteFD writes a single byte to fd, tolerant of "would block" — treated
// as success, since a wakeup byte is already pending (§4.1(c)).
func writeByteFD(fd int, b byte) error {
	buf := [1]byte{b}
	_, err := retryEINTR(func() (int, error) { return unix.Write(fd, buf[:]) })
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

// setNonblock marks fd non-blocking, required for every fd the reactor
// ever registers (self-pipe included).
func setNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}
