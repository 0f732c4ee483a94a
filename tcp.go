//go:build linux || darwin

package nara

import (
	"errors"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// tcp.go is the minimal non-blocking TCP adapter of §12/§6 ("TCP as
// representative"): Listen/Accept/Dial/Read/Write built purely on the
// Reactor's register/set_waker/deregister contract, in the spirit of the
// gaio-style watcher loop (socket515-gaio, RTradeLtd-gaio) but driven by
// this package's own Waker/Future protocol rather than callbacks.
//
// IPv4 only, and it talks to the kernel directly via golang.org/x/sys/unix
// instead of net.Listen/net.Dial: the whole point of the adapter is to
// exercise the reactor's own readiness polling, which means bypassing the
// Go runtime's built-in netpoller rather than layering on top of it.

func resolveInet4(addr string) (unix.SockaddrInet4, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return unix.SockaddrInet4{}, err
	}
	if host == "" {
		host = "0.0.0.0"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return unix.SockaddrInet4{}, err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return unix.SockaddrInet4{}, &SyscallError{Op: "lookup", Err: err}
		}
		ip = ips[0]
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return unix.SockaddrInet4{}, errNotIPv4
	}
	var sa unix.SockaddrInet4
	sa.Port = port
	copy(sa.Addr[:], ip4)
	return sa, nil
}

var errNotIPv4 = errors.New("nara: address is not IPv4")

// Listener is a non-blocking TCP listener registered with an Executor's
// reactor.
type Listener struct {
	ex    *Executor
	fd    int
	token Token
}

// Listen creates a listening socket bound to addr (e.g. "127.0.0.1:0") and
// registers it for read-readiness (a pending connection looks like
// readability to accept(2)).
func Listen(ex *Executor, addr string) (*Listener, error) {
	sa, err := resolveInet4(addr)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, &SyscallError{Op: "socket", Err: err}
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	if err := unix.Bind(fd, &sa); err != nil {
		_ = closeFD(fd)
		return nil, &SyscallError{Op: "bind", Err: err}
	}
	if err := unix.Listen(fd, 128); err != nil {
		_ = closeFD(fd)
		return nil, &SyscallError{Op: "listen", Err: err}
	}
	tok, err := ex.reactor.Register(fd, eventRead)
	if err != nil {
		_ = closeFD(fd)
		return nil, err
	}
	return &Listener{ex: ex, fd: fd, token: tok}, nil
}

// Addr returns the local address the listener is bound to, resolving an
// ephemeral port 0 to the one the kernel actually assigned.
func (l *Listener) Addr() (string, error) {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return "", &SyscallError{Op: "getsockname", Err: err}
	}
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return "", errNotIPv4
	}
	return net.JoinHostPort(net.IP(sa4.Addr[:]).String(), strconv.Itoa(sa4.Port)), nil
}

// Close deregisters and closes the listening socket.
func (l *Listener) Close() error {
	_ = l.ex.reactor.Deregister(l.token)
	return closeFD(l.fd)
}

// Accept returns a Future that completes with the next inbound Conn.
func (l *Listener) Accept() Future[Outcome[*Conn]] {
	return FutureFunc[Outcome[*Conn]](func(w Waker) (Outcome[*Conn], bool) {
		nfd, _, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err == unix.EAGAIN {
			if setErr := l.ex.reactor.SetWaker(l.token, eventRead, w); setErr != nil {
				return Outcome[*Conn]{Err: setErr}, true
			}
			return Outcome[*Conn]{}, false
		}
		if err != nil {
			return Outcome[*Conn]{Err: &SyscallError{Op: "accept4", Err: err}}, true
		}
		tok, regErr := l.ex.reactor.Register(nfd, 0)
		if regErr != nil {
			_ = closeFD(nfd)
			return Outcome[*Conn]{Err: regErr}, true
		}
		return Outcome[*Conn]{Value: &Conn{ex: l.ex, fd: nfd, token: tok}}, true
	})
}

// Conn is a non-blocking, reactor-driven TCP connection.
type Conn struct {
	ex    *Executor
	fd    int
	token Token
}

// Dial connects to addr, completing once the connection is established
// (or fails).
func Dial(ex *Executor, addr string) Future[Outcome[*Conn]] {
	sa, err := resolveInet4(addr)
	if err != nil {
		return Ready(Outcome[*Conn]{Err: err})
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, unix.IPPROTO_TCP)
	if err != nil {
		return Ready(Outcome[*Conn]{Err: &SyscallError{Op: "socket", Err: err}})
	}
	connErr := unix.Connect(fd, &sa)
	if connErr != nil && connErr != unix.EINPROGRESS {
		_ = closeFD(fd)
		return Ready(Outcome[*Conn]{Err: &SyscallError{Op: "connect", Err: connErr}})
	}
	tok, regErr := ex.reactor.Register(fd, eventWrite)
	if regErr != nil {
		_ = closeFD(fd)
		return Ready(Outcome[*Conn]{Err: regErr})
	}
	if connErr == nil {
		return Ready(Outcome[*Conn]{Value: &Conn{ex: ex, fd: fd, token: tok}})
	}

	return FutureFunc[Outcome[*Conn]](func(w Waker) (Outcome[*Conn], bool) {
		serr, serrErr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if serrErr != nil {
			return Outcome[*Conn]{Err: &SyscallError{Op: "getsockopt", Err: serrErr}}, true
		}
		if serr == int(unix.EINPROGRESS) || serr == int(unix.EALREADY) {
			if setErr := ex.reactor.SetWaker(tok, eventWrite, w); setErr != nil {
				return Outcome[*Conn]{Err: setErr}, true
			}
			return Outcome[*Conn]{}, false
		}
		if serr != 0 {
			return Outcome[*Conn]{Err: &SyscallError{Op: "connect", Err: unix.Errno(serr)}}, true
		}
		return Outcome[*Conn]{Value: &Conn{ex: ex, fd: fd, token: tok}}, true
	})
}

// Read returns a Future that completes once data is available, EOF is
// reached (n==0, err==nil), or a fatal error occurs.
func (c *Conn) Read(buf []byte) Future[Outcome[int]] {
	return FutureFunc[Outcome[int]](func(w Waker) (Outcome[int], bool) {
		n, wouldBlock, err := readFD(c.fd, buf)
		if wouldBlock {
			if setErr := c.ex.reactor.SetWaker(c.token, eventRead, w); setErr != nil {
				return Outcome[int]{Err: setErr}, true
			}
			return Outcome[int]{}, false
		}
		if err != nil {
			return Outcome[int]{Err: &SyscallError{Op: "read", Err: err}}, true
		}
		return Outcome[int]{Value: n}, true
	})
}

// Write returns a Future that completes once all of buf has been written.
func (c *Conn) Write(buf []byte) Future[Outcome[int]] {
	written := 0
	return FutureFunc[Outcome[int]](func(w Waker) (Outcome[int], bool) {
		for written < len(buf) {
			n, err := unix.Write(c.fd, buf[written:])
			if err == unix.EAGAIN {
				if setErr := c.ex.reactor.SetWaker(c.token, eventWrite, w); setErr != nil {
					return Outcome[int]{Err: setErr}, true
				}
				return Outcome[int]{}, false
			}
			if err != nil {
				return Outcome[int]{Err: &SyscallError{Op: "write", Err: err}}, true
			}
			written += n
		}
		return Outcome[int]{Value: written}, true
	})
}

// Close deregisters and closes the connection.
func (c *Conn) Close() error {
	_ = c.ex.reactor.Deregister(c.token)
	return closeFD(c.fd)
}
