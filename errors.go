package nara

import (
	"errors"
	"fmt"
)

// Standard errors returned by the runtime's public surface.
var (
	// ErrExecutorClosed is returned when an operation is attempted against
	// an Executor that has already run to completion or been closed.
	ErrExecutorClosed = errors.New("nara: executor is closed")

	// ErrNestedRun is returned by Run/RunValue when called from a goroutine
	// that is already executing inside that same Executor's drive loop.
	// Nested block_on calls are disallowed by design (§9: "Nested block_on
	// calls are disallowed").
	ErrNestedRun = errors.New("nara: nested Run on the same executor")

	// ErrTimerNotFound names a timer entry_id that is not currently
	// present. No operation in this package returns it: cancelling an
	// absent entry is a silent no-op.
	ErrTimerNotFound = errors.New("nara: timer entry not found")

	// ErrTimeout is the outcome value produced by the Timeout combinator
	// when the inner future loses the race against its deadline.
	ErrTimeout = errors.New("nara: operation timed out")

	// ErrFDOutOfRange names a file descriptor outside a supported range.
	// The reactor keys registrations by fd in a map and does not return it.
	ErrFDOutOfRange = errors.New("nara: fd out of range")

	// ErrFDAlreadyRegistered is returned by Reactor.Register for an fd that
	// already has an active registration.
	ErrFDAlreadyRegistered = errors.New("nara: fd already registered")

	// ErrTokenUnknown is returned when a reactor token does not refer to a
	// live registration (already deregistered, or never issued).
	ErrTokenUnknown = errors.New("nara: unknown reactor token")

	// ErrReactorClosed is returned by reactor operations after Close.
	ErrReactorClosed = errors.New("nara: reactor is closed")

	// ErrChannelClosed is returned by Channel.Recv after the sender side
	// has been closed without a pending value.
	ErrChannelClosed = errors.New("nara: channel closed")

	// ErrPoolClosed is reported, wrapped in a PanicError, through the
	// JoinHandle that SpawnBlocking returns once the blocking pool has been
	// shut down.
	ErrPoolClosed = errors.New("nara: blocking pool closed")
)

// PanicError wraps a panic value recovered from a task's computation.
// A JoinHandle that awaits a panicked task observes this value on Poll,
// re-raising it is left to the caller (§7: "JoinHandle awaiting it
// observes the panic (re-raised on join) or, if detached, the panic is
// swallowed with a diagnostic").
type PanicError struct {
	// Value is the recovered panic value (may be any type, including
	// error).
	Value any
	// Stack is a captured, best-effort stack trace from the panic site.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("nara: task panicked: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is itself an
// error, enabling errors.Is/errors.As through the panic's cause chain.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// SyscallError wraps a fatal error returned by the syscall shim (§7:
// SyscallFatal), preserving which operation triggered it.
type SyscallError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *SyscallError) Error() string {
	return fmt.Sprintf("nara: syscall %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying syscall error for errors.Is/errors.As.
func (e *SyscallError) Unwrap() error {
	return e.Err
}
