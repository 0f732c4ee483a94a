// Package nara provides a minimal single-threaded asynchronous I/O runtime.
//
// # Architecture
//
// Four subsystems, leaves first:
//
//   - [Reactor]: owns registered file descriptors and a self-pipe; blocks in
//     the readiness-polling syscall (epoll on Linux, kqueue on Darwin)
//     bounded by the timer wheel's next deadline, then wakes every task
//     whose fd became ready.
//   - the timer wheel: a min-ordered structure mapping deadlines to wakers,
//     used internally by [Sleep] and [Timeout].
//   - the task system ([Spawn], [JoinHandle], [Waker]): heap-allocated task
//     cells, a FIFO ready-queue of task identifiers, and a waker that
//     pushes a task identifier onto that queue.
//   - the executor ([Run]): the top-level drive loop that polls ready
//     tasks, then blocks in the reactor until the timer wheel or an fd
//     wakes something up.
//
// All scheduling, reactor turning, timer draining, and future polling
// happen on the single goroutine that calls [Run]. The only cross-thread
// touchpoints are the self-pipe (written from any goroutine to interrupt a
// blocking poll) and the completion cells used by [SpawnBlocking].
//
// # Usage
//
//	ex, err := nara.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ex.Close()
//
//	h := nara.Spawn[int](ex, someComputation)
//	out, err := nara.RunValue[nara.Outcome[int]](ex, h)
//
// # Platform support
//
// The reactor is implemented using platform-native readiness polling:
// epoll on Linux, kqueue on Darwin. There is no portable fallback; the
// core's non-goals explicitly exclude kernel-specific high-performance
// readiness APIs beyond this pair.
package nara
