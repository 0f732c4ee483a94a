package nara

import (
	"fmt"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"go.uber.org/automaxprocs/maxprocs"
)

// applyAutoGOMAXPROCS and applyAutoGOMEMLIMIT are pure side effects on the
// Go runtime (§10.4): they touch no nara state and introduce no suspension
// points. Both log their outcome rather than panicking — a container
// without cgroup limits, or running under `go test`, is a normal
// environment for either to report "nothing to do".
func applyAutoGOMAXPROCS(log Logger) {
	l := newLeveled(log)
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, a ...any) {
		l.Debug("automaxprocs", "msg", fmt.Sprintf(format, a...))
	}))
	if err != nil {
		l.Warn("automaxprocs: set failed", "error", err)
		return
	}
	_ = undo // the executor owns the process for its lifetime; nothing to restore on Close
}

func applyAutoGOMEMLIMIT(log Logger) {
	l := newLeveled(log)
	if _, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithLogger(nil),
		memlimit.WithRatio(0.9),
	); err != nil {
		l.Warn("automemlimit: set failed", "error", err)
	}
}
