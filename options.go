package nara

// executorOptions holds every New() configuration knob, mirroring the
// teacher's loopOptions (eventloop/options.go).
type executorOptions struct {
	log              Logger
	metricsEnabled   bool
	autoGOMAXPROCS   bool
	autoGOMEMLIMIT   bool
	blockingPoolSize int64
}

func defaultExecutorOptions() executorOptions {
	return executorOptions{
		log:              NewDefaultLogger(LevelWarn),
		blockingPoolSize: 256,
	}
}

// Option configures an Executor at construction time (§10.3), the same
// functional-options shape as the teacher's LoopOption.
type Option interface {
	apply(*executorOptions)
}

type optionFunc func(*executorOptions)

func (f optionFunc) apply(o *executorOptions) { f(o) }

// WithLogger routes the runtime's diagnostic log lines (§10.1) through l
// instead of the default DefaultLogger (os.Stderr, LevelWarn and above). A
// nil l discards them.
func WithLogger(l Logger) Option {
	return optionFunc(func(o *executorOptions) { o.log = l })
}

// WithMetrics turns on the tick/poll counters and P²-quantile latency
// estimator exposed by Executor.Metrics (§12). Off by default.
func WithMetrics(enabled bool) Option {
	return optionFunc(func(o *executorOptions) { o.metricsEnabled = enabled })
}

// WithAutoGOMAXPROCS calls automaxprocs.Set once during New, before the
// reactor is created, so GOMAXPROCS reflects a container's CPU quota
// rather than the host's core count (§10.4). Off by default.
func WithAutoGOMAXPROCS() Option {
	return optionFunc(func(o *executorOptions) { o.autoGOMAXPROCS = true })
}

// WithAutoGOMEMLIMIT calls automemlimit.SetGoMemLimitWithOpts once during
// New, giving long-running executors inside a cgroup memory limit a soft
// GOMEMLIMIT (§10.4). Off by default.
func WithAutoGOMEMLIMIT() Option {
	return optionFunc(func(o *executorOptions) { o.autoGOMEMLIMIT = true })
}

// WithBlockingPoolSize bounds the number of concurrently in-flight
// SpawnBlocking goroutines (§11: golang.org/x/sync/semaphore). The default
// is 256; n <= 0 is treated as unbounded.
func WithBlockingPoolSize(n int64) Option {
	return optionFunc(func(o *executorOptions) { o.blockingPoolSize = n })
}
