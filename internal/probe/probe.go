package probe

import (
	"context"
	"time"

	"github.com/hamed0406/smoketestexporter/internal/domain"
	"github.com/hamed0406/smoketestexporter/internal/registry"
)

// Execution is the raw outcome of running one command.
type Execution struct {
	Elapsed  time.Duration // from just before spawn to just after exit
	ExitCode int           // -1 when the process never started or was killed
	Stdout   string
	Stderr   string
	TimedOut bool
	Err      error // launch failure or *exec.ExitError
}

// Executor runs argv as a child process bounded by timeout.
type Executor interface {
	Execute(ctx context.Context, argv []string, timeout time.Duration) Execution
}

// Checker performs a single smoketest for a service.
type Checker interface {
	Check(ctx context.Context, spec registry.CheckSpec) domain.CheckResult
}

// Gauges is the slice of the metrics registry a runner writes to.
type Gauges interface {
	Track(service string)
	SetSuccess(service string, ok bool)
	SetDurationMS(service string, ms float64)
}

// Recorder receives one textual record per iteration.
type Recorder interface {
	Record(msg string)
}
