package probe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/smoketestexporter/internal/domain"
	"github.com/hamed0406/smoketestexporter/internal/registry"
	"github.com/hamed0406/smoketestexporter/internal/repo"
)

// DefaultInterval is the pause between the end of one iteration and the
// start of the next.
const DefaultInterval = 60 * time.Second

const mirrorTimeout = 5 * time.Second

// Runner repeats one service's smoketest until its context is cancelled.
// It is the only writer of that service's gauges and result entry.
type Runner struct {
	Logger   *zap.Logger
	Spec     registry.CheckSpec
	Checker  Checker
	Results  repo.ResultStore
	Gauges   Gauges
	Trail    Recorder
	Interval time.Duration

	// Optional.
	Mirrors []repo.ResultMirror
	OnPanic func(service string, rec any)
}

func NewRunner(
	logger *zap.Logger,
	spec registry.CheckSpec,
	checker Checker,
	results repo.ResultStore,
	gauges Gauges,
	trail Recorder,
	interval time.Duration,
) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Logger:   logger,
		Spec:     spec,
		Checker:  checker,
		Results:  results,
		Gauges:   gauges,
		Trail:    trail,
		Interval: interval,
	}
}

// Run does an immediate iteration, then one more after each interval.
// Iterations never overlap.
func (r *Runner) Run(ctx context.Context) {
	name := r.Spec.Name
	r.Gauges.Track(name)
	r.Logger.Info("probe_runner_started",
		zap.String("service", name),
		zap.Strings("command", r.Spec.Command),
		zap.Duration("timeout", r.Spec.Timeout),
		zap.Duration("interval", r.Interval),
	)

	for {
		r.runOnce(ctx)

		t := time.NewTimer(r.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			r.Logger.Info("probe_runner_stopped", zap.String("service", name))
			return
		case <-t.C:
		}
	}
}

// runOnce executes and publishes one iteration. A panic anywhere in it is
// contained here so it only degrades this service.
func (r *Runner) runOnce(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.reportPanic(rec)
		}
	}()

	res := r.check(ctx)
	if ctx.Err() != nil {
		// shutting down; the killed command says nothing about the service
		return
	}
	r.publish(ctx, res)
}

func (r *Runner) check(ctx context.Context) (res domain.CheckResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.reportPanic(rec)
			res = domain.CheckResult{
				Service:   r.Spec.Name,
				Outcome:   domain.OutcomeFailure,
				Message:   fmt.Sprintf("%s smoketest panicked: %v", r.Spec.Name, rec),
				CheckedAt: time.Now().UTC(),
			}
		}
	}()
	return r.Checker.Check(ctx, r.Spec)
}

// publish writes gauges, then the result entry, then the trail record.
// The duration gauge is only written on success, so a failure leaves the
// last successful duration in place.
func (r *Runner) publish(ctx context.Context, res domain.CheckResult) {
	name := r.Spec.Name

	r.Gauges.SetSuccess(name, res.Success)
	if res.Success {
		r.Gauges.SetDurationMS(name, res.DurationMS)
	}
	r.Results.Set(name, res)
	r.Trail.Record(res.Message)

	for _, m := range r.Mirrors {
		mctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
		if err := m.Upsert(mctx, res); err != nil {
			r.Logger.Warn("probe_mirror_error", zap.String("service", name), zap.Error(err))
		}
		cancel()
	}

	r.Logger.Debug("probe_checked",
		zap.String("service", name),
		zap.String("outcome", string(res.Outcome)),
		zap.Bool("success", res.Success),
		zap.Float64("duration_ms", res.DurationMS),
	)
}

func (r *Runner) reportPanic(rec any) {
	r.Logger.Error("probe_runner_panic", zap.String("service", r.Spec.Name), zap.Any("panic", rec))
	if r.OnPanic != nil {
		r.OnPanic(r.Spec.Name, rec)
	}
}
