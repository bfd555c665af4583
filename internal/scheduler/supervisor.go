package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/smoketestexporter/internal/domain"
	"github.com/hamed0406/smoketestexporter/internal/httpapi"
	"github.com/hamed0406/smoketestexporter/internal/metrics"
	"github.com/hamed0406/smoketestexporter/internal/probe"
	"github.com/hamed0406/smoketestexporter/internal/registry"
	"github.com/hamed0406/smoketestexporter/internal/repo"
)

// Supervisor starts one probe runner per configured service, serves the
// metrics endpoint and owns the exporter_status lifecycle.
type Supervisor struct {
	Logger   *zap.Logger
	Registry *registry.Registry
	Results  repo.ResultStore
	Metrics  *metrics.Registry
	Trail    probe.Recorder
	Checker  probe.Checker
	Addr     string
	Interval time.Duration

	// Optional.
	Mirrors         []repo.ResultMirror
	OnPanic         func(service string, rec any)
	Alerter         *Alerter
	Stdout          io.Writer
	ShutdownTimeout time.Duration

	ready    chan struct{}
	listenOn net.Addr
}

func NewSupervisor(
	logger *zap.Logger,
	reg *registry.Registry,
	results repo.ResultStore,
	m *metrics.Registry,
	trail probe.Recorder,
	checker probe.Checker,
	addr string,
	interval time.Duration,
) *Supervisor {
	if checker == nil {
		checker = probe.NewCommandChecker(nil)
	}
	return &Supervisor{
		Logger:          logger,
		Registry:        reg,
		Results:         results,
		Metrics:         m,
		Trail:           trail,
		Checker:         checker,
		Addr:            addr,
		Interval:        interval,
		Stdout:          os.Stdout,
		ShutdownTimeout: 5 * time.Second,
		ready:           make(chan struct{}),
	}
}

// Ready is closed once the listener is bound, exporter_status is 1 and
// every runner has been started.
func (s *Supervisor) Ready() <-chan struct{} { return s.ready }

// ListenAddr is the bound metrics address. Valid after Ready.
func (s *Supervisor) ListenAddr() net.Addr { return s.listenOn }

// Run blocks until ctx is cancelled, then sets exporter_status to 0 and
// shuts the HTTP server down. Runners are abandoned, not awaited.
func (s *Supervisor) Run(ctx context.Context) error {
	s.Registry.ForEach(func(name string, _ registry.CheckSpec) {
		s.Results.Set(name, domain.Pending(name))
	})

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener %s: %w", s.Addr, err)
	}
	srv := &http.Server{
		Handler:           httpapi.NewServer(s.Logger, s.Results, s.Metrics.Handler()).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	s.Metrics.SetExporterStatus(true)
	s.listenOn = ln.Addr()
	fmt.Fprintf(s.Stdout, "Prometheus HTTP server started on %s.\n", ln.Addr())
	s.Logger.Info("metrics_listen", zap.String("addr", ln.Addr().String()))

	runCtx, cancelRunners := context.WithCancel(ctx)
	defer cancelRunners()

	s.Registry.ForEach(func(name string, spec registry.CheckSpec) {
		s.Trail.Record("Spawning probe runner for smoketest: " + name)
		r := probe.NewRunner(s.Logger, spec, s.Checker, s.Results, s.Metrics, s.Trail, s.Interval)
		r.Mirrors = s.Mirrors
		r.OnPanic = s.OnPanic
		go r.Run(runCtx)
	})
	if s.Alerter != nil {
		go func() {
			if err := s.Alerter.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				s.Logger.Warn("alerter_stopped", zap.Error(err))
			}
		}()
	}
	s.Logger.Info("supervisor_started", zap.Int("services", s.Registry.Len()))
	close(s.ready)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("metrics server: %w", err)
	}

	s.Metrics.SetExporterStatus(false)
	fmt.Fprintln(s.Stdout, "Exporter stopped.")
	s.Logger.Info("supervisor_stopping")
	cancelRunners()

	shCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	return multierr.Append(runErr, srv.Shutdown(shCtx))
}
