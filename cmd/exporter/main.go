package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/smoketestexporter/internal/config"
	"github.com/hamed0406/smoketestexporter/internal/logging"
	"github.com/hamed0406/smoketestexporter/internal/metrics"
	"github.com/hamed0406/smoketestexporter/internal/notify"
	"github.com/hamed0406/smoketestexporter/internal/observability"
	"github.com/hamed0406/smoketestexporter/internal/registry"
	"github.com/hamed0406/smoketestexporter/internal/repo"
	"github.com/hamed0406/smoketestexporter/internal/repo/memory"
	pg "github.com/hamed0406/smoketestexporter/internal/repo/postgres"
	"github.com/hamed0406/smoketestexporter/internal/scheduler"
)

func newRootCmd() *cobra.Command {
	var cfgFile, logFile string
	cmd := &cobra.Command{
		Use:           "smoketest-exporter",
		Short:         "Run smoketest commands and export their results to Prometheus",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfgFile, logFile, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&cfgFile, "config", "c", "/app/config.json", "smoketest configuration file (JSON or YAML)")
	cmd.Flags().StringVarP(&logFile, "log-file", "f", "smoketest.log", "smoketest log trail")
	return cmd
}

// execute returns the process exit code. Fatal diagnostics go to stdout.
func execute(ctx context.Context, args []string, stdout io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stdout)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout))
}

func run(ctx context.Context, cfgFile, logFile string, stdout io.Writer) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.Debug())
	defer logger.Sync()

	reg, err := registry.Load(cfgFile)
	if err != nil {
		return err
	}

	opts := logging.TrailOptions{MaxSizeMB: cfg.LogMaxSizeMB, MaxBackups: cfg.LogMaxBackups}
	if cfg.Debug() {
		opts.Echo = stdout
	}
	trail, err := logging.NewTrail(logFile, opts)
	if err != nil {
		return err
	}
	defer trail.Close()
	fmt.Fprintf(stdout, "Logging to file: %s\n", logFile)

	rollbarOn, flush := observability.SetupRollbar(logger)
	defer flush()
	defer observability.CapturePanic(rollbarOn)()

	results := memory.New()
	m := metrics.New(true)
	sup := scheduler.NewSupervisor(logger, reg, results, m, trail, nil, cfg.MetricsAddr, cfg.Interval)
	sup.Stdout = stdout
	sup.OnPanic = observability.PanicReporter(logger, rollbarOn)

	var alertDB repo.AlertStore = memory.NewAlerts()
	if cfg.DatabaseURL != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		store, err := pg.New(dbCtx, cfg.DatabaseURL, logger)
		if err == nil {
			err = store.EnsureSchema(dbCtx)
		}
		cancel()
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer store.Close()
		sup.Mirrors = append(sup.Mirrors, store)
		alertDB = store
		logger.Info("postgres_mirror_enabled")
	}

	if cfg.AlertsEnabled() {
		sup.Alerter = scheduler.NewAlerter(logger, results, alertDB, notify.Multi{notify.NewSlack(cfg.SlackWebhookURL)}, scheduler.AlerterConfig{
			AlertOnRecovery: cfg.AlertOnRecovery,
			Cooldown:        cfg.AlertCooldown,
			PollInterval:    cfg.AlertPollInterval,
		})
		logger.Info("slack_alerts_enabled", zap.Bool("on_recovery", cfg.AlertOnRecovery))
	}

	err = sup.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
