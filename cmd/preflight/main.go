// cmd/preflight/main.go
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/hamed0406/smoketestexporter/internal/config"
	"github.com/hamed0406/smoketestexporter/internal/registry"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "preflight",
	Short:         "Validate the smoketest configuration and environment",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return preflight()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "/app/config.json", "smoketest configuration file (JSON or YAML)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func preflight() error {
	fail := func(msg string) { fmt.Fprintln(os.Stderr, "✖", msg) }
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.FromEnv()
	if err != nil {
		fail(err.Error())
		return err
	}
	ok("METRICS_ADDR=" + cfg.MetricsAddr)
	ok("SMOKETEST_INTERVAL=" + cfg.Interval.String())

	reg, err := registry.Load(cfgFile)
	if err != nil {
		var ce *registry.ConfigError
		if errors.As(err, &ce) {
			for _, e := range multierr.Errors(ce.Err) {
				fail(e.Error())
			}
		} else {
			fail(err.Error())
		}
		return err
	}
	if reg.Len() == 0 {
		warn(cfgFile + " defines no services; only exporter_status will be exported.")
	}
	reg.ForEach(func(name string, spec registry.CheckSpec) {
		ok(fmt.Sprintf("%s: %s (timeout %s)", name, strings.Join(spec.Command, " "), spec.Timeout))
	})

	if cfg.DatabaseURL == "" {
		warn("DATABASE_URL empty; results are kept in memory only.")
	} else {
		ok("DATABASE_URL present")
	}
	if !cfg.AlertsEnabled() {
		warn("SLACK_WEBHOOK_URL empty; transition alerts are disabled.")
	} else {
		ok("SLACK_WEBHOOK_URL present")
	}

	ok("preflight passed")
	return nil
}
