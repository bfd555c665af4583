// Package config reads process-level settings from the environment.
// The service list itself comes from the registry file, not from here.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	MetricsAddr string        `envconfig:"METRICS_ADDR" default:":8000"`
	Interval    time.Duration `envconfig:"SMOKETEST_INTERVAL" default:"60s"`

	// SERVICE_DEBUG switches zap to debug level.
	ServiceDebug string `envconfig:"SERVICE_DEBUG"`

	LogMaxSizeMB  int `envconfig:"LOG_MAX_SIZE_MB" default:"1"`
	LogMaxBackups int `envconfig:"LOG_MAX_BACKUPS" default:"5"`

	// Empty means results live in memory only.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Alerts are disabled when the webhook is empty.
	SlackWebhookURL   string        `envconfig:"SLACK_WEBHOOK_URL"`
	AlertOnRecovery   bool          `envconfig:"ALERT_ON_RECOVERY" default:"true"`
	AlertCooldown     time.Duration `envconfig:"ALERT_COOLDOWN" default:"10m"`
	AlertPollInterval time.Duration `envconfig:"ALERT_POLL_INTERVAL" default:"15s"`
}

// FromEnv loads ./.env when present, then the process environment.
// Variables already set in the environment win over the file.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}
	if c.Interval <= 0 {
		return Config{}, fmt.Errorf("SMOKETEST_INTERVAL must be positive, got %s", c.Interval)
	}
	return c, nil
}

func (c Config) Debug() bool {
	switch strings.ToLower(strings.TrimSpace(c.ServiceDebug)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// AlertsEnabled reports whether a Slack webhook is configured.
func (c Config) AlertsEnabled() bool { return c.SlackWebhookURL != "" }
