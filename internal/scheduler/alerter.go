package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/smoketestexporter/internal/domain"
	"github.com/hamed0406/smoketestexporter/internal/notify"
	"github.com/hamed0406/smoketestexporter/internal/repo"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
	PollInterval    time.Duration
}

// Alerter watches the result store and notifies on success/failure
// transitions. It only reads results; runners never wait on it.
type Alerter struct {
	logger   *zap.Logger
	results  repo.ResultStore
	alertDB  repo.AlertStore
	notifier notify.Notifier
	cfg      AlerterConfig
}

func NewAlerter(
	logger *zap.Logger,
	results repo.ResultStore,
	alertDB repo.AlertStore,
	notifier notify.Notifier,
	cfg AlerterConfig,
) *Alerter {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	return &Alerter{
		logger:   logger,
		results:  results,
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
	}
}

func (a *Alerter) Run(ctx context.Context) error {
	t := time.NewTicker(a.cfg.PollInterval)
	defer t.Stop()

	// initial pass
	a.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			a.scan(ctx)
		}
	}
}

func (a *Alerter) scan(ctx context.Context) {
	if err := a.scanOnce(ctx); err != nil {
		a.logger.Warn("alerter_scan_error", zap.Error(err))
	}
}

func (a *Alerter) scanOnce(ctx context.Context) error {
	now := time.Now().UTC()

	for service, r := range a.results.All() {
		if r.IsPending() {
			continue
		}
		prev, seen, err := a.alertDB.LoadAlert(ctx, service)
		if err != nil {
			return fmt.Errorf("alert state for %s: %w", service, err)
		}
		next := repo.AlertState{Service: service, Healthy: r.Success, Outcome: r.Outcome, SentAt: prev.SentAt}

		// A healthy first observation is recorded silently; a failing one
		// is announced.
		if !seen && r.Success {
			if err := a.alertDB.SaveAlert(ctx, next); err != nil {
				return err
			}
			continue
		}
		if seen && prev.Healthy == r.Success {
			continue
		}

		// Cooldown only applies to failure alerts. Recovery bypasses it.
		var send bool
		if r.Success {
			send = a.cfg.AlertOnRecovery
		} else {
			send = !prev.Notified() || now.Sub(prev.SentAt) >= a.cfg.Cooldown
		}

		if send {
			if err := a.notifier.Send(ctx, a.alertFor(service, r)); err != nil {
				a.logger.Warn("alert_send_error", zap.String("service", service), zap.Error(err))
			} else {
				a.logger.Info("alert_sent", zap.String("service", service), zap.Bool("recovered", r.Success))
			}
			next.SentAt = now
		}
		// Unsent transitions keep the previous send time for the cooldown.
		if err := a.alertDB.SaveAlert(ctx, next); err != nil {
			return err
		}
	}

	return nil
}

func (a *Alerter) alertFor(service string, r domain.CheckResult) notify.Alert {
	title := "Smoketest FAILED: " + service
	if r.Success {
		title = "Smoketest RECOVERED: " + service
	}
	return notify.Alert{
		Service:   service,
		Recovered: r.Success,
		Title:     title,
		Text: fmt.Sprintf("Outcome: %s\nMessage: %s\nChecked: %s",
			r.Outcome, r.Message, r.CheckedAt.Format(time.RFC3339)),
	}
}
