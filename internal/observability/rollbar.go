// Package observability wires optional error reporting to Rollbar.
package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap"
)

// SetupRollbar configures the Rollbar SDK when ROLLBAR_ACCESS_TOKEN is set.
// The returned func flushes queued items and should be deferred.
func SetupRollbar(logger *zap.Logger) (bool, func()) {
	token := strings.TrimSpace(os.Getenv("ROLLBAR_ACCESS_TOKEN"))
	if token == "" {
		rollbar.SetEnabled(false)
		logger.Debug("rollbar_disabled", zap.String("reason", "missing access token"))
		return false, func() {}
	}

	rollbar.SetEnabled(true)
	rollbar.SetToken(token)

	env := strings.TrimSpace(os.Getenv("ROLLBAR_ENVIRONMENT"))
	if env == "" {
		env = "production"
	}
	rollbar.SetEnvironment(env)

	if v := strings.TrimSpace(os.Getenv("ROLLBAR_CODE_VERSION")); v != "" {
		rollbar.SetCodeVersion(v)
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		rollbar.SetServerHost(hostname)
	}
	if wd, err := os.Getwd(); err == nil {
		rollbar.SetServerRoot(filepath.Clean(wd))
	}
	rollbar.SetCaptureIp(rollbar.CaptureIpNone)

	logger.Info("rollbar_enabled", zap.String("environment", env))
	return true, rollbar.Wait
}

// PanicReporter returns a callback for probe runners. The runner has
// already recovered, so the callback only reports and never re-panics.
// With reporting disabled it returns nil.
func PanicReporter(logger *zap.Logger, enabled bool) func(service string, rec any) {
	if !enabled {
		return nil
	}
	return func(service string, rec any) {
		err, ok := rec.(error)
		if !ok {
			err = fmt.Errorf("panic: %v", rec)
		}
		rollbar.Critical(err, map[string]interface{}{"service": service})
		logger.Debug("panic_reported", zap.String("service", service))
	}
}

// CapturePanic is deferred at the top of main. It reports the panic and
// lets it continue.
func CapturePanic(enabled bool) func() {
	if !enabled {
		return func() {}
	}
	return func() {
		if rec := recover(); rec != nil {
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", rec)
			}
			rollbar.Critical(err)
			rollbar.Wait()
			panic(rec)
		}
	}
}
