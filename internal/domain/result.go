package domain

import "time"

// Outcome classifies a single smoketest iteration.
type Outcome string

const (
	OutcomePending Outcome = "pending" // placeholder until the first iteration completes
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeTimeout Outcome = "timeout"
)

// CheckResult is the latest outcome for one service.
// DurationMS is only meaningful when Success is true.
type CheckResult struct {
	Service    string    `json:"service"`
	Outcome    Outcome   `json:"outcome"`
	Success    bool      `json:"success"`
	DurationMS float64   `json:"duration_ms,omitempty"`
	Message    string    `json:"message"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Pending returns the placeholder written for a service before its
// first iteration has been published.
func Pending(service string) CheckResult {
	return CheckResult{Service: service, Outcome: OutcomePending}
}

// IsPending reports whether no iteration has been published yet.
func (r CheckResult) IsPending() bool {
	return r.Outcome == OutcomePending || r.Outcome == ""
}
