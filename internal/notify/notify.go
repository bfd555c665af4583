package notify

import (
	"context"

	"go.uber.org/multierr"
)

// Alert describes a smoketest changing state.
type Alert struct {
	Service   string
	Recovered bool // true for failure -> success, false for success -> failure
	Title     string
	Text      string
}

type Notifier interface {
	Send(ctx context.Context, a Alert) error
}

// Multi fans an alert out to every notifier and returns all failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, a Alert) error {
	var errs error
	for _, n := range m {
		if n == nil {
			continue
		}
		errs = multierr.Append(errs, n.Send(ctx, a))
	}
	return errs
}
