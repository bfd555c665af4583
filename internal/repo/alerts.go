package repo

import (
	"context"
	"time"

	"github.com/hamed0406/smoketestexporter/internal/domain"
)

// AlertState is what the alerter last acted on for one service.
type AlertState struct {
	Service string
	Healthy bool
	Outcome domain.Outcome
	SentAt  time.Time // zero until a notification goes out
}

// Notified reports whether a notification was ever sent.
func (s AlertState) Notified() bool { return !s.SentAt.IsZero() }

type AlertStore interface {
	// LoadAlert reports ok=false when the service has no state yet.
	LoadAlert(ctx context.Context, service string) (st AlertState, ok bool, err error)
	SaveAlert(ctx context.Context, st AlertState) error
}
