package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hamed0406/smoketestexporter/internal/domain"
	"github.com/hamed0406/smoketestexporter/internal/repo"
)

func (s *Store) LoadAlert(ctx context.Context, service string) (repo.AlertState, bool, error) {
	const q = `SELECT healthy, outcome, last_sent_at FROM smoketest_alerts WHERE service=$1`
	st := repo.AlertState{Service: service}
	var outcome string
	var sent *time.Time
	if err := s.pool.QueryRow(ctx, q, service).Scan(&st.Healthy, &outcome, &sent); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.AlertState{}, false, nil
		}
		return repo.AlertState{}, false, fmt.Errorf("load alert state %s: %w", service, err)
	}
	st.Outcome = domain.Outcome(outcome)
	if sent != nil {
		st.SentAt = sent.UTC()
	}
	return st, true, nil
}

// SaveAlert upserts the row; a zero SentAt is stored as NULL.
func (s *Store) SaveAlert(ctx context.Context, st repo.AlertState) error {
	const q = `
		INSERT INTO smoketest_alerts (service, healthy, outcome, last_sent_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (service) DO UPDATE
		SET healthy = EXCLUDED.healthy,
		    outcome = EXCLUDED.outcome,
		    last_sent_at = EXCLUDED.last_sent_at
	`
	var sent *time.Time
	if st.Notified() {
		sent = &st.SentAt
	}
	if _, err := s.pool.Exec(ctx, q, st.Service, st.Healthy, string(st.Outcome), sent); err != nil {
		return fmt.Errorf("save alert state %s: %w", st.Service, err)
	}
	return nil
}
