package postgres

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/smoketestexporter/internal/domain"
	"github.com/hamed0406/smoketestexporter/internal/repo"
)

var _ repo.ResultMirror = (*Store)(nil)
var _ repo.AlertStore = (*Store)(nil)

// Schema holds the last observed result per service; there is no history.
const Schema = `
CREATE TABLE IF NOT EXISTS smoketest_results (
  service     TEXT PRIMARY KEY,
  outcome     TEXT NOT NULL,
  success     BOOLEAN NOT NULL,
  duration_ms DOUBLE PRECISION NULL,
  message     TEXT NOT NULL,
  checked_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS smoketest_alerts (
  service      TEXT PRIMARY KEY,
  healthy      BOOLEAN NOT NULL,
  outcome      TEXT NOT NULL,
  last_sent_at TIMESTAMPTZ NULL
);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ---- ResultMirror ----

func (s *Store) Upsert(ctx context.Context, r domain.CheckResult) error {
	var dur *float64
	if r.Success {
		dur = &r.DurationMS
	}
	if r.CheckedAt.IsZero() {
		r.CheckedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO smoketest_results
		   (service, outcome, success, duration_ms, message, checked_at)
		 VALUES
		   ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (service) DO UPDATE SET
		   outcome=EXCLUDED.outcome,
		   success=EXCLUDED.success,
		   duration_ms=COALESCE(EXCLUDED.duration_ms, smoketest_results.duration_ms),
		   message=EXCLUDED.message,
		   checked_at=EXCLUDED.checked_at`,
		r.Service, string(r.Outcome), r.Success, dur, r.Message, r.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	s.log.Debug("pg_result_upserted", zap.String("service", r.Service), zap.Bool("success", r.Success))
	return nil
}

// Latest reads back the stored row for service. duration_ms keeps the last
// successful value across failures, matching the duration gauge.
func (s *Store) Latest(ctx context.Context, service string) (domain.CheckResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT outcome, success, duration_ms, message, checked_at
		   FROM smoketest_results
		  WHERE service = $1`, service)
	r, err := scanResult(row, service)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CheckResult{}, repo.ErrNotFound
	}
	return r, err
}

// All yields every stored row ordered by service. Query errors are logged
// and end the sequence.
func (s *Store) All(ctx context.Context) iter.Seq2[string, domain.CheckResult] {
	return func(yield func(string, domain.CheckResult) bool) {
		rows, err := s.pool.Query(ctx,
			`SELECT service, outcome, success, duration_ms, message, checked_at
			   FROM smoketest_results
			  ORDER BY service`)
		if err != nil {
			s.log.Warn("pg_results_query_error", zap.Error(err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			var (
				service string
				outcome string
				r       domain.CheckResult
				dur     *float64
			)
			if err := rows.Scan(&service, &outcome, &r.Success, &dur, &r.Message, &r.CheckedAt); err != nil {
				s.log.Warn("pg_results_scan_error", zap.Error(err))
				return
			}
			r.Service = service
			r.Outcome = domain.Outcome(outcome)
			if dur != nil {
				r.DurationMS = *dur
			}
			if !yield(service, r) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			s.log.Warn("pg_results_rows_error", zap.Error(err))
		}
	}
}

func scanResult(row pgx.Row, service string) (domain.CheckResult, error) {
	var (
		r       domain.CheckResult
		outcome string
		dur     *float64
	)
	if err := row.Scan(&outcome, &r.Success, &dur, &r.Message, &r.CheckedAt); err != nil {
		return domain.CheckResult{}, err
	}
	r.Service = service
	r.Outcome = domain.Outcome(outcome)
	if dur != nil {
		r.DurationMS = *dur
	}
	return r, nil
}
