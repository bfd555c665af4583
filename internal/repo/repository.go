package repo

import (
	"context"
	"errors"
	"iter"

	"github.com/hamed0406/smoketestexporter/internal/domain"
)

// ErrNotFound is returned by ResultStore.Get for unknown services.
var ErrNotFound = errors.New("result not found")

// ResultStore holds the latest result per service. It is authoritative;
// mirrors are optional copies.
type ResultStore interface {
	// Set replaces the latest result for service. No merging.
	Set(service string, r domain.CheckResult)
	Get(service string) (domain.CheckResult, error)
	// All yields every service and its latest result in name order.
	All() iter.Seq2[string, domain.CheckResult]
}

// ResultMirror persists the latest result per service somewhere durable.
type ResultMirror interface {
	Upsert(ctx context.Context, r domain.CheckResult) error
}
