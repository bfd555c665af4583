package memory

import (
	"context"
	"iter"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hamed0406/smoketestexporter/internal/domain"
	"github.com/hamed0406/smoketestexporter/internal/repo"
)

// Store keeps the latest result per service. The map itself only changes
// when a new service is first seen; after that, writes for different
// services touch independent atomic pointers and never contend.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*atomic.Pointer[domain.CheckResult]
}

func New() *Store {
	return &Store{entries: make(map[string]*atomic.Pointer[domain.CheckResult])}
}

func (m *Store) slot(service string) *atomic.Pointer[domain.CheckResult] {
	m.mu.RLock()
	p := m.entries[service]
	m.mu.RUnlock()
	if p != nil {
		return p
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p = m.entries[service]; p == nil {
		p = new(atomic.Pointer[domain.CheckResult])
		m.entries[service] = p
	}
	return p
}

func (m *Store) Set(service string, r domain.CheckResult) {
	r.Service = service
	m.slot(service).Store(&r)
}

func (m *Store) Get(service string) (domain.CheckResult, error) {
	m.mu.RLock()
	p := m.entries[service]
	m.mu.RUnlock()
	if p == nil {
		return domain.CheckResult{}, repo.ErrNotFound
	}
	r := p.Load()
	if r == nil {
		return domain.CheckResult{}, repo.ErrNotFound
	}
	return *r, nil
}

// All snapshots the key set, then loads each entry as it is yielded.
func (m *Store) All() iter.Seq2[string, domain.CheckResult] {
	return func(yield func(string, domain.CheckResult) bool) {
		m.mu.RLock()
		names := make([]string, 0, len(m.entries))
		for n := range m.entries {
			names = append(names, n)
		}
		m.mu.RUnlock()
		sort.Strings(names)

		for _, n := range names {
			r, err := m.Get(n)
			if err != nil {
				continue
			}
			if !yield(n, r) {
				return
			}
		}
	}
}

// Len returns the number of services with an entry.
func (m *Store) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ repo.ResultStore = (*Store)(nil)

// Alerts is an in-process repo.AlertStore used when no database is configured.
type Alerts struct {
	mu sync.Mutex
	m  map[string]repo.AlertState
}

func NewAlerts() *Alerts {
	return &Alerts{m: make(map[string]repo.AlertState)}
}

func (a *Alerts) LoadAlert(_ context.Context, service string) (repo.AlertState, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.m[service]
	return st, ok, nil
}

func (a *Alerts) SaveAlert(_ context.Context, st repo.AlertState) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m[st.Service] = st
	return nil
}

var _ repo.AlertStore = (*Alerts)(nil)
