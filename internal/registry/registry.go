// Package registry loads the set of configured smoketests. A Registry is
// built once at startup and never mutated afterwards, so it is safe for
// unsynchronized concurrent reads.
package registry

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// CheckSpec holds the execution parameters of one service.
type CheckSpec struct {
	Name    string
	Command []string
	Timeout time.Duration
}

// ConfigError is returned when the configuration source is missing,
// malformed, or describes an invalid service.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

type Registry struct {
	specs map[string]CheckSpec
	names []string
}

// file mirrors the on-disk document: {"services": {"<name>": {...}}}.
type file struct {
	Services map[string]serviceEntry `json:"services" yaml:"services"`
}

type serviceEntry struct {
	Command []string `json:"command" yaml:"command"`
	Timeout *float64 `json:"timeout" yaml:"timeout"` // seconds
}

// Beyond this a timeout no longer fits in a time.Duration.
const maxTimeoutSeconds = float64(math.MaxInt64) / float64(time.Second)

// Load reads and validates the configuration at path. JSON is assumed
// unless the extension is .yaml or .yml.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	var doc file
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		// Unmarshal also rejects anything after the top-level value.
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("not valid structured data: %w", err)}
	}

	r, err := build(doc.Services)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return r, nil
}

func build(entries map[string]serviceEntry) (*Registry, error) {
	r := &Registry{specs: make(map[string]CheckSpec, len(entries))}

	var errs error
	for name, e := range entries {
		spec, err := e.toSpec(name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		r.specs[name] = spec
		r.names = append(r.names, name)
	}
	if errs != nil {
		return nil, errs
	}
	sort.Strings(r.names)
	return r, nil
}

func (e serviceEntry) toSpec(name string) (CheckSpec, error) {
	if strings.TrimSpace(name) == "" {
		return CheckSpec{}, fmt.Errorf("service with empty name")
	}
	if len(e.Command) == 0 || strings.TrimSpace(e.Command[0]) == "" {
		return CheckSpec{}, fmt.Errorf("service %q: missing command", name)
	}
	if e.Timeout == nil {
		return CheckSpec{}, fmt.Errorf("service %q: missing timeout", name)
	}
	secs := *e.Timeout
	if secs <= 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return CheckSpec{}, fmt.Errorf("service %q: timeout must be a positive number of seconds, got %v", name, secs)
	}
	if secs >= maxTimeoutSeconds {
		return CheckSpec{}, fmt.Errorf("service %q: timeout %v exceeds the maximum of %.0f seconds", name, secs, maxTimeoutSeconds)
	}
	cmd := make([]string, len(e.Command))
	copy(cmd, e.Command)
	return CheckSpec{
		Name:    name,
		Command: cmd,
		Timeout: time.Duration(secs * float64(time.Second)),
	}, nil
}

// FromSpecs builds a registry directly from specs, applying the same
// validation as Load.
func FromSpecs(specs ...CheckSpec) (*Registry, error) {
	entries := make(map[string]serviceEntry, len(specs))
	for _, s := range specs {
		if _, dup := entries[s.Name]; dup {
			return nil, fmt.Errorf("service %q defined twice", s.Name)
		}
		secs := s.Timeout.Seconds()
		entries[s.Name] = serviceEntry{Command: s.Command, Timeout: &secs}
	}
	return build(entries)
}

// Get returns the spec for name.
func (r *Registry) Get(name string) (CheckSpec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// ForEach calls fn for every service in name order.
func (r *Registry) ForEach(fn func(name string, spec CheckSpec)) {
	for _, n := range r.names {
		fn(n, r.specs[n])
	}
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Registry) Len() int { return len(r.names) }
