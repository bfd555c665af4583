package registry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoad_JSON(t *testing.T) {
	p := writeFile(t, "config.json", `{
	"services": {
		"web": {"command": ["curl", "-sf", "http://localhost"], "timeout": 5},
		"db":  {"command": ["pg_isready"], "timeout": 0.5}
	}
}`)
	r, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("want 2 services, got %d", r.Len())
	}
	if names := r.Names(); names[0] != "db" || names[1] != "web" {
		t.Fatalf("names not sorted: %v", names)
	}
	web, ok := r.Get("web")
	if !ok || web.Timeout != 5*time.Second || len(web.Command) != 3 {
		t.Fatalf("unexpected web spec: %+v", web)
	}
	db, _ := r.Get("db")
	if db.Timeout != 500*time.Millisecond {
		t.Fatalf("fractional timeout not honoured: %v", db.Timeout)
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatalf("unexpected spec for unknown name")
	}
}

func TestLoad_YAMLPreservesNameCase(t *testing.T) {
	p := writeFile(t, "config.yaml", `services:
  MyService:
    command: ["true"]
    timeout: 3
`)
	r, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := r.Get("MyService"); !ok {
		t.Fatalf("service name case not preserved: %v", r.Names())
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"services": `, "not valid structured data"},
		{"missing command", `{"services": {"a": {"timeout": 1}}}`, `"a": missing command`},
		{"empty command", `{"services": {"a": {"command": [], "timeout": 1}}}`, `"a": missing command`},
		{"missing timeout", `{"services": {"a": {"command": ["true"]}}}`, `"a": missing timeout`},
		{"zero timeout", `{"services": {"a": {"command": ["true"], "timeout": 0}}}`, "positive number"},
		{"overflowing timeout", `{"services": {"a": {"command": ["true"], "timeout": 1e10}}}`, "exceeds the maximum"},
		{"trailing data", `{"services": {}} }garbage`, "not valid structured data"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := writeFile(t, "config.json", c.body)
			_, err := Load(p)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("want ConfigError, got %v", err)
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Fatalf("error %q does not mention %q", err, c.want)
			}
		})
	}
}

func TestLoad_LargestTimeoutStaysPositive(t *testing.T) {
	p := writeFile(t, "config.json", `{"services": {"slow": {"command": ["true"], "timeout": 9e9}}}`)
	r, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, _ := r.Get("slow")
	if s.Timeout != 9e9*time.Second {
		t.Fatalf("want 9e9s, got %v", s.Timeout)
	}
}

func TestLoad_ReportsEveryInvalidService(t *testing.T) {
	p := writeFile(t, "config.json", `{"services": {
		"a": {"timeout": 1},
		"b": {"command": ["true"]}
	}}`)
	_, err := Load(p)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), `"a"`) || !strings.Contains(err.Error(), `"b"`) {
		t.Fatalf("want both services reported, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	var ce *ConfigError
	if !errors.As(err, &ce) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want ConfigError wrapping ErrNotExist, got %v", err)
	}
}

func TestLoad_NoServices(t *testing.T) {
	for _, body := range []string{`{}`, `{"services": {}}`} {
		r, err := Load(writeFile(t, "config.json", body))
		if err != nil {
			t.Fatalf("Load(%s): %v", body, err)
		}
		if r.Len() != 0 {
			t.Fatalf("want empty registry, got %v", r.Names())
		}
	}
}

func TestForEach_VisitsInOrder(t *testing.T) {
	r, err := FromSpecs(
		CheckSpec{Name: "c", Command: []string{"true"}, Timeout: time.Second},
		CheckSpec{Name: "a", Command: []string{"true"}, Timeout: time.Second},
		CheckSpec{Name: "b", Command: []string{"true"}, Timeout: time.Second},
	)
	if err != nil {
		t.Fatalf("FromSpecs: %v", err)
	}
	var seen []string
	r.ForEach(func(name string, spec CheckSpec) {
		if spec.Name != name {
			t.Fatalf("spec name %q != key %q", spec.Name, name)
		}
		seen = append(seen, name)
	})
	if strings.Join(seen, ",") != "a,b,c" {
		t.Fatalf("unexpected order: %v", seen)
	}
}

func TestFromSpecs_RejectsDuplicates(t *testing.T) {
	s := CheckSpec{Name: "a", Command: []string{"true"}, Timeout: time.Second}
	if _, err := FromSpecs(s, s); err == nil {
		t.Fatalf("expected duplicate error")
	}
}
