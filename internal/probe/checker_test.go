package probe

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/smoketestexporter/internal/domain"
	"github.com/hamed0406/smoketestexporter/internal/registry"
)

type fakeExecutor struct {
	out Execution
}

func (f *fakeExecutor) Execute(ctx context.Context, argv []string, timeout time.Duration) Execution {
	return f.out
}

func spec(name string, argv ...string) registry.CheckSpec {
	return registry.CheckSpec{Name: name, Command: argv, Timeout: 2 * time.Second}
}

func TestCommandChecker_Classification(t *testing.T) {
	cases := []struct {
		name    string
		out     Execution
		outcome domain.Outcome
		success bool
		message string
	}{
		{
			name:    "timeout wins over exit error",
			out:     Execution{TimedOut: true, Err: errors.New("signal: killed"), Stderr: "partial"},
			outcome: domain.OutcomeTimeout,
			message: "api smoketest timed out.",
		},
		{
			name:    "non-zero exit uses stderr",
			out:     Execution{Err: errors.New("exit status 2"), ExitCode: 2, Stderr: "connection refused\n"},
			outcome: domain.OutcomeFailure,
			message: "connection refused\n",
		},
		{
			name:    "empty stderr falls back to error",
			out:     Execution{Err: errors.New("exit status 1"), ExitCode: 1},
			outcome: domain.OutcomeFailure,
			message: "api smoketest failed: exit status 1",
		},
		{
			name:    "launch error",
			out:     Execution{Err: errors.New(`exec: "nope": executable file not found in $PATH`), ExitCode: -1},
			outcome: domain.OutcomeFailure,
			message: `api smoketest failed: exec: "nope": executable file not found in $PATH`,
		},
		{
			name:    "success",
			out:     Execution{Elapsed: 1500 * time.Microsecond},
			outcome: domain.OutcomeSuccess,
			success: true,
			message: "api smoketest is successful in 1.5 ms.",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			chk := NewCommandChecker(&fakeExecutor{out: c.out})
			res := chk.Check(context.Background(), spec("api", "true"))
			if res.Outcome != c.outcome || res.Success != c.success || res.Message != c.message {
				t.Fatalf("got %+v", res)
			}
			if res.Service != "api" || res.CheckedAt.IsZero() {
				t.Fatalf("metadata not set: %+v", res)
			}
			if !c.success && res.DurationMS != 0 {
				t.Fatalf("failure must not carry a duration: %v", res.DurationMS)
			}
		})
	}
}

func TestCommandChecker_DurationAtLeastSleep(t *testing.T) {
	requireShell(t)
	chk := NewCommandChecker(nil)
	res := chk.Check(context.Background(), spec("sleepy", "sh", "-c", "sleep 0.2"))
	if !res.Success {
		t.Fatalf("want success, got %+v", res)
	}
	if res.DurationMS < 200 {
		t.Fatalf("want duration >= 200ms, got %v", res.DurationMS)
	}
	if !strings.HasPrefix(res.Message, "sleepy smoketest is successful in ") {
		t.Fatalf("unexpected message: %q", res.Message)
	}
}

func TestCommandChecker_RealNonZeroExit(t *testing.T) {
	requireShell(t)
	res := NewCommandChecker(nil).Check(context.Background(), spec("bad", "sh", "-c", "echo 'disk full' >&2; exit 1"))
	if res.Success || res.Outcome != domain.OutcomeFailure {
		t.Fatalf("want failure, got %+v", res)
	}
	if res.Message != "disk full\n" {
		t.Fatalf("message should equal stderr, got %q", res.Message)
	}
}

func TestCommandChecker_RealTimeout(t *testing.T) {
	requireShell(t)
	s := registry.CheckSpec{Name: "hang", Command: []string{"sh", "-c", "sleep 5"}, Timeout: 100 * time.Millisecond}
	res := NewCommandChecker(nil).Check(context.Background(), s)
	if res.Outcome != domain.OutcomeTimeout || res.Message != "hang smoketest timed out." {
		t.Fatalf("want timeout, got %+v", res)
	}
}
