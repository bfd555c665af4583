package probe

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/smoketestexporter/internal/domain"
	"github.com/hamed0406/smoketestexporter/internal/registry"
)

// CommandChecker turns one bounded command execution into a CheckResult.
type CommandChecker struct {
	Exec Executor
}

func NewCommandChecker(exec Executor) *CommandChecker {
	if exec == nil {
		exec = NewCommandExecutor()
	}
	return &CommandChecker{Exec: exec}
}

// Check classifies in order: timeout, failed (non-zero exit or launch
// error), success.
func (c *CommandChecker) Check(ctx context.Context, spec registry.CheckSpec) domain.CheckResult {
	ex := c.Exec.Execute(ctx, spec.Command, spec.Timeout)
	res := domain.CheckResult{Service: spec.Name, CheckedAt: time.Now().UTC()}

	switch {
	case ex.TimedOut:
		res.Outcome = domain.OutcomeTimeout
		res.Message = fmt.Sprintf("%s smoketest timed out.", spec.Name)
	case ex.Err != nil:
		res.Outcome = domain.OutcomeFailure
		res.Message = ex.Stderr
		if strings.TrimSpace(res.Message) == "" {
			res.Message = fmt.Sprintf("%s smoketest failed: %v", spec.Name, ex.Err)
		}
	default:
		ms := float64(ex.Elapsed) / float64(time.Millisecond)
		res.Outcome = domain.OutcomeSuccess
		res.Success = true
		res.DurationMS = ms
		res.Message = fmt.Sprintf("%s smoketest is successful in %s ms.", spec.Name, strconv.FormatFloat(ms, 'f', -1, 64))
	}
	return res
}
