package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// CommandExecutor runs commands with os/exec. Output is collected until
// every writer has closed it, bounded by the same deadline as the command
// itself: background children that keep stdout or stderr open count
// against the timeout. On timeout the whole process tree is killed.
type CommandExecutor struct {
	// KillGrace bounds how long output is still read after a kill.
	KillGrace time.Duration

	afterWait func() // test hook, runs between exit and output collection
}

func NewCommandExecutor() *CommandExecutor {
	return &CommandExecutor{KillGrace: 2 * time.Second}
}

func (e *CommandExecutor) Execute(ctx context.Context, argv []string, timeout time.Duration) Execution {
	if len(argv) == 0 {
		return Execution{ExitCode: -1, Err: errors.New("empty command")}
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outR, outW, err := os.Pipe()
	if err != nil {
		return Execution{ExitCode: -1, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return Execution{ExitCode: -1, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	// Set only when this check's own deadline forced the kill, never for
	// a parent cancellation or an exit that merely raced the deadline.
	var deadlineKill atomic.Bool
	ownDeadline := func() bool {
		return ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded)
	}

	cmd := exec.CommandContext(cctx, argv[0], argv[1:]...)
	cmd.Stdout = outW
	cmd.Stderr = errW
	configureProcess(cmd)
	cmd.Cancel = func() error {
		if ownDeadline() {
			deadlineKill.Store(true)
		}
		return killProcessTree(cmd)
	}

	start := time.Now()
	err = cmd.Start()
	// the child holds its own copies now
	outW.Close()
	errW.Close()
	if err != nil {
		outR.Close()
		errR.Close()
		return Execution{Elapsed: time.Since(start), ExitCode: -1, Err: err}
	}

	var stdout, stderr bytes.Buffer
	drained := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); _, _ = io.Copy(&stdout, outR) }()
		go func() { defer wg.Done(); _, _ = io.Copy(&stderr, errR) }()
		wg.Wait()
		close(drained)
	}()

	err = cmd.Wait()
	if e.afterWait != nil {
		e.afterWait()
	}

	select {
	case <-drained:
	default:
		select {
		case <-drained:
		case <-cctx.Done():
			if ownDeadline() {
				deadlineKill.Store(true)
			}
			_ = killProcessTree(cmd)
			select {
			case <-drained:
			case <-time.After(e.grace()):
			}
		}
	}
	outR.Close()
	errR.Close()
	<-drained
	elapsed := time.Since(start)

	out := Execution{
		Elapsed:  elapsed,
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		TimedOut: deadlineKill.Load(),
		Err:      err,
	}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}
	if out.Err == nil {
		switch {
		case out.TimedOut:
			out.Err = fmt.Errorf("output still open at deadline: %w", context.DeadlineExceeded)
		case ctx.Err() != nil:
			out.Err = ctx.Err()
		}
	}
	return out
}

func (e *CommandExecutor) grace() time.Duration {
	if e.KillGrace > 0 {
		return e.KillGrace
	}
	return 2 * time.Second
}
