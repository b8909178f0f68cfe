package platform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds external command execution when the caller's
// context carries no deadline of its own.
const DefaultCommandTimeout = 60 * time.Second

// Result captures the outcome of one external command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external commands. Implementations must honor context
// cancellation and must not panic on a missing binary; a failed invocation is
// reported through the returned error with the partial Result still filled in.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands through os/exec with a per-invocation timeout.
type ExecRunner struct {
	Timeout time.Duration // zero means DefaultCommandTimeout
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	if _, ok := ctx.Deadline(); !ok {
		timeout := r.Timeout
		if timeout <= 0 {
			timeout = DefaultCommandTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return res, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, res.Stderr)
	}
	return res, nil
}

// RunSilent executes a command through the given runner and only reports
// whether it failed.
func RunSilent(ctx context.Context, r Runner, name string, args ...string) error {
	_, err := r.Run(ctx, name, args...)
	return err
}
