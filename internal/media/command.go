// Package media drives the ffmpeg encoder and reads back what it produced.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Command is one external process invocation, built without side effects.
type Command struct {
	Name    string
	Args    []string
	Timeout time.Duration // zero means no limit beyond the caller's context
}

// String renders the command line for logs.
func (c Command) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Output is what a finished process left behind.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	TimedOut bool
	Elapsed  time.Duration
}

// Runner executes a Command. A process that starts and then fails is not an
// error at this level: the caller inspects ExitCode and TimedOut. err is
// reserved for processes that could not be started at all.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Output, error)
}

// ExecRunner runs commands with os/exec, capturing stdout and stderr.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) (*Output, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := &Output{
		Stdout:  stdout.Bytes(),
		Stderr:  stderr.Bytes(),
		Elapsed: time.Since(start),
	}

	if err == nil {
		return out, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		out.TimedOut = true
		out.ExitCode = -1
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}

	return nil, fmt.Errorf("failed to start %s: %w", c.Name, err)
}
