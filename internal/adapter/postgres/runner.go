// Package postgres drives the PostgreSQL client binaries (pg_dump, psql) as
// black-box subprocesses: it builds their invocations, launches them with an
// explicit minimal environment, and wires their standard streams.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/pgvault/pgvault/internal/domain"
)

// defaultStderrCap bounds captured diagnostic output so a chatty tool cannot
// grow memory without limit.
const defaultStderrCap = 64 * 1024

// Runner executes external commands with a per-invocation deadline. The
// stdout pump and the process wait run as two joined tasks so the child
// never blocks on a full pipe.
type Runner struct {
	timeout   time.Duration
	stderrCap int
}

func NewRunner(timeout time.Duration) *Runner {
	return &Runner{timeout: timeout, stderrCap: defaultStderrCap}
}

func (r *Runner) Run(ctx context.Context, spec domain.Command) (*domain.ProcessResult, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Env = spec.Env
	if spec.Stdin != nil {
		cmd.Stdin = spec.Stdin
	}

	stderr := &boundedBuffer{limit: r.stderrCap}
	cmd.Stderr = stderr

	var stdout io.ReadCloser
	if spec.Stdout != nil {
		pipe, err := cmd.StdoutPipe()
		if err != nil {
			return nil, &domain.EngineError{
				Kind:     domain.ErrTool,
				Message:  fmt.Sprintf("failed to open stdout pipe for %s", spec.Path),
				Cause:    err,
				ExitCode: -1,
			}
		}
		stdout = pipe
	}

	if err := cmd.Start(); err != nil {
		return nil, &domain.EngineError{
			Kind:     domain.ErrTool,
			Message:  fmt.Sprintf("failed to start %s", spec.Path),
			Cause:    err,
			ExitCode: -1,
		}
	}

	var pumpErr error
	if stdout != nil {
		done := make(chan error, 1)
		go func() {
			_, err := io.Copy(spec.Stdout, stdout)
			if err != nil {
				// Keep draining so the child can exit instead of
				// blocking on a full pipe.
				_, _ = io.Copy(io.Discard, stdout)
			}
			done <- err
		}()
		pumpErr = <-done
	}

	waitErr := cmd.Wait()

	// A context error is only the outcome when the kill took effect: a
	// process that exited on its own just before the deadline fired keeps
	// its real exit status (Exited is false for a signal death).
	exitedOnOwn := cmd.ProcessState != nil && cmd.ProcessState.Exited()

	if ctxErr := ctx.Err(); ctxErr != nil && !exitedOnOwn {
		// CommandContext has already killed the process; Wait above
		// reclaimed it, so nothing is left running.
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, domain.NewTimeoutError(
				fmt.Sprintf("%s exceeded %s deadline and was terminated", spec.Path, r.timeout), ctxErr)
		}
		return nil, &domain.EngineError{
			Kind:     domain.ErrTool,
			Message:  fmt.Sprintf("%s was canceled", spec.Path),
			Cause:    ctxErr,
			ExitCode: -1,
			Stderr:   stderr.String(),
		}
	}

	if pumpErr != nil {
		if domain.KindOf(pumpErr) != "" {
			return nil, pumpErr
		}
		return nil, domain.NewStorageError(fmt.Sprintf("failed to stream %s output", spec.Path), pumpErr)
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(waitErr, &exitErr):
			exitCode = exitErr.ExitCode()
		case exitedOnOwn:
			// Wait surfaced the context error even though the process had
			// already exited; keep the real status.
			exitCode = cmd.ProcessState.ExitCode()
		default:
			return nil, &domain.EngineError{
				Kind:     domain.ErrTool,
				Message:  fmt.Sprintf("failed to wait for %s", spec.Path),
				Cause:    waitErr,
				ExitCode: -1,
			}
		}
	}

	return &domain.ProcessResult{ExitCode: exitCode, Stderr: stderr.String()}, nil
}

// boundedBuffer accepts writes up to limit bytes and drops the rest,
// flagging the truncation.
type boundedBuffer struct {
	buf       []byte
	limit     int
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if room := b.limit - len(b.buf); room > 0 {
		if len(p) > room {
			p = p[:room]
			b.truncated = true
		}
		b.buf = append(b.buf, p...)
	} else if n > 0 {
		b.truncated = true
	}
	return n, nil
}

func (b *boundedBuffer) String() string {
	if b.truncated {
		return string(b.buf) + "\n... [stderr truncated]"
	}
	return string(b.buf)
}
