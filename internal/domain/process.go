package domain

import (
	"context"
	"io"
)

// Command describes one external tool invocation. Env is the complete child
// environment; nothing is inherited from the parent process. A nil Stdin
// leaves the child reading from the null device, a nil Stdout discards the
// child's output.
type Command struct {
	Path   string
	Args   []string
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
}

// ProcessResult reports how a subprocess ended. A non-zero ExitCode is not
// an error at this layer; classifying it is the orchestrator's job.
type ProcessResult struct {
	ExitCode int
	Stderr   string
}

// ProcessRunner launches an external command, wires its standard streams and
// blocks until it exits. Exceeding the configured deadline kills the process
// and fails with a timeout engine error.
type ProcessRunner interface {
	Run(ctx context.Context, cmd Command) (*ProcessResult, error)
}
