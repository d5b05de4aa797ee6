// Package extproc wraps external tool invocations behind a small [Runner]
// interface so that pipeline stages can be tested with fake tools instead of
// real subprocesses.
//
// Every invocation is bounded by a timeout: a hung aligner or pitch-shift
// binary cancels via the context instead of blocking the caller forever.
package extproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// defaultTimeout bounds a single tool invocation when the caller's context
// carries no deadline of its own.
const defaultTimeout = 5 * time.Minute

// Result carries the captured output of a finished tool invocation.
// Stdout and Stderr are populated even when the invocation failed, so callers
// can surface the tool's own diagnostics.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// Runner abstracts subprocess execution.
//
// Implementations must be safe for concurrent use; the pipeline may shell out
// to several tools from independent goroutines.
type Runner interface {
	// LookPath reports whether the named executable can be found, returning
	// its resolved path. Used as a lightweight availability probe before a
	// full invocation.
	LookPath(name string) (string, error)

	// Run executes name with args, feeding stdin to the process when non-nil.
	// A nonzero exit status is returned as an error; the Result still carries
	// whatever the tool wrote to stdout and stderr.
	Run(ctx context.Context, stdin []byte, name string, args ...string) (Result, error)
}

// ExecRunner is the production [Runner] backed by os/exec.
type ExecRunner struct {
	// Timeout bounds each invocation. Zero means [defaultTimeout].
	Timeout time.Duration
}

// New returns an ExecRunner with the given per-invocation timeout.
// A zero timeout selects the package default.
func New(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// LookPath implements [Runner] via exec.LookPath.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run implements [Runner]. The invocation is cancelled when ctx is done or
// when the runner's timeout elapses, whichever comes first.
func (r *ExecRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return res, fmt.Errorf("extproc: %s timed out after %s", name, timeout)
		}
		return res, fmt.Errorf("extproc: %s: %w", name, err)
	}
	return res, nil
}
