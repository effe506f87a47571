// Package vcs is the adapter over the version-control tool. Diffs, logs and
// merge-base lookups are delegated to the git binary; cheap read-only ref
// lookups are answered in-process with go-git.
package vcs

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/jingkaihe/prskill/pkg/logger"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds a single external command.
const DefaultTimeout = 30 * time.Second

// Runner executes an external command in dir and returns its stdout.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// CommandError carries the stderr of a failed command.
type CommandError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return e.Command + ": " + e.Err.Error()
	}
	return e.Command + ": " + e.Err.Error() + ": " + e.Stderr
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec, each bounded by Timeout.
type ExecRunner struct {
	Timeout time.Duration
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := logger.G(logger.WithCommand(ctx, name, args))
	start := time.Now()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(cmdCtx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	log = log.WithField("duration", time.Since(start))
	if err != nil {
		if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
			err = errors.Wrapf(cmdCtx.Err(), "timed out after %s", timeout)
		}
		log.WithError(err).Debug("command failed")
		return stdout.Bytes(), &CommandError{
			Command: strings.Join(append([]string{name}, args...), " "),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}

	log.Debug("command finished")
	return stdout.Bytes(), nil
}
