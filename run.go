package runlet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Run spawns the command's child process, waits for it to terminate,
// and classifies the outcome. It blocks the calling goroutine until
// the child exits or a communication error occurs.
//
// The returned error is nil on success, a *CommandError when the child
// ran but failed (non-success status, or any captured stderr output),
// and an ordinary wrapped error for communication failures: the program
// could not be spawned, a pipe broke, the wait failed, or ctx was
// cancelled. Use errors.As to distinguish child failures.
func Run(ctx context.Context, c *Command) error {
	_, err := c.run(ctx, false)
	return err
}

// Output is Run with stdout capture forced regardless of the command's
// stdout disposition. The captured bytes are returned on success and
// attached to the *CommandError on child failure, so partial output is
// available even when the child fails midway.
func Output(ctx context.Context, c *Command) ([]byte, error) {
	return c.run(ctx, true)
}

func (c *Command) run(ctx context.Context, forceStdout bool) ([]byte, error) {
	if c.path == "" {
		return nil, fmt.Errorf("empty program path")
	}
	if c.ran {
		return nil, fmt.Errorf("command %s already run", c.path)
	}
	c.ran = true

	cmd := exec.CommandContext(ctx, c.path, c.args...)
	cmd.Dir = c.dir
	cmd.Env = c.env

	switch c.stdin {
	case stdioInherit:
		cmd.Stdin = os.Stdin
	case stdioHandle:
		cmd.Stdin = c.stdinHandle
	}

	// Captured streams are handed to the child as writer-backed pipes,
	// which os/exec drains concurrently with the wait. The child can
	// never stall on a full pipe while we block in Wait.
	var outBuf, errBuf *limitWriter

	stdout := c.stdout
	if forceStdout {
		stdout = stdioCapture
	}
	switch stdout {
	case stdioInherit:
		cmd.Stdout = os.Stdout
	case stdioCapture:
		outBuf = newLimitWriter(c.maxOutput)
		cmd.Stdout = outBuf
	case stdioHandle:
		cmd.Stdout = c.stdoutHandle
	}

	switch c.stderr {
	case stdioInherit:
		cmd.Stderr = os.Stderr
	case stdioCapture:
		errBuf = newLimitWriter(c.maxOutput)
		cmd.Stderr = errBuf
	case stdioHandle:
		cmd.Stderr = c.stderrHandle
	}

	runErr := cmd.Run()

	var stdoutBytes []byte
	stdoutCaptured := outBuf != nil
	if stdoutCaptured {
		stdoutBytes = outBuf.bytes()
	}

	var stderrBytes []byte
	stderrCaptured := errBuf != nil
	if stderrCaptured {
		stderrBytes = errBuf.bytes()
	}

	truncated := (outBuf != nil && outBuf.truncated) || (errBuf != nil && errBuf.truncated)

	if runErr != nil {
		// A cancelled context killed the child; its status does not
		// reflect its own behaviour, so surface the cancellation.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("running %s: %w", c.path, ctx.Err())
		}

		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// Program not found, pipe I/O failure, or wait failure.
			return nil, fmt.Errorf("running %s: %w", c.path, runErr)
		}

		return nil, &CommandError{
			path:           c.path,
			status:         newExitStatus(exitErr.ProcessState),
			stderr:         stderrBytes,
			stderrCaptured: stderrCaptured,
			stdout:         stdoutBytes,
			stdoutCaptured: stdoutCaptured,
			truncated:      truncated,
		}
	}

	status := newExitStatus(cmd.ProcessState)

	// A clean exit with captured diagnostic output is still a failure.
	if stderrCaptured && len(stderrBytes) > 0 {
		return nil, &CommandError{
			path:           c.path,
			status:         status,
			stderr:         stderrBytes,
			stderrCaptured: true,
			stdout:         stdoutBytes,
			stdoutCaptured: stdoutCaptured,
			truncated:      truncated,
		}
	}

	return stdoutBytes, nil
}

// limitWriter buffers up to limit bytes, then silently discards the
// rest. A limit <= 0 means unbounded.
type limitWriter struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newLimitWriter(limit int) *limitWriter {
	return &limitWriter{limit: limit}
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return w.buf.Write(p)
	}
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		if len(p) > 0 {
			w.truncated = true
		}
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		w.truncated = true
		return len(p), nil
	}
	return w.buf.Write(p)
}

func (w *limitWriter) bytes() []byte {
	if w.buf.Len() == 0 {
		return []byte{}
	}
	return w.buf.Bytes()
}
