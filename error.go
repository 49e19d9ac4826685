package runlet

import (
	"fmt"
	"strings"
)

// CommandError reports a child failure: the process was spawned and
// waited on, and either its exit status was non-success or — with
// stderr capture enabled — it produced diagnostic output. The two
// causes can co-occur and remain independently checkable via Status
// and StderrBytes.
//
// Communication failures (spawn, pipe, or wait errors unrelated to the
// child's behaviour) are never represented as a CommandError.
type CommandError struct {
	path string

	status ExitStatus

	stderr         []byte
	stderrCaptured bool

	stdout         []byte
	stdoutCaptured bool

	truncated bool
}

func (e *CommandError) Error() string {
	if e.status.Success() {
		return fmt.Sprintf("%s: %s (stderr: %s)", e.path, e.status, firstLine(e.stderr))
	}
	if len(e.stderr) > 0 {
		return fmt.Sprintf("%s: %s: %s", e.path, e.status, firstLine(e.stderr))
	}
	return fmt.Sprintf("%s: %s", e.path, e.status)
}

// Status returns the child's exit status. Always available: a
// CommandError only exists after the wait completed.
func (e *CommandError) Status() ExitStatus { return e.status }

// StderrBytes returns the captured stderr bytes. It returns nil when
// stderr capture was disabled and an empty slice when the child wrote
// nothing (reachable only alongside a failing status).
func (e *CommandError) StderrBytes() []byte { return e.stderr }

// StderrText decodes the captured stderr as text, replacing invalid
// sequences rather than failing. The encoding of process output is a
// platform property; on the supported platforms it is assumed UTF-8.
func (e *CommandError) StderrText() string {
	return strings.ToValidUTF8(string(e.stderr), "�")
}

// StdoutBytes returns the captured stdout bytes and whether stdout
// capture was requested for this run. Partial output written before
// the failure is preserved.
func (e *CommandError) StdoutBytes() ([]byte, bool) {
	return e.stdout, e.stdoutCaptured
}

// Truncated reports whether a captured stream hit the command's output
// cap and was cut short.
func (e *CommandError) Truncated() bool { return e.truncated }

// AcceptIfNoStderr narrows the failure down to just the exit status,
// but only if captured stderr was empty; otherwise it returns the
// CommandError unchanged. This lets a caller tolerate specific exit
// codes while still treating any stderr output as fatal.
func (e *CommandError) AcceptIfNoStderr() error {
	if len(e.stderr) == 0 {
		return &StatusError{Status: e.status}
	}
	return e
}

// firstLine trims captured output to a single line for error strings.
func firstLine(b []byte) string {
	s := strings.ToValidUTF8(string(b), "�")
	s = strings.TrimRight(s, "\n")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}
	return s
}
