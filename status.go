package runlet

import (
	"fmt"
	"os"
)

// ExitStatus wraps the platform's termination report for a finished
// child process. The zero value is not meaningful; statuses are
// produced by the runner or by StatusFromCode.
type ExitStatus struct {
	code   int
	exited bool
	desc   string
}

// StatusFromCode builds a status for a process that exited normally
// with the given code. Useful in tests and exit-code tolerance lists.
func StatusFromCode(code int) ExitStatus {
	return ExitStatus{
		code:   code,
		exited: true,
		desc:   fmt.Sprintf("exit status %d", code),
	}
}

// newExitStatus converts the wait result reported by the platform.
func newExitStatus(ps *os.ProcessState) ExitStatus {
	return ExitStatus{
		code:   ps.ExitCode(),
		exited: ps.Exited(),
		desc:   ps.String(),
	}
}

// Success reports whether the child exited normally with code zero.
func (s ExitStatus) Success() bool { return s.exited && s.code == 0 }

// Code returns the exit code, or -1 if the child was terminated by a
// signal rather than exiting.
func (s ExitStatus) Code() int { return s.code }

// Exited reports whether the child exited normally, as opposed to
// being terminated by a signal.
func (s ExitStatus) Exited() bool { return s.exited }

// String returns the platform's description, e.g. "exit status 1" or
// "signal: killed".
func (s ExitStatus) String() string { return s.desc }

// AsResult converts the status to a binary outcome: nil on success, or
// a *StatusError carrying the status. Pure; no side effects.
func (s ExitStatus) AsResult() error {
	if s.Success() {
		return nil
	}
	return &StatusError{Status: s}
}

// StatusError is an ExitStatus viewed as an error. It is returned by
// ExitStatus.AsResult and CommandError.AcceptIfNoStderr so callers can
// tolerate specific exit codes with errors.As.
type StatusError struct {
	Status ExitStatus
}

func (e *StatusError) Error() string { return e.Status.String() }
