// Package history provides structured persistence and retrieval of
// run records. Every run started through the CLI or MCP surface is
// recorded with its classified outcome and captured output.
package history

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/runlet-dev/runlet"
)

// Outcome classifies how a run ended.
type Outcome string

const (
	// OutcomeSuccess: the child exited cleanly with no captured stderr.
	OutcomeSuccess Outcome = "success"
	// OutcomeChildFailure: the child ran but its status or captured
	// stderr indicates failure.
	OutcomeChildFailure Outcome = "child_failure"
	// OutcomeCommFailure: the child could not be spawned, waited on,
	// or read.
	OutcomeCommFailure Outcome = "comm_failure"
)

// Store persists and retrieves run records.
type Store interface {
	Save(rec *Record) error
	Load(runID string) (*Record, error)
	// List returns up to n records, most recent first.
	List(n int) ([]*Record, error)
}

// Record holds the stored outcome of one run.
type Record struct {
	ID   string   `json:"id"`
	Argv []string `json:"argv"`
	Dir  string   `json:"dir,omitempty"`

	Outcome    Outcome `json:"outcome"`
	ExitCode   int     `json:"exit_code"`
	ExitDetail string  `json:"exit_detail,omitempty"` // e.g. "signal: killed"
	Error      string  `json:"error,omitempty"`       // communication failure message

	Stderr    string `json:"stderr,omitempty"`
	Stdout    string `json:"stdout,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// NewRecord starts a record for the given command line.
func NewRecord(argv []string, dir string) *Record {
	return &Record{
		ID:        uuid.New().String(),
		Argv:      argv,
		Dir:       dir,
		StartedAt: time.Now().UTC(),
	}
}

// Finish classifies the run's error and fills in the outcome fields.
// stdout carries captured output on the success path; on child failure
// the bytes are taken from the error itself.
func (r *Record) Finish(stdout []byte, runErr error, elapsed time.Duration) {
	r.DurationMS = elapsed.Milliseconds()

	if runErr == nil {
		r.Outcome = OutcomeSuccess
		r.Stdout = string(stdout)
		return
	}

	var cmdErr *runlet.CommandError
	if errors.As(runErr, &cmdErr) {
		r.Outcome = OutcomeChildFailure
		r.ExitCode = cmdErr.Status().Code()
		r.ExitDetail = cmdErr.Status().String()
		r.Stderr = cmdErr.StderrText()
		r.Truncated = cmdErr.Truncated()
		if out, ok := cmdErr.StdoutBytes(); ok {
			r.Stdout = string(out)
		}
		return
	}

	r.Outcome = OutcomeCommFailure
	r.Error = runErr.Error()
}

// Summary returns a one-line human-readable description of the record.
func (r *Record) Summary() string {
	cmd := strings.Join(r.Argv, " ")
	switch r.Outcome {
	case OutcomeSuccess:
		return fmt.Sprintf("%s  ok  %s (%dms)", r.ID, cmd, r.DurationMS)
	case OutcomeChildFailure:
		return fmt.Sprintf("%s  FAIL  %s: %s (%dms)", r.ID, cmd, r.failureDetail(), r.DurationMS)
	case OutcomeCommFailure:
		return fmt.Sprintf("%s  ERROR  %s: %s", r.ID, cmd, r.Error)
	default:
		return fmt.Sprintf("%s  %s", r.ID, cmd)
	}
}

func (r *Record) failureDetail() string {
	if r.ExitCode == 0 && r.Stderr != "" {
		return "stderr output on clean exit"
	}
	return r.ExitDetail
}
