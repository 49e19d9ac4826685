package script

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"time"

	"github.com/runlet-dev/runlet"
	"github.com/runlet-dev/runlet/internal/history"
)

// Engine holds shared settings for script execution.
type Engine struct {
	// Dir is the base directory for relative step dirs.
	Dir string
	// Timeout bounds each step. Zero means no bound.
	Timeout time.Duration
	// MaxOutput caps each captured stream per step.
	MaxOutput int
	// Store receives a record per executed step. Nil disables recording.
	Store history.Store
}

// Result holds the outcome of a script run.
type Result struct {
	Steps     []StepResult
	FailedIdx int // -1 if all steps passed
}

// StepResult holds the outcome of a single step.
type StepResult struct {
	Name   string
	Status string // pass, fail, error, skipped
	RunID  string // history record ID, when recording is enabled
	Detail string // failure or error description
}

// Run executes the script's steps in order, stopping on the first step
// that fails. Steps after the failure are reported as skipped.
func (e *Engine) Run(ctx context.Context, s *Script) (*Result, error) {
	results := make([]StepResult, len(s.Steps))
	for i, step := range s.Steps {
		results[i] = StepResult{Name: step.Name, Status: "skipped"}
	}

	failedIdx := -1
	for i, step := range s.Steps {
		res, err := e.runStep(ctx, step)
		if err != nil {
			return nil, err
		}
		results[i] = res
		if res.Status != "pass" {
			failedIdx = i
			break
		}
	}

	return &Result{Steps: results, FailedIdx: failedIdx}, nil
}

func (e *Engine) runStep(ctx context.Context, step Step) (StepResult, error) {
	dir := step.Dir
	if dir != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(e.Dir, dir)
	}
	if dir == "" {
		dir = e.Dir
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := runlet.New(step.Command[0], step.Command[1:]...).
		Dir(dir).
		DiscardStdin().
		MaxOutput(e.MaxOutput)

	rec := history.NewRecord(step.Command, dir)
	start := time.Now()
	out, runErr := runlet.Output(ctx, cmd)
	rec.Finish(out, runErr, time.Since(start))

	if e.Store != nil {
		if err := e.Store.Save(rec); err != nil {
			return StepResult{}, err
		}
	}

	res := StepResult{Name: step.Name, RunID: rec.ID}
	switch {
	case runErr == nil:
		res.Status = "pass"
	case e.tolerated(step, runErr):
		res.Status = "pass"
	default:
		var cmdErr *runlet.CommandError
		if errors.As(runErr, &cmdErr) {
			res.Status = "fail"
		} else {
			res.Status = "error"
		}
		res.Detail = runErr.Error()
	}
	return res, nil
}

// tolerated applies the step's relaxations to a child failure.
// Communication failures are never tolerated.
func (e *Engine) tolerated(step Step, runErr error) bool {
	var cmdErr *runlet.CommandError
	if !errors.As(runErr, &cmdErr) {
		return false
	}

	if step.AllowStderr {
		// Only the exit status matters.
		status := cmdErr.Status()
		return status.Success() || slices.Contains(step.TolerateExit, status.Code())
	}

	// Strict mode: a tolerated exit code is accepted only when the
	// step produced no stderr output.
	var statusErr *runlet.StatusError
	if errors.As(cmdErr.AcceptIfNoStderr(), &statusErr) {
		return slices.Contains(step.TolerateExit, statusErr.Status.Code())
	}
	return false
}
