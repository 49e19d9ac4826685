package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/runlet-dev/runlet"
	"github.com/runlet-dev/runlet/internal/history"
	"github.com/runlet-dev/runlet/internal/script"
)

type runParams struct {
	Command       []string `json:"command" jsonschema:"argv to execute; the first element is the program, resolved via PATH"`
	Dir           string   `json:"dir,omitempty" jsonschema:"working directory; relative paths resolve against the server's base directory"`
	Timeout       string   `json:"timeout,omitempty" jsonschema:"per-run timeout such as 30s; defaults to the configured timeout"`
	CaptureStdout bool     `json:"capture_stdout,omitempty" jsonschema:"capture the child's stdout and include it in the result"`
	AllowStderr   bool     `json:"allow_stderr,omitempty" jsonschema:"discard stderr instead of capturing it, so stderr output cannot fail the run"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	if len(params.Command) == 0 {
		return errorResult("command is required")
	}

	timeout := h.cfg.Timeout()
	if params.Timeout != "" {
		d, err := time.ParseDuration(params.Timeout)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid timeout %q: %v", params.Timeout, err))
		}
		timeout = d
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dir := params.Dir
	if dir != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(h.baseDir, dir)
	}
	if dir == "" {
		dir = h.baseDir
	}

	cmd := runlet.New(params.Command[0], params.Command[1:]...).
		Dir(dir).
		DiscardStdin().
		DiscardStdout().
		MaxOutput(h.cfg.MaxOutputBytes())
	if params.AllowStderr {
		cmd.DiscardStderr()
	}

	rec := history.NewRecord(params.Command, dir)
	start := time.Now()

	var out []byte
	var runErr error
	if params.CaptureStdout {
		out, runErr = runlet.Output(ctx, cmd)
	} else {
		runErr = runlet.Run(ctx, cmd)
	}

	elapsed := time.Since(start)
	rec.Finish(out, runErr, elapsed)
	h.metrics.ObserveRun(string(rec.Outcome), elapsed)

	if err := h.store.Save(rec); err != nil {
		return errorResult(fmt.Sprintf("Failed to store run: %v", err))
	}

	return textResult(formatRun(rec, runErr))
}

func formatRun(rec *history.Record, runErr error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", rec.ID)
	fmt.Fprintf(&b, "Command: %s\n", strings.Join(rec.Argv, " "))

	switch rec.Outcome {
	case history.OutcomeSuccess:
		fmt.Fprintf(&b, "Result: ok (%dms)\n", rec.DurationMS)
	case history.OutcomeChildFailure:
		var cmdErr *runlet.CommandError
		errors.As(runErr, &cmdErr)
		if cmdErr.Status().Success() {
			fmt.Fprintf(&b, "Result: FAIL, stderr output on clean exit (%dms)\n", rec.DurationMS)
		} else {
			fmt.Fprintf(&b, "Result: FAIL, %s (%dms)\n", cmdErr.Status(), rec.DurationMS)
		}
		if rec.Stderr != "" {
			fmt.Fprintf(&b, "\nStderr:\n%s", indent(rec.Stderr))
		}
	case history.OutcomeCommFailure:
		fmt.Fprintf(&b, "Result: ERROR, %s\n", rec.Error)
	}

	if rec.Stdout != "" {
		fmt.Fprintf(&b, "\nStdout:\n%s", indent(rec.Stdout))
	}
	if rec.Truncated {
		fmt.Fprintf(&b, "\n(output truncated at the configured cap)\n")
	}
	return b.String()
}

type scriptParams struct {
	Path string `json:"path" jsonschema:"path to the YAML script file; relative paths resolve against the server's base directory"`
}

func (h *handler) scriptHandler(ctx context.Context, req *mcp.CallToolRequest, params scriptParams) (*mcp.CallToolResult, any, error) {
	if params.Path == "" {
		return errorResult("path is required")
	}

	path := params.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(h.baseDir, path)
	}

	s, err := script.Load(path)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load script: %v", err))
	}

	eng := &script.Engine{
		Dir:       h.baseDir,
		Timeout:   h.cfg.Timeout(),
		MaxOutput: h.cfg.MaxOutputBytes(),
		Store:     h.store,
	}
	res, err := eng.Run(ctx, s)
	if err != nil {
		return errorResult(fmt.Sprintf("Script run failed: %v", err))
	}

	var b strings.Builder
	if res.FailedIdx < 0 {
		fmt.Fprintf(&b, "ok: %d steps\n\n", len(res.Steps))
	} else {
		fmt.Fprintf(&b, "FAIL at step %d\n\n", res.FailedIdx+1)
	}
	for _, sr := range res.Steps {
		switch sr.Status {
		case "pass":
			fmt.Fprintf(&b, "  %-15s ok          run_id=%s\n", sr.Name, sr.RunID)
		case "fail", "error":
			fmt.Fprintf(&b, "  %-15s %-11s run_id=%s\n", sr.Name, strings.ToUpper(sr.Status), sr.RunID)
			if sr.Detail != "" {
				fmt.Fprintf(&b, "    %s\n", sr.Detail)
			}
		case "skipped":
			fmt.Fprintf(&b, "  %-15s -\n", sr.Name)
		}
	}
	return textResult(b.String())
}

type historyParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to list; defaults to 10"`
}

func (h *handler) historyHandler(ctx context.Context, req *mcp.CallToolRequest, params historyParams) (*mcp.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}

	records, err := h.store.List(limit)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to list runs: %v", err))
	}
	if len(records) == 0 {
		return textResult("No runs recorded yet.")
	}

	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintln(&b, rec.Summary())
	}
	return textResult(b.String())
}

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a run_command, run_script, or run_history result"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	rec, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", rec.ID)
	fmt.Fprintf(&b, "Command: %s\n", strings.Join(rec.Argv, " "))
	if rec.Dir != "" {
		fmt.Fprintf(&b, "Dir: %s\n", rec.Dir)
	}
	fmt.Fprintf(&b, "Started: %s\n", rec.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration: %dms\n", rec.DurationMS)

	switch rec.Outcome {
	case history.OutcomeSuccess:
		fmt.Fprintln(&b, "Outcome: success")
	case history.OutcomeChildFailure:
		fmt.Fprintf(&b, "Outcome: child failure (%s)\n", rec.ExitDetail)
	case history.OutcomeCommFailure:
		fmt.Fprintf(&b, "Outcome: communication failure (%s)\n", rec.Error)
	}

	if rec.Stderr != "" {
		fmt.Fprintf(&b, "\nStderr:\n%s", indent(rec.Stderr))
	}
	if rec.Stdout != "" {
		fmt.Fprintf(&b, "\nStdout:\n%s", indent(rec.Stdout))
	}
	if rec.Truncated {
		fmt.Fprintln(&b, "\n(output truncated at the configured cap)")
	}
	return textResult(b.String())
}

func indent(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		fmt.Fprintf(&b, "    %s\n", line)
	}
	return b.String()
}
