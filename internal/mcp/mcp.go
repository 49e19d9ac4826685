// Package mcp provides the runlet MCP server, registering the run
// tools and publishing model instructions.
package mcp

import (
	_ "embed"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/runlet-dev/runlet"
	"github.com/runlet-dev/runlet/internal/config"
	"github.com/runlet-dev/runlet/internal/history"
	"github.com/runlet-dev/runlet/internal/metrics"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	cfg     *config.Config
	store   history.Store
	baseDir string             // working directory for runs and script paths
	metrics *metrics.Collector // nil outside HTTP mode
}

// NewServer creates an MCP server with all runlet tools registered.
func NewServer(cfg *config.Config, store history.Store, baseDir string, opts ...ServerOption) *mcp.Server {
	h := &handler{
		cfg:     cfg,
		store:   store,
		baseDir: baseDir,
	}

	var so serverOptions
	for _, o := range opts {
		o(&so)
	}
	h.metrics = so.metrics

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "runlet", Version: runlet.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "run_command",
		Description: `Run one command to completion and return its classified outcome.

The command is an argv vector, never a shell string. Stderr is captured and any
stderr output fails the run unless allow_stderr is set. The outcome is stored;
use run_inspect with the returned run_id to retrieve full output later.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "run_script",
		Description: `Run a YAML script of commands in order, stopping on the first failure.

Each step records a run_id for drill-down via run_inspect. Steps may tolerate
stderr output (allow_stderr) or specific exit codes (tolerate_exit).`,
	}, h.scriptHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "run_history",
		Description: "List recent runs, most recent first, one summary line each.",
	}, h.historyHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "run_inspect",
		Description: "Retrieve the full stored record of a run: outcome, exit status, stderr, and stdout.",
	}, h.inspectHandler)

	return s
}

// ServerOption configures the runlet MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	metrics *metrics.Collector
}

// WithMetrics attaches a metrics collector; run outcomes are observed
// on it.
func WithMetrics(c *metrics.Collector) ServerOption {
	return func(o *serverOptions) {
		o.metrics = c
	}
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
