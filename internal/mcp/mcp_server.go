// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"
	"time"

	"github.com/huangsam/codetime/core/jobs"
	"github.com/huangsam/codetime/core/query"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Options tune how analyze_repository waits for a job.
type Options struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// NewMCPServer initializes and configures the CodeTime MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(mgr *jobs.Manager, engine *query.Engine, opts Options) *server.MCPServer {
	s := server.NewMCPServer(
		"CodeTime Navigator",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{jobs: mgr, engine: engine, opts: opts}

	// --- 1. Tool: analyze_repository ---
	s.AddTool(mcp.NewTool("analyze_repository",
		mcp.WithDescription("Analyze the commit history of a public Git repository. Returns the job id and status; set wait to block until the analysis finishes."),
		mcp.WithString("repo_url", mcp.Description("HTTPS or SSH URL of the repository."), mcp.Required()),
		mcp.WithNumber("max_commits", mcp.Description("Most recent commits to analyze (defaults to the server setting).")),
		mcp.WithBoolean("wait", mcp.Description("Wait for the analysis to complete before returning.")),
	), h.handleAnalyzeRepository)

	// --- 2. Tool: get_analysis ---
	s.AddTool(mcp.NewTool("get_analysis",
		mcp.WithDescription("Get the status of an analysis job, with its statistics, patterns and milestones once completed."),
		mcp.WithString("repo_id", mcp.Description("Job id returned by analyze_repository."), mcp.Required()),
	), h.handleGetAnalysis)

	// --- 3. Tool: query_repository ---
	s.AddTool(mcp.NewTool("query_repository",
		mcp.WithDescription("Ask a free-text question about a completed analysis. The answer cites commits as evidence."),
		mcp.WithString("repo_id", mcp.Description("Job id of a completed analysis."), mcp.Required()),
		mcp.WithString("query", mcp.Description("The question to answer, e.g. 'How did authentication evolve?'."), mcp.Required()),
	), h.handleQueryRepository)

	return s
}

// StartMCPServer serves the CodeTime tools over stdio.
func StartMCPServer(_ context.Context, mgr *jobs.Manager, engine *query.Engine, opts Options) error {
	s := NewMCPServer(mgr, engine, opts)
	return server.ServeStdio(s)
}
