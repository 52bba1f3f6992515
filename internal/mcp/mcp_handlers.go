package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/codetime/core/jobs"
	"github.com/huangsam/codetime/core/query"
	"github.com/huangsam/codetime/internal/apiclient"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	jobs   *jobs.Manager
	engine *query.Engine
	opts   Options
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}

func (h *toolHandler) handleAnalyzeRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoURL, err := request.RequireString("repo_url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxCommits := request.GetInt("max_commits", 0)

	if !request.GetBool("wait", false) {
		res, err := h.jobs.Submit(ctx, repoURL, maxCommits)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %s", contract.UserMessage(err))), nil
		}
		return jsonResult(res), nil
	}

	res, err := apiclient.NewPoller(h.jobs, h.opts.PollInterval, h.opts.PollTimeout).Run(ctx, repoURL, maxCommits)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis %s: %s", res.State, contract.UserMessage(err))), nil
	}
	if res.State == apiclient.FailedState {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %s", res.Response.ErrorMessage)), nil
	}
	return jsonResult(res.Response), nil
}

func (h *toolHandler) handleGetAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoID, err := request.RequireString("repo_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := h.jobs.GetStatus(ctx, repoID)
	if err != nil {
		return mcp.NewToolResultError(contract.UserMessage(err)), nil
	}
	return jsonResult(resp), nil
}

func (h *toolHandler) handleQueryRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoID, err := request.RequireString("repo_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	question, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := h.engine.Ask(ctx, repoID, question)
	if err != nil {
		return mcp.NewToolResultError(contract.UserMessage(err)), nil
	}
	return jsonResult(res), nil
}
