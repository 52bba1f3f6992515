package cmd

import (
	"github.com/huangsam/codetime/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the CodeTime MCP server",
	Long: `Launch an MCP server over stdio so AI agents can analyze repositories and
ask questions about their history through standard tools.

Tools: analyze_repository, get_analysis, query_repository`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		svc, err := startServices()
		if err != nil {
			return err
		}
		defer svc.jobs.Close()
		return mcp.StartMCPServer(rootCtx, svc.jobs, svc.engine, mcp.Options{
			PollInterval: cfg.PollInterval,
			PollTimeout:  cfg.PollTimeout,
		})
	},
}
