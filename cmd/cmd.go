// Package cmd defines the command-line interface for codetime.
package cmd

import (
	"fmt"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(visualizeCmd)
	rootCmd.AddCommand(suggestionsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	// Bind all persistent flags of rootCmd to Viper
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to config file")
	flags.String("server", "", fmt.Sprintf("URL of a codetime server to use instead of running in-process (e.g., %s)", contract.DefaultServerURL))
	flags.Int("max-commits", contract.DefaultMaxCommits, fmt.Sprintf("Most recent commits to analyze (max %d)", contract.MaxCommitsLimit))
	flags.Int("max-files-per-commit", contract.DefaultMaxFilesPerCommit, "Changed files recorded per commit")
	flags.Int("max-tree-files", contract.DefaultMaxTreeFiles, "Files sampled from the tree at HEAD")
	flags.Int("workers", contract.DefaultWorkers, "Number of concurrent analysis pipelines")
	flags.Int("batch-size", contract.DefaultBatchSize, "Commits per pattern-synthesis prompt")
	flags.Int("concurrency", contract.DefaultConcurrency, "Concurrent pattern-synthesis prompts per analysis")
	flags.String("job-timeout", contract.DefaultJobTimeout, "Wall-clock ceiling of one analysis")
	flags.String("batch-timeout", contract.DefaultBatchTimeout, "Ceiling of one pattern-synthesis prompt")
	flags.Int("top-k", contract.DefaultTopK, "Commits ranked as relevant to a query")
	flags.Int("context-commits", contract.DefaultContextCommits, "Ranked commits included in a query prompt")
	flags.Int("context-chars", contract.DefaultContextChars, "Character budget of a query prompt")
	flags.String("llm-provider", string(schema.AnthropicProvider), "Language model provider: anthropic or openai or offline")
	flags.String("llm-model", "", "Model name (empty = provider default)")
	flags.String("llm-api-key", "", "API key for the provider (prefer CODETIME_LLM_API_KEY)")
	flags.String("llm-base-url", "", "Override the provider API base URL")
	flags.String("llm-timeout", contract.DefaultLLMTimeout, "Timeout of one model request")
	flags.String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or badger or memory")
	flags.String("cache-db-connect", "", "Database connection string or directory (e.g., user:pass@tcp(host:port)/dbname)")
	flags.Int("retention-days", contract.DefaultRetentionDays, "Days an analysis is kept after its last update")
	flags.String("poll-interval", contract.DefaultPollInterval, "Delay between status checks while waiting")
	flags.String("poll-timeout", contract.DefaultPollTimeout, "Stop waiting after this long")
	flags.String("output", string(schema.TextOut), "Output format: text or json")
	flags.String("output-file", "", "Optional path to write output to")
	flags.Int("width", 0, "Terminal width override (0 = auto-detect)")
	flags.String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	flags.String("log-level", "info", "Log level: debug or info or warn or error")
	if err := viper.BindPFlags(flags); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("listen", contract.DefaultListen, "Address the HTTP server listens on")
	serveCmd.Flags().String("cleanup-schedule", contract.DefaultCleanupSchedule, "Cron schedule for removing stale analyses")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of cacheListCmd to Viper
	cacheListCmd.Flags().IntP("limit", "l", contract.DefaultListLimit, "Number of analyses to display")
	if err := viper.BindPFlags(cacheListCmd.Flags()); err != nil {
		contract.LogFatal("Error binding cache list flags", err)
	}

	// Bind all flags of migrateCmd to Viper
	migrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(migrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding migrate flags", err)
	}
}
