package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/internal/iocache"
	"github.com/huangsam/codetime/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// cacheManager is the global persistence manager instance.
var cacheManager contract.CacheManager = iocache.Manager

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "codetime",
	Short: "Ask questions about how a Git repository evolved.",
	Long: `CodeTime Navigator mines a repository's commit history, summarizes its
architecture and milestones, and answers natural-language questions about it.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// setConfigSource points viper at the config file, explicit or discovered.
func setConfigSource() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".codetime") // Name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setConfigSource()

	viper.SetEnvPrefix("CODETIME")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Pipeline
	viper.SetDefault("max-commits", contract.DefaultMaxCommits)
	viper.SetDefault("max-files-per-commit", contract.DefaultMaxFilesPerCommit)
	viper.SetDefault("max-tree-files", contract.DefaultMaxTreeFiles)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("batch-size", contract.DefaultBatchSize)
	viper.SetDefault("concurrency", contract.DefaultConcurrency)
	viper.SetDefault("job-timeout", contract.DefaultJobTimeout)
	viper.SetDefault("batch-timeout", contract.DefaultBatchTimeout)

	// Query
	viper.SetDefault("top-k", contract.DefaultTopK)
	viper.SetDefault("context-commits", contract.DefaultContextCommits)
	viper.SetDefault("context-chars", contract.DefaultContextChars)

	// LLM
	viper.SetDefault("llm-provider", schema.AnthropicProvider)
	viper.SetDefault("llm-timeout", contract.DefaultLLMTimeout)

	// Storage
	viper.SetDefault("cache-backend", schema.SQLiteBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("retention-days", contract.DefaultRetentionDays)
	viper.SetDefault("cleanup-schedule", contract.DefaultCleanupSchedule)

	// Server and client
	viper.SetDefault("listen", contract.DefaultListen)
	viper.SetDefault("poll-interval", contract.DefaultPollInterval)
	viper.SetDefault("poll-timeout", contract.DefaultPollTimeout)

	// Output
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
	viper.SetDefault("log-level", "info")
}

// loadConfigFile reads the config file if present.
func loadConfigFile() error {
	setConfigSource()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config, runs validation and configures logging.
// Storage is opened lazily by the commands that need it.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	// 4. Logging and colors go to stderr so stdout stays parseable.
	slog.SetDefault(contract.InitLogger(os.Stderr, cfg.LogLevel))
	color.NoColor = !cfg.UseColors
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// openStores initializes the persistence layer with the validated config.
func openStores() (contract.CacheStore, error) {
	if err := iocache.InitStores(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return nil, fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return cacheManager.GetAnalysisStore(), nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetCacheManager sets the global cache manager.
func SetCacheManager(mgr contract.CacheManager) {
	cacheManager = mgr
}
