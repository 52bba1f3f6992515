package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/internal/iocache"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// migrateCmd runs schema migrations on SQL backends.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage schema versions of the analyses table for SQL backends.

By default, migrates to the latest version. Use --target-version for specific versions.
Badger and Memory backends have no schema and are rejected.

Examples:
  # Migrate to latest version (default)
  codetime migrate

  # Migrate a PostgreSQL cache to a specific version
  CODETIME_CACHE_BACKEND=postgresql CODETIME_CACHE_DB_CONNECT="host=... dbname=..." codetime migrate --target-version 1

  # Rollback to initial state
  codetime migrate --target-version 0`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		res, err := iocache.Migrate(cfg.CacheBackend, cfg.CacheDBConnect, viper.GetInt("target-version"))
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		if !res.Changed {
			fmt.Printf("Schema already at version %d.\n", res.To)
			return
		}
		fmt.Printf("Migrated schema from version %d to %d.\n", res.From, res.To)
	},
}

// exportCmd writes completed analyses to Parquet.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export completed analyses to Parquet for BI tools and analytics",
	Long: `Export every completed analysis to Parquet for use with analytics tools.

Writes two files named after --output-file:
  <prefix>.analyses.parquet - one row per repository with its stats
  <prefix>.commits.parquet  - one row per analyzed commit

Examples:
  codetime export --output-file codetime
  duckdb -c "SELECT category, count(*) FROM read_parquet('codetime.commits.parquet') GROUP BY 1"`,
	PreRunE: cacheSetup,
	Run: func(_ *cobra.Command, _ []string) {
		res, err := iocache.ExecuteAnalysisExport(rootCtx, cacheManager.GetAnalysisStore(), cfg.OutputFile, os.Stdout)
		if err != nil {
			contract.LogFatal("Failed to export analysis data", err)
		}
		slog.Info("Export finished", "analyses", res.Analyses, "commits", res.Commits)
	},
}
