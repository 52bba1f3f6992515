package cmd

import (
	"fmt"
	"time"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/internal/iocache"
	"github.com/huangsam/codetime/internal/outwriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cacheSetup validates config and opens the analysis store without building
// the pipeline.
func cacheSetup(cmd *cobra.Command, args []string) error {
	if err := sharedSetup(rootCtx, cmd, args); err != nil {
		return err
	}
	_, err := openStores()
	return err
}

// cacheCmd focused on cache management.
//
// Note: cache subcommands open the store directly and never build the
// analysis pipeline or contact a language model.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached analyses",
	Long: `Manage the store that holds analysis jobs and their reports.

Supported backends: SQLite (default), MySQL, PostgreSQL, Badger, or Memory

Subcommands:
  status  - Show cache statistics and connection info
  list    - List recent analyses
  delete  - Remove one analysis
  cleanup - Remove analyses not updated within the retention window
  clear   - Remove all cached data

Examples:
  # Check cache status
  codetime cache status

  # Remove analyses older than a day
  codetime cache cleanup --retention-days 1`,
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show the backend, connection state, entry counts per status, the newest
and oldest entry, and the size of the analyses table.`,
	PreRunE: cacheSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := cacheManager.GetAnalysisStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		if err := outwriter.NewOutWriter(cfg).WriteCacheStatus(status); err != nil {
			contract.LogFatal("Failed to write cache status", err)
		}
	},
}

// cacheListCmd lists recent analyses.
var cacheListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List recent analyses, newest first",
	PreRunE: cacheSetup,
	Run: func(_ *cobra.Command, _ []string) {
		entries, err := cacheManager.GetAnalysisStore().List(rootCtx, viper.GetInt("limit"))
		if err != nil {
			contract.LogFatal("Failed to list analyses", err)
		}
		if err := outwriter.NewOutWriter(cfg).WriteEntries(entries); err != nil {
			contract.LogFatal("Failed to write analyses", err)
		}
	},
}

// cacheDeleteCmd removes one analysis.
var cacheDeleteCmd = &cobra.Command{
	Use:     "delete <repo-id>",
	Short:   "Remove one cached analysis",
	Args:    cobra.ExactArgs(1),
	PreRunE: cacheSetup,
	Run: func(_ *cobra.Command, args []string) {
		store := cacheManager.GetAnalysisStore()
		found, err := store.Exists(rootCtx, args[0])
		if err != nil {
			contract.LogFatal("Failed to read analysis", err)
		}
		if !found {
			contract.LogFatal("Failed to delete analysis", contract.ErrNotFound)
		}
		if err := store.Delete(rootCtx, args[0]); err != nil {
			contract.LogFatal("Failed to delete analysis", err)
		}
		fmt.Printf("Deleted analysis %s.\n", args[0])
	},
}

// cacheCleanupCmd removes stale analyses.
var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove analyses not updated within the retention window",
	Long: `Delete every analysis whose last update is older than --retention-days.

Jobs left pending or processing by a crashed process are removed as well.
The server runs the same cleanup on its --cleanup-schedule.`,
	PreRunE: cacheSetup,
	Run: func(_ *cobra.Command, _ []string) {
		olderThan := time.Now().AddDate(0, 0, -cfg.RetentionDays)
		removed, err := cacheManager.GetAnalysisStore().Cleanup(rootCtx, olderThan)
		if err != nil {
			contract.LogFatal("Failed to clean up cache", err)
		}
		fmt.Printf("Removed %d stale analyses.\n", removed)
	},
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached analyses",
	Long: `Delete all cached analyses from the configured backend.

For SQLite: Deletes the database file
For Badger: Deletes the data directory
For MySQL/PostgreSQL: Drops the analyses table

Examples:
  # Clear SQLite cache (default)
  codetime cache clear

  # Clear MySQL cache (set connection string via env variable)
  CODETIME_CACHE_BACKEND=mysql CODETIME_CACHE_DB_CONNECT="..." codetime cache clear`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// The store must stay closed while its files are removed.
		if err := iocache.ClearCache(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}
