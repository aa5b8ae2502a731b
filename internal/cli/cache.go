package cli

import (
	"fmt"
	"os"

	"github.com/mvp-joe/codebrain/internal/cache"
	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command group
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the per-file analysis cache",
	Long: `Manage the SQLite cache of per-file analyses.

Available commands:
  info   - Show cache location and number of cached files
  clear  - Remove every cached analysis`,
}

// cacheInfoCmd shows cache location and size
var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache location and number of cached files",
	Args:  cobra.NoArgs,
	RunE:  runCacheInfo,
}

// cacheClearCmd empties the cache
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached analysis",
	Long: `Clear removes every cached per-file analysis, so the next index run
re-parses every file.`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// openCache opens the configured SQLite cache without a memory tier. It returns
// a nil store when no cache file exists yet.
func openCache(cmd *cobra.Command) (*cache.Store, string, error) {
	cfg, rootDir, _, err := loadEnvironment(cmd)
	if err != nil {
		return nil, "", err
	}

	path := cfg.CachePath(rootDir)
	if path == "" {
		return nil, "", fmt.Errorf("cache.location is empty")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, path, nil
	}

	store, err := cache.Open(path, 0)
	if err != nil {
		return nil, path, fmt.Errorf("failed to open cache: %w", err)
	}
	return store, path, nil
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	store, path, err := openCache(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cache Location: %s\n", path)
	if store == nil {
		fmt.Fprintln(out, "Cached files: 0 (no cache yet)")
		return nil
	}
	defer store.Close()

	n, err := store.Len()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Cached files: %s\n", formatNumber(n))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, path, err := openCache(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if store == nil {
		fmt.Fprintf(out, "No cache at %s\n", path)
		return nil
	}
	defer store.Close()

	n, err := store.Len()
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %s cached analyses from %s\n", formatNumber(n), path)
	return nil
}
