package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvp-joe/codebrain/internal/cache"
	"github.com/mvp-joe/codebrain/internal/indexer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	quietFlag   bool
	watchFlag   bool
	noCacheFlag bool
	outputFlag  string
	workersFlag int
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Extract the knowledge base from a file or directory",
	Long: `Index parses every Python file under path (default ".") and writes the
knowledge base artifact. Files that fail to parse are recorded under
"syntax_errors"; unreadable files are skipped and listed in the summary.

Unchanged files are served from the per-file cache (.codebrain/cache.db by
default), so repeated runs only re-analyse what changed.

Examples:
  # Index the current directory
  codebrain index

  # Index a project and write the artifact elsewhere
  codebrain index ./src --output kb.json

  # Keep the artifact up to date while editing
  codebrain index --watch
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	indexCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and reindex")
	indexCmd.Flags().BoolVar(&noCacheFlag, "no-cache", false, "Analyse every file, ignoring the per-file cache")
	indexCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Artifact path; overrides output.path")
	indexCmd.Flags().IntVar(&workersFlag, "workers", 0, "Parallel workers; overrides extract.workers")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := "."
	if len(args) == 1 {
		target = args[0]
	}

	cfg, rootDir, logger, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	indexerConfig := cfg.ToIndexerConfig(rootDir)
	if cmd.Flags().Changed("output") {
		indexerConfig.OutputPath = outputFlag
	}
	if cmd.Flags().Changed("workers") {
		indexerConfig.Workers = workersFlag
	}

	opts := []indexer.Option{
		indexer.WithLogger(logger),
		indexer.WithProgress(NewCLIProgressReporter(quietFlag, cmd.OutOrStdout())),
	}

	if cfg.Cache.Enabled && !noCacheFlag {
		store, err := cache.Open(cfg.CachePath(rootDir), cfg.Cache.MemoryEntries)
		if err != nil {
			// The cache only saves work; a broken one must not block extraction
			logger.WithError(err).Warn("Per-file cache unavailable, analysing every file")
		} else {
			defer store.Close()
			opts = append(opts, indexer.WithCache(store))
		}
	}

	idx, err := indexer.New(indexerConfig, opts...)
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}

	result, err := idx.Index(ctx, target)
	if err != nil {
		return indexError(err)
	}

	printSkipped(cmd.ErrOrStderr(), result.Skipped())
	if quietFlag {
		fmt.Fprintf(cmd.OutOrStdout(), "Extraction complete: %d files, %d parse errors, %d read errors in %.2fs\n",
			result.Stats.FilesDiscovered, result.Stats.ParseErrors, result.Stats.ReadErrors,
			result.Stats.ProcessingTimeSeconds)
	}

	if !watchFlag {
		return nil
	}
	return watchAndReindex(ctx, cmd, idx, target, logger)
}

// watchAndReindex blocks until ctx is cancelled, re-running the extraction
// whenever a source file under target changes.
func watchAndReindex(ctx context.Context, cmd *cobra.Command, idx *indexer.Indexer, target string, logger logrus.FieldLogger) error {
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", target, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("--watch requires a directory, got file %s", target)
	}

	watcher, err := indexer.NewIndexerWatcher(idx, target,
		indexer.WithReindexHook(func(result *indexer.Result, err error) {
			// Failures are logged by the watcher itself
			if err != nil {
				return
			}
			printSkipped(cmd.ErrOrStderr(), result.Skipped())
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	if !quietFlag {
		fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes (Ctrl+C to stop)...")
	}

	logger.WithField("target", target).Info("Starting watch mode")
	watcher.Start(ctx)
	<-ctx.Done()
	watcher.Stop()

	if !quietFlag {
		fmt.Fprintln(cmd.OutOrStdout(), "Watch mode stopped")
	}
	return nil
}

// indexError names the condition that aborted a run. Fatal conditions are expected
// outcomes of bad input or an interrupt; anything else is an unexpected failure.
func indexError(err error) error {
	if !indexer.IsFatal(err) {
		return fmt.Errorf("indexing failed unexpectedly: %w", err)
	}

	switch {
	case errors.Is(err, indexer.ErrPathNotFound):
		return fmt.Errorf("nothing to index: %w", err)
	case errors.Is(err, indexer.ErrSerialization):
		return fmt.Errorf("could not write the knowledge base: %w", err)
	}
	return fmt.Errorf("indexing cancelled: %w", err)
}
