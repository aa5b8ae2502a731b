package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mvp-joe/codebrain/internal/indexer"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter implements progress reporting with progress bars.
// OnFileProcessed is called from worker goroutines, hence the mutex.
type CLIProgressReporter struct {
	quiet bool
	out   io.Writer

	mu      sync.Mutex
	fileBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to out.
func NewCLIProgressReporter(quiet bool, out io.Writer) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet: quiet,
		out:   out,
	}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {
	if c.quiet {
		return
	}
	fmt.Fprintln(c.out, "Discovering files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(sourceFiles int) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "Analysing %s source files\n", formatNumber(sourceFiles))
}

func (c *CLIProgressReporter) OnFileProcessingStart(totalFiles int) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Analysing files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnFileProcessed(outcome indexer.FileOutcome) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fileBar != nil {
		c.fileBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnWritingArtifact(path string) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	if c.fileBar != nil {
		c.fileBar.Finish()
		c.fileBar = nil
	}
	c.mu.Unlock()

	fmt.Fprintf(c.out, "Writing %s\n", path)
}

func (c *CLIProgressReporter) OnComplete(stats *indexer.ProcessingStats) {
	if c.quiet {
		return
	}
	printSummary(c.out, stats)
}

// printSummary writes the end-of-run summary.
func printSummary(out io.Writer, stats *indexer.ProcessingStats) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "✓ Extraction complete: %s files in %.1fs\n",
		formatNumber(stats.FilesDiscovered), stats.ProcessingTimeSeconds)
	fmt.Fprintf(out, "  Analysed:     %s\n", formatNumber(stats.FilesAnalyzed))
	fmt.Fprintf(out, "  Parse errors: %s\n", formatNumber(stats.ParseErrors))
	fmt.Fprintf(out, "  Read errors:  %s\n", formatNumber(stats.ReadErrors))
	fmt.Fprintf(out, "  Cache hits:   %s\n", formatNumber(stats.CacheHits))
	fmt.Fprintf(out, "  Functions:    %s\n", formatNumber(stats.Functions))
	fmt.Fprintf(out, "  Classes:      %s\n", formatNumber(stats.Classes))
	fmt.Fprintf(out, "  Defects:      %s\n", formatNumber(stats.Defects))
	if stats.UnreadableDirs > 0 {
		fmt.Fprintf(out, "  Skipped dirs: %s\n", formatNumber(stats.UnreadableDirs))
	}
}

// printSkipped lists files that could not be read, with the reason.
func printSkipped(out io.Writer, skipped []indexer.FileOutcome) {
	if len(skipped) == 0 {
		return
	}
	fmt.Fprintln(out, "Skipped files:")
	for _, o := range skipped {
		fmt.Fprintf(out, "  %s: %v\n", o.Path, o.Err)
	}
}

// formatNumber formats integer with thousand separators.
// Examples: 1234 -> "1,234", 1234567 -> "1,234,567"
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
