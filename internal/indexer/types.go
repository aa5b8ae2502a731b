package indexer

import (
	"time"

	"github.com/mvp-joe/codebrain/internal/knowledge"
)

// Config configures an Indexer.
type Config struct {
	// Extensions lists the recognised source-file suffixes (e.g. ".py").
	Extensions []string

	// IgnorePatterns are glob patterns, relative to the analysed directory, that are skipped.
	IgnorePatterns []string

	// Workers bounds the per-file stage. Zero or negative means runtime.NumCPU().
	Workers int

	// OutputPath is where Index writes the artifact.
	OutputPath string

	// Indent is the number of spaces used to indent the artifact. Zero writes compact JSON.
	Indent int
}

// FileStatus classifies how a single file fared in an extraction pass.
type FileStatus string

const (
	StatusOK         FileStatus = "ok"
	StatusParseError FileStatus = "parse-error"
	StatusReadError  FileStatus = "read-error"
)

// FileOutcome is the per-file result threaded through aggregation.
type FileOutcome struct {
	Path   string
	Status FileStatus
	Cached bool
	Err    error // set for StatusReadError
}

// ProcessingStats summarises an extraction pass.
type ProcessingStats struct {
	FilesDiscovered       int     `json:"files_discovered"`
	FilesAnalyzed         int     `json:"files_analyzed"`
	ParseErrors           int     `json:"parse_errors"`
	ReadErrors            int     `json:"read_errors"`
	UnreadableDirs        int     `json:"unreadable_dirs"`
	CacheHits             int     `json:"cache_hits"`
	Functions             int     `json:"functions"`
	Classes               int     `json:"classes"`
	Defects               int     `json:"defects"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
}

// Result is the outcome of one extraction pass.
type Result struct {
	RunID     string
	Knowledge *knowledge.KnowledgeBase
	Outcomes  []FileOutcome // in discovery order
	Stats     *ProcessingStats
}

// Skipped returns the outcomes of files that were not analysed because they could not be read.
func (r *Result) Skipped() []FileOutcome {
	var skipped []FileOutcome
	for _, o := range r.Outcomes {
		if o.Status == StatusReadError {
			skipped = append(skipped, o)
		}
	}
	return skipped
}

func newStats(outcomes []FileOutcome, kb *knowledge.KnowledgeBase, unreadableDirs int, elapsed time.Duration) *ProcessingStats {
	stats := &ProcessingStats{
		FilesDiscovered:       len(outcomes),
		UnreadableDirs:        unreadableDirs,
		Functions:             len(kb.Functions),
		Classes:               len(kb.Classes),
		Defects:               len(kb.LogicalBugs),
		ProcessingTimeSeconds: elapsed.Seconds(),
	}

	for _, o := range outcomes {
		switch o.Status {
		case StatusOK:
			stats.FilesAnalyzed++
		case StatusParseError:
			stats.ParseErrors++
		case StatusReadError:
			stats.ReadErrors++
		}
		if o.Cached {
			stats.CacheHits++
		}
	}
	return stats
}
