package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mvp-joe/codebrain/internal/indexer/parsers"
	"github.com/mvp-joe/codebrain/internal/knowledge"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// AnalyzerVersion changes whenever the extraction rules change, so that cached
// per-file results produced by older rules are not reused.
const AnalyzerVersion = "1"

// Indexer runs extraction passes over a source tree.
type Indexer struct {
	config    *Config
	discovery *FileDiscovery
	parser    *parsers.PythonParser
	writer    *AtomicWriter
	cache     ResultCache
	progress  ProgressReporter
	logger    logrus.FieldLogger
	workers   int
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithCache enables per-file result caching.
func WithCache(cache ResultCache) Option {
	return func(idx *Indexer) {
		idx.cache = cache
	}
}

// WithProgress configures progress reporting.
func WithProgress(progress ProgressReporter) Option {
	return func(idx *Indexer) {
		idx.progress = progress
	}
}

// WithLogger configures the logger. Defaults to the logrus standard logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(idx *Indexer) {
		idx.logger = logger
	}
}

// New creates an indexer.
func New(config *Config, opts ...Option) (*Indexer, error) {
	discovery, err := NewFileDiscovery(config.Extensions, config.IgnorePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	idx := &Indexer{
		config:    config,
		discovery: discovery,
		parser:    parsers.NewPythonParser(),
		writer:    NewAtomicWriter(config.OutputPath, config.Indent),
		progress:  &NoOpProgressReporter{},
		logger:    logrus.StandardLogger(),
		workers:   workers,
	}
	for _, opt := range opts {
		opt(idx)
	}

	return idx, nil
}

// Index extracts knowledge from target and writes the artifact to the configured
// output path. A serialization failure is fatal and wraps ErrSerialization.
func (idx *Indexer) Index(ctx context.Context, target string) (*Result, error) {
	result, err := idx.Extract(ctx, target)
	if err != nil {
		return nil, err
	}

	idx.progress.OnWritingArtifact(idx.writer.Path())
	if err := idx.writer.WriteKnowledge(result.Knowledge); err != nil {
		return nil, err
	}

	idx.logger.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"output": idx.writer.Path(),
	}).Info("Knowledge base written")

	idx.progress.OnComplete(result.Stats)
	return result, nil
}

// Extract runs one extraction pass over target without writing anything.
//
// Files are analysed in parallel; each worker fills only its own slot of the
// result slice. After every worker has finished, results are merged in discovery
// order and the reverse-call inversion runs once, so the knowledge base does not
// depend on scheduling.
func (idx *Indexer) Extract(ctx context.Context, target string) (*Result, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := idx.logger.WithField("run_id", runID)

	idx.progress.OnDiscoveryStart()
	files, unreadable, err := idx.discovery.Locate(target)
	if err != nil {
		return nil, err
	}
	for _, dir := range unreadable {
		logger.WithField("path", dir).Warn("Skipping unreadable directory")
	}
	idx.progress.OnDiscoveryComplete(len(files))

	logger.WithFields(logrus.Fields{
		"target": target,
		"files":  len(files),
	}).Debug("Discovered source files")
	if len(files) == 0 {
		logger.WithField("target", target).Warn("No source files found")
	}

	outcomes := make([]FileOutcome, len(files))
	analyses := make([]*knowledge.FileAnalysis, len(files))

	idx.progress.OnFileProcessingStart(len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for i, file := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			analysis, outcome, err := idx.processFile(gctx, file)
			if err != nil {
				return err
			}
			analyses[i] = analysis
			outcomes[i] = outcome
			idx.progress.OnFileProcessed(outcome)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	builder := knowledge.NewBuilder()
	for i, analysis := range analyses {
		if outcomes[i].Status == StatusReadError {
			logger.WithFields(logrus.Fields{
				"file":  outcomes[i].Path,
				"error": outcomes[i].Err,
			}).Warn("Skipped unreadable file")
			continue
		}
		builder.Merge(analysis)
	}
	kb := builder.Build()

	stats := newStats(outcomes, kb, len(unreadable), time.Since(startTime))
	logger.WithFields(logrus.Fields{
		"files":        stats.FilesDiscovered,
		"analyzed":     stats.FilesAnalyzed,
		"parse_errors": stats.ParseErrors,
		"read_errors":  stats.ReadErrors,
		"cache_hits":   stats.CacheHits,
		"functions":    stats.Functions,
		"classes":      stats.Classes,
		"defects":      stats.Defects,
	}).Info("Extraction complete")

	return &Result{
		RunID:     runID,
		Knowledge: kb,
		Outcomes:  outcomes,
		Stats:     stats,
	}, nil
}

// processFile reads and analyses one file. The returned error is non-nil only for
// context cancellation; every other failure is reported through the outcome.
func (idx *Indexer) processFile(ctx context.Context, path string) (*knowledge.FileAnalysis, FileOutcome, error) {
	outcome := FileOutcome{Path: path}

	source, err := os.ReadFile(path)
	if err != nil {
		outcome.Status = StatusReadError
		outcome.Err = fmt.Errorf("%w: %v", ErrFileRead, err)
		return nil, outcome, nil
	}
	if !utf8.Valid(source) {
		outcome.Status = StatusReadError
		outcome.Err = fmt.Errorf("%w: %s is not valid UTF-8", ErrFileRead, path)
		return nil, outcome, nil
	}

	hash := contentHash(source)
	if idx.cache != nil {
		if cached, ok := idx.cache.Get(path, hash); ok {
			outcome.Status = statusOf(cached)
			outcome.Cached = true
			return cached, outcome, nil
		}
	}

	analysis, err := idx.parser.Analyze(ctx, path, source)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, outcome, ctxErr
		}
		// The parser produced no tree at all; record it like any other parse failure.
		analysis = &knowledge.FileAnalysis{
			Path:       path,
			ParseError: &knowledge.ParseErrorRecord{File: path, Message: err.Error()},
		}
	}
	outcome.Status = statusOf(analysis)

	if idx.cache != nil {
		if err := idx.cache.Put(path, hash, analysis); err != nil {
			idx.logger.WithFields(logrus.Fields{
				"file":  path,
				"error": err,
			}).Warn("Failed to cache analysis")
		}
	}

	return analysis, outcome, nil
}

func statusOf(analysis *knowledge.FileAnalysis) FileStatus {
	if analysis.ParseError != nil {
		return StatusParseError
	}
	return StatusOK
}

// contentHash returns the hex SHA-256 of source salted with the analyzer version.
func contentHash(source []byte) string {
	h := sha256.New()
	h.Write([]byte(AnalyzerVersion))
	h.Write([]byte{0})
	h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}

// IsFatal reports whether err aborts a run rather than being recorded per file.
func IsFatal(err error) bool {
	return errors.Is(err, ErrPathNotFound) || errors.Is(err, ErrSerialization) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
