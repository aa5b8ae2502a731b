package indexer

import "github.com/mvp-joe/codebrain/internal/knowledge"

// ResultCache stores per-file analyses keyed by path and content hash, so that
// unchanged files are not re-parsed. Implementations must be safe for concurrent use.
type ResultCache interface {
	// Get returns the cached analysis for path if it was stored with the same hash.
	Get(path, hash string) (*knowledge.FileAnalysis, bool)

	// Put stores the analysis of path at hash.
	Put(path, hash string, analysis *knowledge.FileAnalysis) error
}
