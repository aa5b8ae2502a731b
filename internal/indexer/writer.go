package indexer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvp-joe/codebrain/internal/knowledge"
)

// AtomicWriter handles atomic file writing using temp → rename pattern.
type AtomicWriter struct {
	outputPath string
	indent     int
}

// NewAtomicWriter creates a new atomic writer for the artifact at outputPath.
func NewAtomicWriter(outputPath string, indent int) *AtomicWriter {
	return &AtomicWriter{
		outputPath: outputPath,
		indent:     indent,
	}
}

// Path returns the artifact location.
func (w *AtomicWriter) Path() string {
	return w.outputPath
}

// WriteKnowledge writes the knowledge base atomically. Either the complete artifact
// ends up at the output path or any previous artifact is left untouched and an
// error wrapping ErrSerialization is returned.
func (w *AtomicWriter) WriteKnowledge(kb *knowledge.KnowledgeBase) error {
	data, err := knowledge.Marshal(kb, w.indent)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal knowledge base: %v", ErrSerialization, err)
	}

	dir := filepath.Dir(w.outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create output directory: %v", ErrSerialization, err)
	}

	// Temp file lives next to the target so the rename stays on one filesystem
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.outputPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", ErrSerialization, err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("%w: failed to write temp file: %v", ErrSerialization, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("%w: failed to sync temp file: %v", ErrSerialization, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: failed to close temp file: %v", ErrSerialization, err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: failed to chmod temp file: %v", ErrSerialization, err)
	}

	// Rename to final location (atomic operation)
	if err := os.Rename(tempPath, w.outputPath); err != nil {
		// Clean up temp file on error
		os.Remove(tempPath)
		return fmt.Errorf("%w: failed to rename temp file: %v", ErrSerialization, err)
	}

	return nil
}
