package indexer

import "errors"

var (
	// ErrPathNotFound indicates the analysis target does not exist. It is fatal to a run.
	ErrPathNotFound = errors.New("path not found")

	// ErrFileRead indicates a discovered file could not be read or decoded.
	// The file is skipped and reported; the run continues.
	ErrFileRead = errors.New("unexpected file read failure")

	// ErrSerialization indicates the artifact could not be written. It is fatal to a run.
	ErrSerialization = errors.New("knowledge base serialization failed")
)
