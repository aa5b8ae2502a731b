package indexer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds a compiled ignore glob. For "**/" patterns, rootGlob is
// the glob with that prefix removed, so that entries at the root match too.
type compiledPattern struct {
	glob     glob.Glob
	rootGlob glob.Glob
}

// FileDiscovery locates the source files to analyse.
type FileDiscovery struct {
	extensions     []string
	ignorePatterns []compiledPattern
}

// NewFileDiscovery creates a new file discovery instance.
func NewFileDiscovery(extensions, ignorePatterns []string) (*FileDiscovery, error) {
	fd := &FileDiscovery{
		extensions: extensions,
	}

	for _, pattern := range ignorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		cp := compiledPattern{glob: g}

		if simplified, ok := strings.CutPrefix(pattern, "**/"); ok {
			cp.rootGlob, err = glob.Compile(simplified, '/')
			if err != nil {
				return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
			}
		}
		fd.ignorePatterns = append(fd.ignorePatterns, cp)
	}

	return fd, nil
}

// Locate returns the files to analyse for target.
//
// A file target yields exactly that path, whatever its extension. A directory
// target is walked recursively in lexical order and yields every file whose name
// ends in a recognised extension. Subdirectories that cannot be read are skipped
// and returned in unreadable. A missing target returns ErrPathNotFound.
func (fd *FileDiscovery) Locate(target string) (files []string, unreadable []string, err error) {
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrPathNotFound, target)
		}
		return nil, nil, fmt.Errorf("failed to stat %s: %w", target, err)
	}

	if !info.IsDir() {
		return []string{target}, nil, nil
	}

	files = []string{}
	err = filepath.Walk(target, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == target {
				return err
			}
			unreadable = append(unreadable, path)
			return nil
		}

		relPath, err := filepath.Rel(target, path)
		if err != nil {
			return err
		}

		// Normalize path separators for glob matching
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && fd.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if fd.shouldIgnore(relPath) {
			return nil
		}

		if fd.hasSourceExtension(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk %s: %w", target, err)
	}

	return files, unreadable, nil
}

// hasSourceExtension checks if a file name ends in one of the recognised suffixes.
func (fd *FileDiscovery) hasSourceExtension(path string) bool {
	name := filepath.Base(path)
	for _, ext := range fd.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// shouldIgnore checks if a path matches any ignore pattern.
func (fd *FileDiscovery) shouldIgnore(relPath string) bool {
	if fd.matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// Also check if this is a directory that would match with /** suffix
	// For example, "node_modules" should match pattern "node_modules/**"
	pathWithSuffix := relPath + "/**"
	return fd.matchesAnyPattern(pathWithSuffix, fd.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func (fd *FileDiscovery) matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Entries at the root have no slash, so "**/*.pyc" must also match "a.pyc".
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if cp.rootGlob != nil && cp.rootGlob.Match(path) {
				return true
			}
		}
	}

	return false
}
