package config

import (
	"path/filepath"

	"github.com/mvp-joe/codebrain/internal/indexer"
)

// ToIndexerConfig converts a Config to an indexer.Config.
// A relative output path is resolved against rootDir, the directory the
// configuration was loaded from.
func (c *Config) ToIndexerConfig(rootDir string) *indexer.Config {
	return &indexer.Config{
		Extensions:     c.Paths.Extensions,
		IgnorePatterns: c.Paths.Ignore,
		Workers:        c.Extract.Workers,
		OutputPath:     c.resolve(rootDir, c.Output.Path),
		Indent:         c.Output.Indent,
	}
}

// CachePath returns the SQLite cache location resolved against rootDir, or ""
// when the cache is memory-only.
func (c *Config) CachePath(rootDir string) string {
	if c.Cache.Location == "" {
		return ""
	}
	return c.resolve(rootDir, c.Cache.Location)
}

func (c *Config) resolve(rootDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}
