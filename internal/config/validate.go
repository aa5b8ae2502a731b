package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidExtension indicates a source extension without a leading dot
	ErrInvalidExtension = errors.New("invalid source extension")

	// ErrInvalidIndent indicates a negative artifact indent
	ErrInvalidIndent = errors.New("invalid output indent")

	// ErrEmptyOutputPath indicates a missing artifact path
	ErrEmptyOutputPath = errors.New("empty output path")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrInvalidLogLevel indicates a level logrus does not know
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidLogFormat indicates an unsupported log format
	ErrInvalidLogFormat = errors.New("invalid log format")
)

// Validate checks that the configuration is valid and complete.
// Every violation is reported; callers match them with errors.Is.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validatePaths(&cfg.Paths)...)
	errs = append(errs, validateOutput(&cfg.Output)...)

	if cfg.Extract.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Extract.Workers))
	}

	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateLog(&cfg.Log)...)

	return errors.Join(errs...)
}

func validatePaths(cfg *PathsConfig) []error {
	var errs []error

	if len(cfg.Extensions) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one extension required", ErrInvalidExtension))
	}
	for _, ext := range cfg.Extensions {
		if len(ext) < 2 || !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("%w: must look like '.py', got '%s'", ErrInvalidExtension, ext))
		}
	}

	// Ignore patterns are compiled by the indexer, which reports bad globs itself
	return errs
}

func validateOutput(cfg *OutputConfig) []error {
	var errs []error

	if strings.TrimSpace(cfg.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: output path is required", ErrEmptyOutputPath))
	}
	if cfg.Indent < 0 {
		errs = append(errs, fmt.Errorf("%w: indent cannot be negative, got %d", ErrInvalidIndent, cfg.Indent))
	}

	return errs
}

func validateCache(cfg *CacheConfig) []error {
	if cfg.MemoryEntries < 0 {
		return []error{fmt.Errorf("%w: memory_entries cannot be negative, got %d", ErrInvalidCacheSettings, cfg.MemoryEntries)}
	}
	return nil
}

func validateLog(cfg *LogConfig) []error {
	var errs []error

	if _, err := logrus.ParseLevel(cfg.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: '%s'", ErrInvalidLogLevel, cfg.Level))
	}

	format := strings.ToLower(cfg.Format)
	if format != "text" && format != "json" {
		errs = append(errs, fmt.Errorf("%w: must be 'text' or 'json', got '%s'", ErrInvalidLogFormat, cfg.Format))
	}

	return errs
}
