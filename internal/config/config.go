package config

// Config represents the complete codebrain configuration.
// It can be loaded from .codebrain/config.yml with environment variable overrides.
type Config struct {
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// PathsConfig defines which files are analysed.
type PathsConfig struct {
	Extensions []string `yaml:"extensions" mapstructure:"extensions"` // recognised suffixes, with leading dot
	Ignore     []string `yaml:"ignore" mapstructure:"ignore"`         // glob patterns to skip
}

// OutputConfig defines where and how the artifact is written.
type OutputConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Indent int    `yaml:"indent" mapstructure:"indent"` // spaces; 0 writes compact JSON
}

// ExtractConfig tunes the extraction pass.
type ExtractConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // 0 means one per CPU
}

// CacheConfig defines per-file result caching.
type CacheConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	Location      string `yaml:"location" mapstructure:"location"`             // SQLite file; empty keeps the cache in memory only
	MemoryEntries int    `yaml:"memory_entries" mapstructure:"memory_entries"` // in-process tier capacity
}

// LogConfig configures logrus output.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // logrus level name
	Format string `yaml:"format" mapstructure:"format"` // "text" or "json"
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Extensions: []string{".py"},
			Ignore:     []string{},
		},
		Output: OutputConfig{
			Path:   ".codebrain/code_knowledge.json",
			Indent: 2,
		},
		Extract: ExtractConfig{
			Workers: 0,
		},
		Cache: CacheConfig{
			Enabled:       true,
			Location:      ".codebrain/cache.db",
			MemoryEntries: 10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
