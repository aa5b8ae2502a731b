package cli

import (
	"fmt"
	"os"

	"github.com/mvp-joe/codebrain/internal/config"
	"github.com/mvp-joe/codebrain/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "codebrain",
	Short: "Codebrain - a code knowledge extractor for Python projects",
	Long: `Codebrain walks a Python codebase and writes a single JSON knowledge base:
functions and classes with their source, a reverse call graph ("called_by"),
files that failed to parse, and heuristic defects such as empty exception
handlers and unused variables.

The knowledge base can then be queried from the command line or rendered as
text units for an embedding stage.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides log.level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json); overrides log.format")
}

// loadEnvironment loads .codebrain/config.yml from the working directory, applies
// the global flag overrides and builds the logger. Logs go to stderr so that
// command output on stdout stays machine readable.
func loadEnvironment(cmd *cobra.Command) (*config.Config, string, *logrus.Logger, error) {
	rootDir, err := os.Getwd()
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, "", nil, err
	}

	return cfg, rootDir, logger, nil
}
