package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/codebrain/internal/graph"
	"github.com/mvp-joe/codebrain/internal/indexer"
	"github.com/mvp-joe/codebrain/internal/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for CLI:
// - formatNumber inserts thousand separators
// - printSummary reports every counter; skipped directories only when present
// - printSkipped lists reasons and prints nothing when there are none
// - Quiet progress reporter writes nothing
// - writeUnits separates units with ---
// - writeResults indents by depth and prints the empty message when there are none
// - indexError names fatal conditions and flags anything else as unexpected
// - writeCycles prints one group per line
// - index, callers, callees, path, cycles and units work end to end through the root command
// - index on a missing path fails with ErrPathNotFound
// - cache info and cache clear report and empty the configured cache

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,234", formatNumber(1234))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
	assert.Equal(t, "-1,000", formatNumber(-1000))
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printSummary(&buf, &indexer.ProcessingStats{
		FilesDiscovered:       1200,
		FilesAnalyzed:         1190,
		ParseErrors:           7,
		ReadErrors:            3,
		CacheHits:             1000,
		Functions:             4500,
		Classes:               300,
		Defects:               42,
		ProcessingTimeSeconds: 1.25,
	})

	out := buf.String()
	assert.Contains(t, out, "1,200 files")
	assert.Contains(t, out, "Parse errors: 7")
	assert.Contains(t, out, "Read errors:  3")
	assert.Contains(t, out, "Cache hits:   1,000")
	assert.Contains(t, out, "Defects:      42")
	assert.NotContains(t, out, "Skipped dirs")
}

func TestPrintSkipped(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printSkipped(&buf, nil)
	assert.Empty(t, buf.String())

	printSkipped(&buf, []indexer.FileOutcome{
		{Path: "a.py", Status: indexer.StatusReadError, Err: indexer.ErrFileRead},
	})
	assert.Contains(t, buf.String(), "a.py: unexpected file read failure")
}

func TestCLIProgressReporter_Quiet(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewCLIProgressReporter(true, &buf)
	p.OnDiscoveryStart()
	p.OnDiscoveryComplete(3)
	p.OnFileProcessingStart(3)
	p.OnFileProcessed(indexer.FileOutcome{Path: "a.py", Status: indexer.StatusOK})
	p.OnWritingArtifact("kb.json")
	p.OnComplete(&indexer.ProcessingStats{})

	assert.Empty(t, buf.String())
}

func TestCLIProgressReporter_Verbose(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewCLIProgressReporter(false, &buf)
	p.OnDiscoveryStart()
	p.OnDiscoveryComplete(2)
	p.OnFileProcessingStart(2)
	p.OnFileProcessed(indexer.FileOutcome{Path: "a.py", Status: indexer.StatusOK})
	p.OnFileProcessed(indexer.FileOutcome{Path: "b.py", Status: indexer.StatusParseError})
	p.OnWritingArtifact("kb.json")
	p.OnComplete(&indexer.ProcessingStats{FilesDiscovered: 2})

	out := buf.String()
	assert.Contains(t, out, "Analysing 2 source files")
	assert.Contains(t, out, "Writing kb.json")
	assert.Contains(t, out, "Extraction complete")
}

func TestWriters(t *testing.T) {
	t.Parallel()

	t.Run("units", func(t *testing.T) {
		var buf bytes.Buffer
		writeUnits(&buf, []knowledge.Unit{{Text: "one\n"}, {Text: "two\n"}})
		assert.Equal(t, "one\n---\ntwo\n", buf.String())
	})

	t.Run("results", func(t *testing.T) {
		var buf bytes.Buffer
		writeResults(&buf, []graph.Result{
			{Function: &knowledge.FunctionEntity{Name: "helper", File: "a.py", Start: 3}, Depth: 1},
			{Function: &knowledge.FunctionEntity{Name: "main", File: "b.py", Start: 1}, Depth: 2},
		}, "none")
		assert.Equal(t, "helper  a.py:3\n  main  b.py:1\n", buf.String())

		buf.Reset()
		writeResults(&buf, nil, "No known callers of leaf")
		assert.Equal(t, "No known callers of leaf\n", buf.String())
	})

	t.Run("cycles", func(t *testing.T) {
		var buf bytes.Buffer
		writeCycles(&buf, [][]string{{"even", "odd"}, {"fact"}})
		assert.Equal(t, "even, odd\nfact\n", buf.String())

		buf.Reset()
		writeCycles(&buf, nil)
		assert.Equal(t, "No recursive calls found\n", buf.String())
	})
}

func TestIndexError(t *testing.T) {
	t.Parallel()

	err := indexError(fmt.Errorf("%w: /nope", indexer.ErrPathNotFound))
	assert.ErrorIs(t, err, indexer.ErrPathNotFound)
	assert.Contains(t, err.Error(), "nothing to index")

	err = indexError(fmt.Errorf("%w: disk full", indexer.ErrSerialization))
	assert.ErrorIs(t, err, indexer.ErrSerialization)
	assert.Contains(t, err.Error(), "could not write the knowledge base")

	err = indexError(context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "indexing cancelled")

	err = indexError(errors.New("permission denied"))
	assert.Contains(t, err.Error(), "indexing failed unexpectedly")
}

func executeRoot(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	if err != nil {
		return out.String(), fmt.Errorf("%w\n%s", err, errOut.String())
	}
	return out.String(), nil
}

func runRoot(t *testing.T, args ...string) string {
	t.Helper()
	out, err := executeRoot(args...)
	require.NoError(t, err)
	return out
}

// Not parallel: cobra commands and their flag variables are package globals.
func TestCommands_EndToEnd(t *testing.T) {
	tempDir := t.TempDir()
	root := filepath.Join(tempDir, "src")
	require.NoError(t, os.MkdirAll(root, 0755))
	files := map[string]string{
		"app.py":  "def main():\n    parse()\n    even(2)\n",
		"util.py": "def parse():\n    tmp = 1\n    lex()\n\ndef lex():\n    pass\n",
		"rec.py":  "def even(n):\n    return odd(n)\n\ndef odd(n):\n    return even(n)\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0644))
	}
	artifact := filepath.Join(tempDir, "kb.json")

	out := runRoot(t, "index", root, "--output", artifact, "--no-cache", "--quiet", "--log-level", "error")
	assert.Contains(t, out, "Extraction complete: 3 files, 0 parse errors, 0 read errors")

	kb, err := knowledge.ReadFile(artifact)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, kb.Functions["parse"].CalledBy)

	out = runRoot(t, "callers", "lex", "--artifact", artifact, "--depth", "2")
	assert.Contains(t, out, "parse  ")
	assert.Contains(t, out, "  main  ")

	out = runRoot(t, "callees", "main", "--artifact", artifact, "--depth", "2")
	assert.Contains(t, out, "parse  ")
	assert.Contains(t, out, "even  ")
	assert.Contains(t, out, "  lex  ")
	assert.Contains(t, out, "  odd  ")

	out = runRoot(t, "callees", "lex", "--artifact", artifact)
	assert.Equal(t, "lex calls no known functions\n", out)

	out = runRoot(t, "path", "main", "lex", "--artifact", artifact)
	assert.Equal(t, "main -> parse -> lex\n", out)

	out = runRoot(t, "cycles", "--artifact", artifact)
	assert.Equal(t, "even, odd\n", out)

	out = runRoot(t, "units", "--artifact", artifact)
	assert.Contains(t, out, "TYPE: FUNCTION\nNAME: even")
	assert.Contains(t, out, "BUG: UnusedVariable\nNAME: tmp")

	out = runRoot(t, "version")
	assert.Contains(t, out, "Codebrain dev")

	_, err = executeRoot("index", filepath.Join(tempDir, "missing"), "--output", artifact, "--no-cache", "--quiet")
	require.ErrorIs(t, err, indexer.ErrPathNotFound)
	assert.Contains(t, err.Error(), "nothing to index")
}

// Not parallel: t.Setenv and the package-level commands.
func TestCacheCommands(t *testing.T) {
	tempDir := t.TempDir()
	root := filepath.Join(tempDir, "src")
	require.NoError(t, os.MkdirAll(root, 0755))
	for _, name := range []string{"a.py", "b.py"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("def f():\n    pass\n"), 0644))
	}
	cachePath := filepath.Join(tempDir, "cache.db")
	t.Setenv("CODEBRAIN_CACHE_LOCATION", cachePath)

	out := runRoot(t, "cache", "info")
	assert.Contains(t, out, "Cache Location: "+cachePath)
	assert.Contains(t, out, "no cache yet")

	out = runRoot(t, "cache", "clear")
	assert.Equal(t, "No cache at "+cachePath+"\n", out)

	// Flag values persist between executions of the package-level commands.
	runRoot(t, "index", root, "--output", filepath.Join(tempDir, "kb.json"), "--no-cache=false", "--quiet", "--log-level", "error")

	out = runRoot(t, "cache", "info")
	assert.Contains(t, out, "Cached files: 2")

	out = runRoot(t, "cache", "clear")
	assert.Equal(t, "Removed 2 cached analyses from "+cachePath+"\n", out)

	out = runRoot(t, "cache", "info")
	assert.Contains(t, out, "Cached files: 0")
}
