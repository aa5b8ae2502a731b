package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Builder:
// - Build on an empty builder yields non-nil empty collections
// - called_by lists exactly the callers whose sequence names the function
// - Unresolved callees add nothing and create no entries
// - Callee defined in a file merged after its caller is still resolved
// - Duplicate calls produce duplicate called_by entries, in caller order
// - Later files overwrite same-named functions and classes
// - Same-named callers across files concatenate their sequences
// - A parse error contributes only its record, even if the analysis carries entities
// - Merging nil is a no-op; defects keep merge order

func TestBuilder_Empty(t *testing.T) {
	t.Parallel()

	kb := NewBuilder().Build()
	assert.NotNil(t, kb.Functions)
	assert.NotNil(t, kb.Classes)
	assert.NotNil(t, kb.SyntaxErrors)
	assert.NotNil(t, kb.LogicalBugs)
	assert.Empty(t, kb.Functions)
}

func TestBuilder_Inversion(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	b.Merge(&FileAnalysis{
		Path: "a.py",
		Functions: []FunctionEntity{
			{Name: "main", File: "a.py"},
			{Name: "worker", File: "a.py"},
		},
		Calls: []CallSequence{
			{Caller: "main", Callees: []string{"helper", "len", "helper", "worker"}},
			{Caller: "worker", Callees: []string{"helper", "external_api"}},
		},
	})
	// helper is defined after its callers were merged
	b.Merge(&FileAnalysis{
		Path:      "b.py",
		Functions: []FunctionEntity{{Name: "helper", File: "b.py"}},
	})
	kb := b.Build()

	assert.Equal(t, []string{"main", "main", "worker"}, kb.Functions["helper"].CalledBy)
	assert.Equal(t, []string{"main"}, kb.Functions["worker"].CalledBy)
	assert.Equal(t, []string{}, kb.Functions["main"].CalledBy)

	assert.Len(t, kb.Functions, 3)
	assert.NotContains(t, kb.Functions, "len")
	assert.NotContains(t, kb.Functions, "external_api")
}

func TestBuilder_LastWriterWins(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	b.Merge(&FileAnalysis{
		Path:      "a.py",
		Functions: []FunctionEntity{{Name: "run", File: "a.py", Start: 1}},
		Classes:   []ClassEntity{{Name: "Config", File: "a.py"}},
		Calls:     []CallSequence{{Caller: "run", Callees: []string{"target"}}},
	})
	b.Merge(&FileAnalysis{
		Path:      "b.py",
		Functions: []FunctionEntity{{Name: "run", File: "b.py", Start: 7}, {Name: "target", File: "b.py"}},
		Classes:   []ClassEntity{{Name: "Config", File: "b.py"}},
		Calls:     []CallSequence{{Caller: "run", Callees: []string{"target", "target"}}},
	})
	kb := b.Build()

	assert.Equal(t, "b.py", kb.Functions["run"].File)
	assert.Equal(t, 7, kb.Functions["run"].Start)
	assert.Equal(t, "b.py", kb.Classes["Config"].File)
	assert.Equal(t, []string{"target", "target", "target"}, kb.Calls["run"])
	assert.Equal(t, []string{"run", "run", "run"}, kb.Functions["target"].CalledBy)
}

func TestBuilder_ParseError(t *testing.T) {
	t.Parallel()

	line := 3
	b := NewBuilder()
	b.Merge(&FileAnalysis{
		Path:       "bad.py",
		Functions:  []FunctionEntity{{Name: "ghost"}},
		Defects:    []DefectRecord{UnusedVariable("bad.py", "x")},
		ParseError: &ParseErrorRecord{File: "bad.py", Line: &line, Message: "invalid syntax"},
	})
	b.Merge(nil)
	kb := b.Build()

	require.Len(t, kb.SyntaxErrors, 1)
	assert.Equal(t, 3, *kb.SyntaxErrors[0].Line)
	assert.Empty(t, kb.Functions)
	assert.Empty(t, kb.LogicalBugs)
}

func TestBuilder_DefectOrder(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	b.Merge(&FileAnalysis{Path: "a.py", Defects: []DefectRecord{EmptyExceptionHandler("a.py", 4), UnusedVariable("a.py", "x")}})
	b.Merge(&FileAnalysis{Path: "b.py", Defects: []DefectRecord{UnusedVariable("b.py", "y")}})
	kb := b.Build()

	assert.Equal(t, []DefectRecord{
		{Type: DefectEmptyExceptionHandler, File: "a.py", Line: 4},
		{Type: DefectUnusedVariable, File: "a.py", Name: "x"},
		{Type: DefectUnusedVariable, File: "b.py", Name: "y"},
	}, kb.LogicalBugs)
}

func TestBuilder_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	fa := &FileAnalysis{
		Path:      "a.py",
		Functions: []FunctionEntity{{Name: "f"}},
		Calls:     []CallSequence{{Caller: "f", Callees: []string{"f"}}},
	}

	b := NewBuilder()
	b.Merge(fa)
	kb := b.Build()

	assert.Equal(t, []string{"f"}, kb.Functions["f"].CalledBy)
	assert.Nil(t, fa.Functions[0].CalledBy)
}
