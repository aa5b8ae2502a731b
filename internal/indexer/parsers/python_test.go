package parsers

import (
	"context"
	"os"
	"testing"

	"github.com/mvp-joe/codebrain/internal/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for PythonParser:
// - Analyze the fixture: functions, methods and classes with accurate lines and code
// - Call sequences per caller, in walk order, with duplicates and method-style names
// - Calls in a nested function are attributed to it; the outer function resumes afterwards
// - Module-level calls and decorators are not attributed to any function
// - Indirect call targets (call results, subscripts) are not tracked
// - Async functions are recorded like plain functions
// - A syntax error yields only a ParseErrorRecord with a line
// - Python 2 print and exec statements are syntax errors
// - Spans end at the last line of code, not at trailing comments
// - Empty files yield an empty analysis without error
// - CRLF line endings do not leak into entity code
// - A cancelled context aborts the analysis

func analyze(t *testing.T, source string) *knowledge.FileAnalysis {
	t.Helper()
	result, err := NewPythonParser().Analyze(context.Background(), "test.py", []byte(source))
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func findFunction(fa *knowledge.FileAnalysis, name string) *knowledge.FunctionEntity {
	for i := range fa.Functions {
		if fa.Functions[i].Name == name {
			return &fa.Functions[i]
		}
	}
	return nil
}

func callsOf(fa *knowledge.FileAnalysis, caller string) []string {
	for _, seq := range fa.Calls {
		if seq.Caller == caller {
			return seq.Callees
		}
	}
	return nil
}

func TestPythonParser_Fixture(t *testing.T) {
	t.Parallel()

	path := "../../../testdata/code/python/simple.py"
	source, err := os.ReadFile(path)
	require.NoError(t, err)

	result, err := NewPythonParser().Analyze(context.Background(), path, source)
	require.NoError(t, err)
	require.Nil(t, result.ParseError)
	assert.Equal(t, path, result.Path)

	t.Run("functions", func(t *testing.T) {
		var names []string
		for _, fn := range result.Functions {
			names = append(names, fn.Name)
			assert.Equal(t, path, fn.File)
			assert.Equal(t, []string{}, fn.CalledBy)
		}
		assert.Equal(t, []string{"__init__", "load", "helper", "main"}, names)

		helper := findFunction(result, "helper")
		require.NotNil(t, helper)
		assert.Equal(t, 19, helper.Start)
		assert.Equal(t, 21, helper.End)
		assert.Equal(t, "def helper(value):\n    unused = value * 2\n    return value + 1", helper.Code)

		load := findFunction(result, "load")
		require.NotNil(t, load)
		assert.Equal(t, 12, load.Start)
		assert.Equal(t, 16, load.End)
	})

	t.Run("classes", func(t *testing.T) {
		require.Len(t, result.Classes, 1)
		cls := result.Classes[0]
		assert.Equal(t, "Repository", cls.Name)
		assert.Equal(t, 8, cls.Start)
		assert.Equal(t, 16, cls.End)
		assert.Contains(t, cls.Code, "def __init__(self, path):")
	})

	t.Run("calls", func(t *testing.T) {
		require.Len(t, result.Calls, 2)
		assert.Equal(t, "load", result.Calls[0].Caller)
		assert.Equal(t, []string{"read", "open"}, result.Calls[0].Callees)
		assert.Equal(t, "main", result.Calls[1].Caller)
		assert.Equal(t, []string{"Repository", "load", "print", "helper", "print", "helper"}, result.Calls[1].Callees)
	})

	t.Run("defects", func(t *testing.T) {
		assert.Equal(t, []knowledge.DefectRecord{
			knowledge.EmptyExceptionHandler(path, 15),
			knowledge.UnusedVariable(path, "log"),
			knowledge.UnusedVariable(path, "unused"),
		}, result.Defects)
	})
}

func TestPythonParser_NestedFunctions(t *testing.T) {
	t.Parallel()

	result := analyze(t, `def outer():
    a()
    def inner():
        b()
    c()
`)

	assert.Equal(t, []string{"a", "c"}, callsOf(result, "outer"))
	assert.Equal(t, []string{"b"}, callsOf(result, "inner"))

	inner := findFunction(result, "inner")
	require.NotNil(t, inner)
	assert.Equal(t, 3, inner.Start)
	assert.Equal(t, 4, inner.End)
}

func TestPythonParser_UnattributedCalls(t *testing.T) {
	t.Parallel()

	result := analyze(t, `print("start")

@register("x")
def handler():
    pass

value = compute()
`)

	assert.Empty(t, result.Calls)

	handler := findFunction(result, "handler")
	require.NotNil(t, handler)
	assert.Equal(t, 4, handler.Start)
}

func TestPythonParser_CalleeResolution(t *testing.T) {
	t.Parallel()

	result := analyze(t, `def run(obj, items):
    obj.method()
    obj.inner.deep()
    factory()()
    items[0]()
    (lambda: 1)()
    run(obj, items)
`)

	assert.Equal(t, []string{"method", "deep", "factory", "run"}, callsOf(result, "run"))
}

func TestPythonParser_AsyncFunction(t *testing.T) {
	t.Parallel()

	result := analyze(t, `async def fetch(url):
    return await get(url)
`)

	fetch := findFunction(result, "fetch")
	require.NotNil(t, fetch)
	assert.Equal(t, 1, fetch.Start)
	assert.Equal(t, 2, fetch.End)
	assert.Equal(t, []string{"get"}, callsOf(result, "fetch"))
}

func TestPythonParser_SyntaxError(t *testing.T) {
	t.Parallel()

	result := analyze(t, `def fine():
    return 1

def broken(:
    pass
`)

	require.NotNil(t, result.ParseError)
	assert.Equal(t, "test.py", result.ParseError.File)
	assert.NotEmpty(t, result.ParseError.Message)
	require.NotNil(t, result.ParseError.Line)
	assert.GreaterOrEqual(t, *result.ParseError.Line, 4)

	// A file that fails to parse contributes nothing else
	assert.Empty(t, result.Functions)
	assert.Empty(t, result.Classes)
	assert.Empty(t, result.Calls)
	assert.Empty(t, result.Defects)
}

func TestPythonParser_LegacyStatements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		source  string
		line    int
		message string
	}{
		{
			name:    "print statement",
			source:  "def f():\n    print \"hello\"\n",
			line:    2,
			message: "Missing parentheses in call to 'print'. Did you mean print(...)?",
		},
		{
			name:    "exec statement",
			source:  "x = 1\nexec \"x = 2\"\n",
			line:    2,
			message: "Missing parentheses in call to 'exec'. Did you mean exec(...)?",
		},
		{
			name:    "first of several",
			source:  "def f():\n    helper()\n\nprint \"a\"\nprint \"b\"\n",
			line:    4,
			message: "Missing parentheses in call to 'print'. Did you mean print(...)?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := analyze(t, tt.source)

			require.NotNil(t, result.ParseError)
			require.NotNil(t, result.ParseError.Line)
			assert.Equal(t, tt.line, *result.ParseError.Line)
			assert.Equal(t, tt.message, result.ParseError.Message)
			assert.Empty(t, result.Functions)
			assert.Empty(t, result.Calls)
			assert.Empty(t, result.Defects)
		})
	}

	// The call form is valid Python 3
	result := analyze(t, "def f():\n    print(\"hello\")\n")
	assert.Nil(t, result.ParseError)
	assert.Equal(t, []string{"print"}, callsOf(result, "f"))
}

func TestPythonParser_TrailingComments(t *testing.T) {
	t.Parallel()

	result := analyze(t, `def f():
    x = 1
    return x
    # trailing

class Box:
    def get(self):
        if self:
            return 1
            # inside the if
        # after the if
    # end of class

def g():
    return """text
# not a comment
"""
`)

	f := findFunction(result, "f")
	require.NotNil(t, f)
	assert.Equal(t, 1, f.Start)
	assert.Equal(t, 3, f.End)
	assert.Equal(t, "def f():\n    x = 1\n    return x", f.Code)

	get := findFunction(result, "get")
	require.NotNil(t, get)
	assert.Equal(t, 7, get.Start)
	assert.Equal(t, 9, get.End)

	require.Len(t, result.Classes, 1)
	assert.Equal(t, 6, result.Classes[0].Start)
	assert.Equal(t, 9, result.Classes[0].End)

	g := findFunction(result, "g")
	require.NotNil(t, g)
	assert.Equal(t, 14, g.Start)
	assert.Equal(t, 17, g.End)
}

func TestPythonParser_EmptyFile(t *testing.T) {
	t.Parallel()

	result := analyze(t, "")

	assert.Nil(t, result.ParseError)
	assert.Empty(t, result.Functions)
	assert.Empty(t, result.Classes)
	assert.Empty(t, result.Calls)
	assert.Empty(t, result.Defects)
}

func TestPythonParser_CRLF(t *testing.T) {
	t.Parallel()

	result := analyze(t, "def f():\r\n    return g()\r\n")

	f := findFunction(result, "f")
	require.NotNil(t, f)
	assert.Equal(t, "def f():\n    return g()", f.Code)
	assert.Equal(t, []string{"g"}, callsOf(result, "f"))
}

func TestPythonParser_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPythonParser().Analyze(ctx, "test.py", []byte("x = 1\n"))
	require.ErrorIs(t, err, context.Canceled)
}
