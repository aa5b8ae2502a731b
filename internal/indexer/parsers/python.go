package parsers

import (
	"context"
	"fmt"

	"github.com/mvp-joe/codebrain/internal/knowledge"
	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// PythonParser parses Python files and extracts code knowledge from them.
type PythonParser struct {
	*treeSitterParser
}

// NewPythonParser creates a new Python parser.
func NewPythonParser() *PythonParser {
	lang := sitter.NewLanguage(python.Language())
	return &PythonParser{
		treeSitterParser: newTreeSitterParser(lang, "python"),
	}
}

// Analyze parses source and runs the entity, call-graph and defect walks over it.
//
// A syntax error is not an error return: the result carries a ParseErrorRecord and
// nothing else. The returned error is reserved for parser infrastructure failures
// and context cancellation.
func (p *PythonParser) Analyze(ctx context.Context, filePath string, source []byte) (*knowledge.FileAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree, err := p.parse(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	result := &knowledge.FileAnalysis{Path: filePath}

	if rec := syntaxErrorRecord(filePath, root); rec != nil {
		result.ParseError = rec
		return result, nil
	}

	collector := newCodeCollector(filePath, source, splitLines(source))
	collector.walk(root)
	result.Functions = collector.functions
	result.Classes = collector.classes
	result.Calls = collector.sequences

	result.Defects = detectDefects(filePath, root, source)

	return result, nil
}

// syntaxErrorRecord returns a record for the first syntax error in the tree, or nil.
func syntaxErrorRecord(filePath string, root *sitter.Node) *knowledge.ParseErrorRecord {
	node := firstSyntaxError(root)
	if node == nil && !root.HasError() {
		return nil
	}

	rec := &knowledge.ParseErrorRecord{
		File:    filePath,
		Message: "invalid syntax",
	}
	if node == nil {
		return rec
	}

	line := startLine(node)
	rec.Line = &line
	if keyword, ok := legacyStatements[node.Kind()]; ok {
		rec.Message = fmt.Sprintf("Missing parentheses in call to '%s'. Did you mean %s(...)?", keyword, keyword)
	} else if node.IsMissing() {
		rec.Message = fmt.Sprintf("missing %q", node.Kind())
	}
	return rec
}

// codeCollector records function and class entities and attributes calls to the
// lexically enclosing function.
type codeCollector struct {
	filePath string
	source   []byte
	lines    []string

	// stack holds the names of the enclosing functions, innermost last.
	stack []string

	functions []knowledge.FunctionEntity
	classes   []knowledge.ClassEntity
	sequences []knowledge.CallSequence
	seqIndex  map[string]int
}

func newCodeCollector(filePath string, source []byte, lines []string) *codeCollector {
	return &codeCollector{
		filePath: filePath,
		source:   source,
		lines:    lines,
		seqIndex: make(map[string]int),
	}
}

func (c *codeCollector) walk(node *sitter.Node) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "function_definition":
		c.visitFunction(node)
		return
	case "class_definition":
		c.recordClass(node)
	case "call":
		c.recordCall(node)
	}

	c.walkChildren(node)
}

func (c *codeCollector) walkChildren(node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		c.walk(node.Child(i))
	}
}

// visitFunction records the function and walks its body with the function pushed
// as the current caller. Parameters, annotations and the return type are walked in
// the enclosing context.
func (c *codeCollector) visitFunction(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	name := extractNodeText(nameNode, c.source)

	if name != "" {
		start, end := startLine(node), codeEndLine(node)
		c.functions = append(c.functions, knowledge.FunctionEntity{
			Name:     name,
			File:     c.filePath,
			Start:    start,
			End:      end,
			Code:     extractLines(c.lines, start, end),
			CalledBy: []string{},
		})
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if sameNode(child, body) {
			continue
		}
		c.walk(child)
	}

	if body == nil {
		return
	}
	if name == "" {
		c.walk(body)
		return
	}

	c.stack = append(c.stack, name)
	c.walk(body)
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *codeCollector) recordClass(node *sitter.Node) {
	name := extractNodeText(node.ChildByFieldName("name"), c.source)
	if name == "" {
		return
	}

	start, end := startLine(node), codeEndLine(node)
	c.classes = append(c.classes, knowledge.ClassEntity{
		Name:  name,
		File:  c.filePath,
		Start: start,
		End:   end,
		Code:  extractLines(c.lines, start, end),
	})
}

func (c *codeCollector) recordCall(node *sitter.Node) {
	if len(c.stack) == 0 {
		return
	}

	callee := calleeName(node.ChildByFieldName("function"), c.source)
	if callee == "" {
		return
	}

	caller := c.stack[len(c.stack)-1]
	idx, ok := c.seqIndex[caller]
	if !ok {
		idx = len(c.sequences)
		c.seqIndex[caller] = idx
		c.sequences = append(c.sequences, knowledge.CallSequence{Caller: caller})
	}
	c.sequences[idx].Callees = append(c.sequences[idx].Callees, callee)
}

// calleeName resolves the target of a call: a bare name, or the attribute name of a
// method-style call. Any other target (call result, subscript, lambda) is untracked.
func calleeName(fn *sitter.Node, source []byte) string {
	if fn == nil {
		return ""
	}

	switch fn.Kind() {
	case "identifier":
		return extractNodeText(fn, source)
	case "attribute":
		return extractNodeText(fn.ChildByFieldName("attribute"), source)
	}
	return ""
}
