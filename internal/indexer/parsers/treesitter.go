package parsers

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// treeSitterParser provides common tree-sitter parsing functionality.
type treeSitterParser struct {
	language *sitter.Language
	lang     string
}

// newTreeSitterParser creates a new tree-sitter parser for the given language.
func newTreeSitterParser(language *sitter.Language, lang string) *treeSitterParser {
	return &treeSitterParser{
		language: language,
		lang:     lang,
	}
}

// parse builds a syntax tree for source. The caller must Close the returned tree.
// A fresh sitter.Parser is used per call since parsers are not safe for concurrent use.
func (p *treeSitterParser) parse(source []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to set %s language: %w", p.lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned no tree for %s source", p.lang)
	}
	return tree, nil
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// splitLines splits source into lines, dropping the carriage return of CRLF endings.
func splitLines(source []byte) []string {
	lines := strings.Split(string(source), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// extractLines extracts source code lines from startLine to endLine (1-indexed).
func extractLines(lines []string, startLine, endLine int) string {
	if startLine < 1 || endLine < 1 || startLine > len(lines) {
		return ""
	}

	start := startLine - 1
	end := endLine
	if end > len(lines) {
		end = len(lines)
	}

	return strings.Join(lines[start:end], "\n")
}

// startLine returns the 1-indexed line a node starts on.
func startLine(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// endLine returns the 1-indexed line a node ends on.
func endLine(node *sitter.Node) int {
	return int(node.EndPosition().Row) + 1
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for each node.
// Returning false from the visitor skips the node's children.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		walkTree(node.Child(i), visitor)
	}
}

// sameNode reports whether a and b denote the same node of one tree.
func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

// findChildByType finds the first child node with the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

// unwrapParens strips redundant parentheses around a single target, so that "(a)"
// yields the identifier a. A trailing comma makes a one-element tuple, which is kept.
func unwrapParens(node *sitter.Node) *sitter.Node {
	for node != nil && node.NamedChildCount() == 1 {
		switch node.Kind() {
		case "parenthesized_expression":
		case "tuple_pattern", "tuple":
			if findChildByType(node, ",") != nil {
				return node
			}
		default:
			return node
		}
		node = node.NamedChild(0)
	}
	return node
}

// firstStatement returns the first named child of a block that is not a comment.
func firstStatement(block *sitter.Node) *sitter.Node {
	if block == nil {
		return nil
	}

	for i := uint(0); i < block.NamedChildCount(); i++ {
		child := block.NamedChild(i)
		if child.Kind() != "comment" {
			return child
		}
	}
	return nil
}

// legacyStatements are Python 2 statements the grammar still accepts but Python 3
// rejects.
var legacyStatements = map[string]string{
	"print_statement": "print",
	"exec_statement":  "exec",
}

// firstSyntaxError returns the first node in document order that Python 3 rejects:
// an ERROR or MISSING node, or a legacy print/exec statement. It returns nil when
// there is none.
func firstSyntaxError(root *sitter.Node) *sitter.Node {
	var found *sitter.Node
	walkTree(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if _, legacy := legacyStatements[n.Kind()]; legacy || n.Kind() == "ERROR" || n.IsMissing() {
			found = n
			return false
		}
		return true
	})
	return found
}

// codeEndLine returns the last line of node that holds code. Comments trailing the
// last statement of a block belong to the tree-sitter node but not to the code.
func codeEndLine(node *sitter.Node) int {
	for i := int(node.ChildCount()) - 1; i >= 0; i-- {
		child := node.Child(uint(i))
		if child.Kind() == "comment" {
			continue
		}
		return codeEndLine(child)
	}
	return endLine(node)
}
