package parsers

import (
	"sort"

	"github.com/mvp-joe/codebrain/internal/knowledge"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// defectDetector applies the structural heuristics to one file.
//
// Name tracking is file-wide and flow-insensitive: a name assigned in one function
// and read in another counts as used. Findings are best effort by construction.
type defectDetector struct {
	filePath string
	source   []byte
	defined  map[string]struct{}
	used     map[string]struct{}
	defects  []knowledge.DefectRecord
}

// detectDefects walks the tree and returns empty-handler findings in visit order
// followed by unused-variable findings sorted by name.
func detectDefects(filePath string, root *sitter.Node, source []byte) []knowledge.DefectRecord {
	d := &defectDetector{
		filePath: filePath,
		source:   source,
		defined:  make(map[string]struct{}),
		used:     make(map[string]struct{}),
	}

	d.visit(root)

	var unused []string
	for name := range d.defined {
		if _, ok := d.used[name]; !ok {
			unused = append(unused, name)
		}
	}
	sort.Strings(unused)

	for _, name := range unused {
		d.defects = append(d.defects, knowledge.UnusedVariable(filePath, name))
	}
	return d.defects
}

// visit walks node in load context: identifiers reached here are reads.
func (d *defectDetector) visit(node *sitter.Node) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "identifier":
		d.used[extractNodeText(node, d.source)] = struct{}{}
		return

	case "comment", "import_statement", "import_from_statement", "future_import_statement",
		"global_statement", "nonlocal_statement":
		return

	case "except_clause", "except_group_clause":
		d.checkHandler(node)
		d.visitHandler(node)
		return

	case "as_pattern":
		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child.Kind() == "as_pattern_target" {
				d.visitTarget(child)
			} else {
				d.visit(child)
			}
		}
		return

	case "assignment":
		left := node.ChildByFieldName("left")
		annotation := node.ChildByFieldName("type")
		if name := unwrapParens(left); annotation == nil && name != nil && name.Kind() == "identifier" {
			d.define(name)
		}
		d.visitTarget(left)
		d.visit(annotation)
		d.visit(node.ChildByFieldName("right"))
		return

	case "augmented_assignment":
		d.visitTarget(node.ChildByFieldName("left"))
		d.visit(node.ChildByFieldName("right"))
		return

	case "named_expression":
		d.visitTarget(node.ChildByFieldName("name"))
		d.visit(node.ChildByFieldName("value"))
		return

	case "for_statement", "for_in_clause":
		left := node.ChildByFieldName("left")
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if sameNode(child, left) {
				d.visitTarget(child)
			} else {
				d.visit(child)
			}
		}
		return

	case "delete_statement":
		for i := uint(0); i < node.NamedChildCount(); i++ {
			d.visitTarget(node.NamedChild(i))
		}
		return

	case "function_definition":
		d.visitParameters(node.ChildByFieldName("parameters"), true)
		d.visit(node.ChildByFieldName("type_parameters"))
		d.visit(node.ChildByFieldName("return_type"))
		d.visit(node.ChildByFieldName("body"))
		return

	case "lambda":
		d.visitParameters(node.ChildByFieldName("parameters"), false)
		d.visit(node.ChildByFieldName("body"))
		return

	case "class_definition":
		d.visit(node.ChildByFieldName("type_parameters"))
		d.visit(node.ChildByFieldName("superclasses"))
		d.visit(node.ChildByFieldName("body"))
		return

	case "case_pattern":
		d.visitPattern(node)
		return

	case "attribute":
		d.visit(node.ChildByFieldName("object"))
		return

	case "keyword_argument":
		d.visit(node.ChildByFieldName("value"))
		return
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		d.visit(node.Child(i))
	}
}

// visitTarget walks an assignment target. Bare names are stores, not reads, but
// the object of an attribute target and the parts of a subscript target are read.
func (d *defectDetector) visitTarget(node *sitter.Node) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "identifier":
		return
	case "attribute":
		d.visit(node.ChildByFieldName("object"))
	case "subscript":
		for i := uint(0); i < node.NamedChildCount(); i++ {
			d.visit(node.NamedChild(i))
		}
	case "tuple", "list", "pattern_list", "tuple_pattern", "list_pattern", "expression_list",
		"parenthesized_expression", "list_splat_pattern", "list_splat", "as_pattern_target":
		for i := uint(0); i < node.NamedChildCount(); i++ {
			d.visitTarget(node.NamedChild(i))
		}
	default:
		d.visit(node)
	}
}

// visitPattern walks a match-case pattern. Bare names are captures, which bind
// rather than read. Dotted names are value patterns and read their first part; a
// class pattern reads its class.
func (d *defectDetector) visitPattern(node *sitter.Node) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "identifier":
		return
	case "dotted_name":
		if node.NamedChildCount() > 1 {
			d.visit(node.NamedChild(0))
		}
		return
	case "class_pattern":
		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child.Kind() == "dotted_name" {
				d.visit(child.NamedChild(0))
			} else {
				d.visitPattern(child)
			}
		}
		return
	case "keyword_pattern":
		// The keyword names an attribute of the subject.
		for i := uint(1); i < node.NamedChildCount(); i++ {
			d.visitPattern(node.NamedChild(i))
		}
		return
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		d.visitPattern(node.NamedChild(i))
	}
}

// visitParameters reads default values and annotations. When define is set, the
// names of ordinary positional parameters are recorded as defined; positional-only
// parameters (before "/"), *args, keyword-only parameters and **kwargs are not.
func (d *defectDetector) visitParameters(params *sitter.Node, define bool) {
	if params == nil {
		return
	}

	var positional []*sitter.Node
	keywordOnly := false

	for i := uint(0); i < params.NamedChildCount(); i++ {
		param := params.NamedChild(i)

		switch param.Kind() {
		case "identifier":
			if !keywordOnly {
				positional = append(positional, param)
			}

		case "typed_parameter":
			name := param.NamedChild(0)
			if name != nil && name.Kind() == "identifier" {
				if !keywordOnly {
					positional = append(positional, name)
				}
			} else {
				keywordOnly = true
			}
			d.visit(param.ChildByFieldName("type"))

		case "default_parameter", "typed_default_parameter":
			if !keywordOnly {
				if name := param.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
					positional = append(positional, name)
				}
			}
			d.visit(param.ChildByFieldName("type"))
			d.visit(param.ChildByFieldName("value"))

		case "positional_separator":
			positional = positional[:0]

		case "list_splat_pattern", "keyword_separator":
			keywordOnly = true

		case "dictionary_splat_pattern":
		}
	}

	if !define {
		return
	}
	for _, name := range positional {
		d.define(name)
	}
}

func (d *defectDetector) define(name *sitter.Node) {
	d.defined[extractNodeText(name, d.source)] = struct{}{}
}

// checkHandler flags an except clause whose body starts with "pass". Only the
// first statement matters; statements after the pass do not clear the finding.
func (d *defectDetector) checkHandler(clause *sitter.Node) {
	first := firstStatement(findChildByType(clause, "block"))
	if first != nil && first.Kind() == "pass_statement" {
		d.defects = append(d.defects, knowledge.EmptyExceptionHandler(d.filePath, startLine(clause)))
	}
}

// visitHandler walks an except clause. The target bound by "except E as name" is a
// store, whether the grammar exposes it as an as_pattern or as a bare token pair.
func (d *defectDetector) visitHandler(clause *sitter.Node) {
	afterAs := false
	for i := uint(0); i < clause.ChildCount(); i++ {
		child := clause.Child(i)
		if child.Kind() == "as" {
			afterAs = true
			continue
		}
		if afterAs && child.IsNamed() {
			d.visitTarget(child)
			afterAs = false
			continue
		}
		d.visit(child)
	}
}
