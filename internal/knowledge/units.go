package knowledge

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrNoUnits is returned by Units when the knowledge base holds nothing to embed.
var ErrNoUnits = errors.New("no code content to embed")

// UnitKind identifies what a text unit describes.
type UnitKind string

const (
	UnitFunction    UnitKind = "FUNCTION"
	UnitClass       UnitKind = "CLASS"
	UnitSyntaxError UnitKind = "SYNTAX_ERROR"
	UnitLogicalBug  UnitKind = "LOGICAL_BUG"
)

// Unit is one independent piece of text handed to the embedding stage.
type Unit struct {
	Kind UnitKind
	Text string
}

// Units renders every function, class, syntax error and defect as a text unit.
// Functions and classes are emitted in name order; records keep artifact order.
func Units(kb *KnowledgeBase) ([]Unit, error) {
	var units []Unit

	for _, name := range sortedKeys(kb.Functions) {
		fn := kb.Functions[name]
		units = append(units, Unit{Kind: UnitFunction, Text: fmt.Sprintf(`
TYPE: FUNCTION
NAME: %s
FILE: %s
LINES: %d - %d

CODE:
%s
`, fn.Name, fn.File, fn.Start, fn.End, fn.Code)})
	}

	for _, name := range sortedKeys(kb.Classes) {
		cls := kb.Classes[name]
		units = append(units, Unit{Kind: UnitClass, Text: fmt.Sprintf(`
TYPE: CLASS
NAME: %s
FILE: %s
LINES: %d - %d

CODE:
%s
`, cls.Name, cls.File, cls.Start, cls.End, cls.Code)})
	}

	for _, rec := range kb.SyntaxErrors {
		line := "None"
		if rec.Line != nil {
			line = strconv.Itoa(*rec.Line)
		}
		units = append(units, Unit{Kind: UnitSyntaxError, Text: fmt.Sprintf(`
TYPE: SYNTAX_ERROR
FILE: %s
LINE: %s
MESSAGE: %s
`, rec.File, line, rec.Message)})
	}

	for _, bug := range kb.LogicalBugs {
		name := bug.Name
		if name == "" {
			name = "N/A"
		}
		units = append(units, Unit{Kind: UnitLogicalBug, Text: fmt.Sprintf(`
TYPE: LOGICAL_BUG
BUG: %s
NAME: %s
FILE: %s
`, bug.Type, name, bug.File)})
	}

	if len(units) == 0 {
		return nil, ErrNoUnits
	}
	return units, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
