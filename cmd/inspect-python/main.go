package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mvp-joe/codebrain/internal/indexer/parsers"
	"github.com/mvp-joe/codebrain/internal/knowledge"
)

func main() {
	path := "testdata/code/python/simple.py"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	source, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}

	parser := parsers.NewPythonParser()
	analysis, err := parser.Analyze(context.Background(), path, source)
	if err != nil {
		log.Fatal(err)
	}

	if analysis.ParseError != nil {
		line := "unknown"
		if analysis.ParseError.Line != nil {
			line = fmt.Sprint(*analysis.ParseError.Line)
		}
		fmt.Printf("=== SYNTAX ERROR ===\nline %s: %s\n", line, analysis.ParseError.Message)
		return
	}

	fmt.Println("=== FUNCTIONS ===")
	fmt.Printf("Count: %d\n", len(analysis.Functions))
	for _, f := range analysis.Functions {
		fmt.Printf("  %s (line %d-%d)\n", f.Name, f.Start, f.End)
	}

	fmt.Println("\n=== CLASSES ===")
	fmt.Printf("Count: %d\n", len(analysis.Classes))
	for _, c := range analysis.Classes {
		fmt.Printf("  %s (line %d-%d)\n", c.Name, c.Start, c.End)
	}

	fmt.Println("\n=== CALLS ===")
	for _, seq := range analysis.Calls {
		fmt.Printf("  %s -> %v\n", seq.Caller, seq.Callees)
	}

	fmt.Println("\n=== DEFECTS ===")
	fmt.Printf("Count: %d\n", len(analysis.Defects))
	for _, d := range analysis.Defects {
		if d.Type == knowledge.DefectUnusedVariable {
			fmt.Printf("  %s %s (%s)\n", d.Type, d.Name, d.File)
		} else {
			fmt.Printf("  %s line %d (%s)\n", d.Type, d.Line, d.File)
		}
	}
}
