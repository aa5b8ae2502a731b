package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Marshal encodes the knowledge base as the artifact document.
// Map keys are sorted by encoding/json, so equal inputs produce identical bytes.
func Marshal(kb *KnowledgeBase, indent int) ([]byte, error) {
	if indent <= 0 {
		return json.Marshal(kb)
	}
	return json.MarshalIndent(kb, "", strings.Repeat(" ", indent))
}

// ReadFile loads a previously written artifact.
func ReadFile(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}

	kb := New()
	if err := json.Unmarshal(data, kb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal knowledge base: %w", err)
	}

	for _, fn := range kb.Functions {
		if fn.CalledBy == nil {
			fn.CalledBy = []string{}
		}
	}

	return kb, nil
}
