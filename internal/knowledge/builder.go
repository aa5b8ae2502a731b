package knowledge

// Builder accumulates per-file analyses into a KnowledgeBase.
//
// Merge order is significant: entities merged later overwrite earlier ones with
// the same name (last writer wins), and call sequences of same-named callers are
// concatenated. Builder is not safe for concurrent use; callers merge from a
// single goroutine after all per-file work has finished.
type Builder struct {
	kb          *KnowledgeBase
	callerOrder []string
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{kb: New()}
}

// Merge folds one file's analysis into the knowledge base.
func (b *Builder) Merge(fa *FileAnalysis) {
	if fa == nil {
		return
	}

	if fa.ParseError != nil {
		b.kb.SyntaxErrors = append(b.kb.SyntaxErrors, *fa.ParseError)
		return
	}

	for i := range fa.Functions {
		fn := fa.Functions[i]
		fn.CalledBy = []string{}
		b.kb.Functions[fn.Name] = &fn
	}

	for i := range fa.Classes {
		cls := fa.Classes[i]
		b.kb.Classes[cls.Name] = &cls
	}

	for _, seq := range fa.Calls {
		if len(seq.Callees) == 0 {
			continue
		}
		if _, seen := b.kb.Calls[seq.Caller]; !seen {
			b.callerOrder = append(b.callerOrder, seq.Caller)
		}
		b.kb.Calls[seq.Caller] = append(b.kb.Calls[seq.Caller], seq.Callees...)
	}

	b.kb.LogicalBugs = append(b.kb.LogicalBugs, fa.Defects...)
}

// Build runs the reverse-call inversion and returns the finished knowledge base.
// It must be called once, after every file has been merged: a callee may be
// defined in a file merged after its caller.
func (b *Builder) Build() *KnowledgeBase {
	for _, fn := range b.kb.Functions {
		fn.CalledBy = []string{}
	}

	for _, caller := range b.callerOrder {
		for _, callee := range b.kb.Calls[caller] {
			if fn, ok := b.kb.Functions[callee]; ok {
				fn.CalledBy = append(fn.CalledBy, caller)
			}
		}
	}

	return b.kb
}
