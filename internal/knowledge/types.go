package knowledge

// FunctionEntity is a function or method definition discovered in a source file.
type FunctionEntity struct {
	Name     string   `json:"name"`
	File     string   `json:"file"`
	Start    int      `json:"start"` // 1-indexed, inclusive
	End      int      `json:"end"`   // 1-indexed, inclusive
	Code     string   `json:"code"`
	CalledBy []string `json:"called_by"` // filled by Builder.Build, never nil after it
}

// ClassEntity is a class definition. Members are not broken out.
type ClassEntity struct {
	Name  string `json:"name"`
	File  string `json:"file"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Code  string `json:"code"`
}

// ParseErrorRecord records a file that could not be parsed.
// Line is nil when the parser could not attribute the failure to a line.
type ParseErrorRecord struct {
	File    string `json:"file"`
	Line    *int   `json:"line"`
	Message string `json:"message"`
}

// DefectKind tags a DefectRecord. The string values are part of the artifact schema.
type DefectKind string

const (
	DefectEmptyExceptionHandler DefectKind = "EmptyExceptBlock"
	DefectUnusedVariable        DefectKind = "UnusedVariable"
)

// DefectRecord is a heuristic, non-fatal finding.
// EmptyExceptionHandler records carry Line; UnusedVariable records carry Name.
type DefectRecord struct {
	Type DefectKind `json:"type"`
	File string     `json:"file"`
	Line int        `json:"line,omitempty"`
	Name string     `json:"name,omitempty"`
}

// EmptyExceptionHandler builds a defect for an except clause whose body starts with a no-op.
func EmptyExceptionHandler(file string, line int) DefectRecord {
	return DefectRecord{Type: DefectEmptyExceptionHandler, File: file, Line: line}
}

// UnusedVariable builds a defect for a name that is assigned in a file but never read there.
func UnusedVariable(file, name string) DefectRecord {
	return DefectRecord{Type: DefectUnusedVariable, File: file, Name: name}
}

// KnowledgeBase is the aggregated artifact of one extraction pass.
//
// Functions and Classes are keyed by bare name; on collision the entity visited
// last wins. Calls is kept in memory only and is not part of the serialized schema.
type KnowledgeBase struct {
	Functions    map[string]*FunctionEntity `json:"functions"`
	Classes      map[string]*ClassEntity    `json:"classes"`
	Calls        map[string][]string        `json:"-"`
	SyntaxErrors []ParseErrorRecord         `json:"syntax_errors"`
	LogicalBugs  []DefectRecord             `json:"logical_bugs"`
}

// New returns an empty knowledge base whose collections serialize as {} / [] rather than null.
func New() *KnowledgeBase {
	return &KnowledgeBase{
		Functions:    make(map[string]*FunctionEntity),
		Classes:      make(map[string]*ClassEntity),
		Calls:        make(map[string][]string),
		SyntaxErrors: []ParseErrorRecord{},
		LogicalBugs:  []DefectRecord{},
	}
}

// FileAnalysis is everything a single successfully parsed file contributes.
// A file that failed to parse contributes only ParseError.
type FileAnalysis struct {
	Path       string
	Functions  []FunctionEntity // in visit order
	Classes    []ClassEntity    // in visit order
	Calls      []CallSequence   // callers in first-call order
	Defects    []DefectRecord
	ParseError *ParseErrorRecord
}

// CallSequence holds the callees of one caller, in call order with duplicates.
type CallSequence struct {
	Caller  string
	Callees []string
}
