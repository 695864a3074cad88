package types

// DeclKind represents the kind of a top-level source declaration
type DeclKind string

const (
	DeclFunction DeclKind = "function"
	DeclMethod   DeclKind = "method"
	DeclClass    DeclKind = "class"
	DeclVariable DeclKind = "variable"
	DeclType     DeclKind = "type"
	DeclConst    DeclKind = "const"
)

// Declaration is a top-level declaration located in a source file
type Declaration struct {
	Kind DeclKind
	Name string // Empty for destructuring or grouped bindings

	// Byte offsets into the source, End exclusive
	Start int
	End   int

	// 1-based line numbers
	StartLine int
	EndLine   int

	// Comments found within the declaration span, including its doc comment
	Comments []string
}

// ParseResult represents the output of parsing a source file
type ParseResult struct {
	Language     string
	Declarations []Declaration

	// Errors encountered during parsing
	Errors []ParseError
}

// ParseError represents an error that occurred during parsing
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

// Error implements the error interface
func (pe *ParseError) Error() string {
	return pe.Message
}

// HasErrors returns true if any parsing errors occurred
func (pr *ParseResult) HasErrors() bool {
	return len(pr.Errors) > 0
}

// AddError adds a parsing error to the result
func (pr *ParseResult) AddError(file string, line, col int, msg string) {
	pr.Errors = append(pr.Errors, ParseError{
		File:    file,
		Line:    line,
		Column:  col,
		Message: msg,
	})
}
