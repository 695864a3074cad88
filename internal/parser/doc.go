// Package parser locates top-level declarations in source files.
//
// Two languages are supported. Go files are parsed with the standard library
// (go/parser, go/ast, go/token); JavaScript-like files are parsed with the
// goja ECMAScript parser. Both produce the same types.ParseResult: a list of
// declarations with byte offsets, line numbers and the comments found in or
// directly above each declaration.
//
// # Basic Usage
//
//	p := parser.New()
//	result, err := p.ParseFile("dialog.js", src)
//	if errors.Is(err, types.ErrParseFailure) {
//	    // no syntax tree; callers fall back to whole-file handling
//	}
//
//	for _, decl := range result.Declarations {
//	    fmt.Printf("%s %s lines %d-%d\n", decl.Kind, decl.Name, decl.StartLine, decl.EndLine)
//	}
//
// # Declarations
//
// Go:
//   - func declarations (function or method)
//   - type, const and var declarations (grouped declarations stay together)
//
// JavaScript:
//   - function declarations
//   - class declarations
//   - var, let and const statements
//
// Statements of any other kind (expressions, imports, control flow) are not
// reported.
//
// # Error Handling
//
// Any syntax error fails the whole file: ParseFile returns the error wrapped
// with types.ErrParseFailure together with a result whose Errors field
// describes the problem and whose Declarations is empty. A partially parsed
// file is never reported as a success.
//
// JSX and TypeScript syntax is not understood by the JavaScript parser, so
// such files report a parse failure.
package parser
