//go:build !cgo

package parser

import (
	"errors"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	jsparser "github.com/dop251/goja/parser"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// ModuleSyntax reports whether import/export statements and JSX parse.
// Pure Go builds use goja, which accepts scripts only.
const ModuleSyntax = false

// ParseJavaScript parses ECMAScript source and reports its top-level
// function, class and variable declarations
func (p *Parser) ParseJavaScript(filename string, src []byte) (*types.ParseResult, error) {
	result := &types.ParseResult{Language: LanguageJavaScript}

	program, err := jsparser.ParseFile(nil, filename, src, 0)
	if err != nil {
		line, col := 0, 0
		var list jsparser.ErrorList
		if errors.As(err, &list) && len(list) > 0 {
			line, col = list[0].Position.Line, list[0].Position.Column
		}
		return failed(result, filename, line, col, err)
	}

	text := string(src)
	b := &jsBuilder{text: text, lines: newLineIndex(text), comments: scanComments(text)}

	for _, stmt := range program.Body {
		kind, name, ok := jsDeclaration(stmt)
		if !ok {
			continue
		}

		start, end := offset(stmt.Idx0()), offset(stmt.Idx1())
		if isLexical(stmt) && end < len(text) && text[end] == ';' {
			end++
		}
		result.Declarations = append(result.Declarations, b.declaration(kind, name, start, end))
	}

	return result, nil
}

// offset converts a goja index to a byte offset; a nil file set uses base 1
func offset(idx file.Idx) int {
	return int(idx) - 1
}

func isLexical(stmt ast.Statement) bool {
	switch stmt.(type) {
	case *ast.VariableStatement, *ast.LexicalDeclaration:
		return true
	}
	return false
}

func jsDeclaration(stmt ast.Statement) (types.DeclKind, string, bool) {
	switch s := stmt.(type) {
	case *ast.FunctionDeclaration:
		return types.DeclFunction, identName(s.Function.Name), true
	case *ast.ClassDeclaration:
		return types.DeclClass, identName(s.Class.Name), true
	case *ast.VariableStatement:
		return types.DeclVariable, bindingName(s.List), true
	case *ast.LexicalDeclaration:
		return types.DeclVariable, bindingName(s.List), true
	}
	return "", "", false
}

func identName(id *ast.Identifier) string {
	if id == nil {
		return ""
	}
	return string(id.Name)
}

// bindingName returns the name of a single plain binding
func bindingName(list []*ast.Binding) string {
	if len(list) != 1 {
		return ""
	}
	if id, ok := list[0].Target.(*ast.Identifier); ok {
		return identName(id)
	}
	return ""
}
