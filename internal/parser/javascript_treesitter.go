//go:build cgo

package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// ModuleSyntax reports whether import/export statements and JSX parse
const ModuleSyntax = true

func grammar(d jsDialect) *sitter.Language {
	switch d {
	case dialectTypeScript:
		return typescript.GetLanguage()
	case dialectTSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// ParseJavaScript parses ECMAScript, JSX or TypeScript source with
// tree-sitter and reports its top-level declarations. Declarations
// wrapped in export statements span the whole statement.
func (p *Parser) ParseJavaScript(filename string, src []byte) (*types.ParseResult, error) {
	result := &types.ParseResult{Language: LanguageJavaScript}

	ts := sitter.NewParser()
	defer ts.Close()
	ts.SetLanguage(grammar(dialectFor(filename)))

	tree, err := ts.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return failed(result, filename, 0, 0, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line, col := 0, 0
		if bad := firstError(root); bad != nil {
			pt := bad.StartPoint()
			line, col = int(pt.Row)+1, int(pt.Column)+1
		}
		return failed(result, filename, line, col, fmt.Errorf("unexpected syntax at line %d", line))
	}

	text := string(src)
	b := &jsBuilder{text: text, lines: newLineIndex(text), comments: treeComments(root, src)}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		kind, name, ok := sitterDeclaration(stmt, src)
		if !ok {
			continue
		}
		decl := b.declaration(kind, name, int(stmt.StartByte()), int(stmt.EndByte()))
		result.Declarations = append(result.Declarations, decl)
	}

	return result, nil
}

func sitterDeclaration(n *sitter.Node, src []byte) (types.DeclKind, string, bool) {
	switch n.Type() {
	case "function_declaration", "generator_function_declaration":
		return types.DeclFunction, fieldText(n, "name", src), true
	case "class_declaration", "abstract_class_declaration":
		return types.DeclClass, fieldText(n, "name", src), true
	case "lexical_declaration", "variable_declaration":
		return types.DeclVariable, declaratorName(n, src), true
	case "interface_declaration", "type_alias_declaration", "enum_declaration":
		return types.DeclType, fieldText(n, "name", src), true
	case "export_statement":
		if decl := n.ChildByFieldName("declaration"); decl != nil {
			return sitterDeclaration(decl, src)
		}
		if value := n.ChildByFieldName("value"); value != nil {
			return exportedValue(value, src)
		}
	}
	return "", "", false
}

// exportedValue classifies the expression of an export default statement
func exportedValue(value *sitter.Node, src []byte) (types.DeclKind, string, bool) {
	name := fieldText(value, "name", src)
	if name == "" {
		name = "default"
	}
	switch value.Type() {
	case "function", "function_expression", "arrow_function", "generator_function":
		return types.DeclFunction, name, true
	case "class":
		return types.DeclClass, name, true
	default:
		return types.DeclVariable, name, true
	}
}

func fieldText(n *sitter.Node, field string, src []byte) string {
	if child := n.ChildByFieldName(field); child != nil {
		return child.Content(src)
	}
	return ""
}

// declaratorName returns the name of a single plain binding
func declaratorName(n *sitter.Node, src []byte) string {
	var declarators []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() == "variable_declarator" {
			declarators = append(declarators, child)
		}
	}
	if len(declarators) != 1 {
		return ""
	}
	id := declarators[0].ChildByFieldName("name")
	if id == nil || id.Type() != "identifier" {
		return ""
	}
	return id.Content(src)
}

// firstError returns the first ERROR or missing node in document order
func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstError(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

// treeComments collects every comment node in document order
func treeComments(root *sitter.Node, src []byte) commentList {
	var out commentList
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "comment" {
			out = append(out, newComment(n.Content(src), int(n.StartByte()), int(n.EndByte())))
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return out
}
