package parser

import (
	"go/ast"
	goparser "go/parser"
	"go/scanner"
	"go/token"
	"strings"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// ParseGo parses Go source and reports its top-level declarations
func (p *Parser) ParseGo(filename string, src []byte) (*types.ParseResult, error) {
	result := &types.ParseResult{Language: LanguageGo}

	fset := token.NewFileSet()
	file, err := goparser.ParseFile(fset, filename, src, goparser.ParseComments)
	if err != nil {
		line, col := 0, 0
		if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
			line, col = list[0].Pos.Line, list[0].Pos.Column
		}
		return failed(result, filename, line, col, err)
	}

	e := &declExtractor{fset: fset, file: file, size: len(src)}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			e.extractFunction(d)
		case *ast.GenDecl:
			e.extractGenDecl(d)
		}
	}
	result.Declarations = e.decls

	return result, nil
}

// declExtractor collects declarations from a parsed Go file
type declExtractor struct {
	fset  *token.FileSet
	file  *ast.File
	size  int
	decls []types.Declaration
}

// extractFunction extracts function and method declarations
func (e *declExtractor) extractFunction(funcDecl *ast.FuncDecl) {
	kind := types.DeclFunction
	if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
		kind = types.DeclMethod
	}
	e.add(kind, funcDecl.Name.Name, funcDecl.Pos(), funcDecl.End(), funcDecl.Doc)
}

// extractGenDecl extracts type, const and var declarations.
// Grouped declarations are kept as a single unit.
func (e *declExtractor) extractGenDecl(genDecl *ast.GenDecl) {
	var kind types.DeclKind
	switch genDecl.Tok {
	case token.TYPE:
		kind = types.DeclType
	case token.CONST:
		kind = types.DeclConst
	case token.VAR:
		kind = types.DeclVariable
	default:
		return // imports
	}

	name := ""
	if len(genDecl.Specs) == 1 {
		switch s := genDecl.Specs[0].(type) {
		case *ast.TypeSpec:
			name = s.Name.Name
		case *ast.ValueSpec:
			if len(s.Names) == 1 {
				name = s.Names[0].Name
			}
		}
	}
	e.add(kind, name, genDecl.Pos(), genDecl.End(), genDecl.Doc)
}

func (e *declExtractor) add(kind types.DeclKind, name string, pos, end token.Pos, doc *ast.CommentGroup) {
	startPos := e.fset.Position(pos)
	endPos := e.fset.Position(end)
	start, stop := clampSpan(startPos.Offset, endPos.Offset, e.size)

	decl := types.Declaration{
		Kind:      kind,
		Name:      name,
		Start:     start,
		End:       stop,
		StartLine: startPos.Line,
		EndLine:   endPos.Line,
	}

	if doc != nil {
		decl.Comments = append(decl.Comments, strings.TrimSpace(doc.Text()))
	}
	for _, group := range e.file.Comments {
		if group.Pos() >= pos && group.End() <= end {
			decl.Comments = append(decl.Comments, strings.TrimSpace(group.Text()))
		}
	}

	e.decls = append(e.decls, decl)
}
