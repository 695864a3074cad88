package parser

import (
	"path/filepath"
	"strings"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// jsDialect selects the grammar for a JavaScript-family file
type jsDialect int

const (
	dialectJavaScript jsDialect = iota // .js .jsx .mjs .cjs, JSX included
	dialectTypeScript
	dialectTSX
)

func dialectFor(filename string) jsDialect {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ts":
		return dialectTypeScript
	case ".tsx":
		return dialectTSX
	default:
		return dialectJavaScript
	}
}

// jsBuilder turns located declarations into types.Declaration values
type jsBuilder struct {
	text     string
	lines    lineIndex
	comments commentList
}

func (b *jsBuilder) declaration(kind types.DeclKind, name string, start, end int) types.Declaration {
	start, end = clampSpan(start, end, len(b.text))
	decl := types.Declaration{
		Kind:      kind,
		Name:      name,
		Start:     start,
		End:       end,
		StartLine: b.lines.line(start),
		EndLine:   b.lines.line(max(start, end-1)),
	}
	decl.Comments = append(decl.Comments, b.comments.leading(b.text, start)...)
	decl.Comments = append(decl.Comments, b.comments.within(start, end)...)
	return decl
}
