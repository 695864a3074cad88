package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// Languages understood by the parser
const (
	LanguageGo         = "go"
	LanguageJavaScript = "javascript"
)

// Parser extracts top-level declarations from source files
type Parser struct{}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{}
}

// LanguageFor returns the language for a filename, or "" if unsupported
func LanguageFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".go":
		return LanguageGo
	case ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs":
		return LanguageJavaScript
	default:
		return ""
	}
}

// ParseFile parses src according to the language implied by filename
func (p *Parser) ParseFile(filename string, src []byte) (*types.ParseResult, error) {
	switch LanguageFor(filename) {
	case LanguageGo:
		return p.ParseGo(filename, src)
	case LanguageJavaScript:
		return p.ParseJavaScript(filename, src)
	default:
		return nil, fmt.Errorf("no parser for %s", filename)
	}
}

// lineIndex maps byte offsets to 1-based line numbers
type lineIndex []int

func newLineIndex(src string) lineIndex {
	starts := lineIndex{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// line returns the 1-based line containing offset
func (li lineIndex) line(offset int) int {
	return sort.Search(len(li), func(i int) bool { return li[i] > offset })
}

// clampSpan keeps a declaration span inside the source
func clampSpan(start, end, size int) (int, int) {
	if start < 0 {
		start = 0
	}
	if start > size {
		start = size
	}
	if end > size {
		end = size
	}
	if end < start {
		end = start
	}
	return start, end
}

// failed records err on result and returns it wrapped as a parse failure
func failed(result *types.ParseResult, filename string, line, col int, err error) (*types.ParseResult, error) {
	result.Declarations = nil
	result.AddError(filename, line, col, fmt.Sprintf("syntax error: %v", err))
	return result, fmt.Errorf("%w: %s: %v", types.ErrParseFailure, filename, err)
}
