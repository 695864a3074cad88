package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docrag-mcp/internal/parser"
	"github.com/dshills/docrag-mcp/pkg/types"
)

func TestCodeChunker_JavaScript(t *testing.T) {
	src := `// Adds two numbers
function add(a, b) {
  return a + b;
}

class Counter {
  increment() { this.n++; }
}

const LIMIT = 10;
`

	c := NewCodeChunker()
	chunks := c.Chunk("math.js", []byte(src))
	require.Len(t, chunks, 3)

	assert.Equal(t, "function add(a, b) {\n  return a + b;\n}", chunks[0].Content)
	assert.Equal(t, types.KindCode, chunks[0].Kind)
	assert.Equal(t, "function", chunks[0].Metadata[MetaDeclaration])
	assert.Equal(t, "add", chunks[0].Metadata[MetaName])
	assert.Equal(t, 2, chunks[0].Metadata[types.MetaLineNumber])
	assert.Equal(t, []string{"Adds two numbers"}, chunks[0].Metadata[types.MetaComments])

	assert.Equal(t, "class", chunks[1].Metadata[MetaDeclaration])
	assert.Equal(t, "const LIMIT = 10;", chunks[2].Content)
	for _, chunk := range chunks {
		assert.Nil(t, chunk.Metadata[types.MetaFallback])
	}
}

func TestCodeChunker_ESModule(t *testing.T) {
	if !parser.ModuleSyntax {
		t.Skip("module syntax requires the cgo parser")
	}
	src := `import { clamp } from './math.js';

// Formats a price
export function formatPrice(n) {
  return '$' + clamp(n, 0, 1e6).toFixed(2);
}

export const CURRENCY = 'USD';

export default class Cart {
  total() { return 0; }
}
`

	c := NewCodeChunker()
	chunks := c.Chunk("cart.mjs", []byte(src))
	require.Len(t, chunks, 3)

	assert.True(t, strings.HasPrefix(chunks[0].Content, "export function formatPrice(n) {"))
	assert.Equal(t, "function", chunks[0].Metadata[MetaDeclaration])
	assert.Equal(t, "formatPrice", chunks[0].Metadata[MetaName])
	assert.Equal(t, 4, chunks[0].Metadata[types.MetaLineNumber])
	assert.Equal(t, []string{"Formats a price"}, chunks[0].Metadata[types.MetaComments])

	assert.Equal(t, "export const CURRENCY = 'USD';", chunks[1].Content)
	assert.Equal(t, "CURRENCY", chunks[1].Metadata[MetaName])

	assert.Equal(t, "class", chunks[2].Metadata[MetaDeclaration])
	assert.Equal(t, "Cart", chunks[2].Metadata[MetaName])
	for _, chunk := range chunks {
		assert.Nil(t, chunk.Metadata[types.MetaFallback])
	}
}

func TestCodeChunker_JSX(t *testing.T) {
	if !parser.ModuleSyntax {
		t.Skip("JSX requires the cgo parser")
	}
	src := `import React from 'react';

export default function Greeting({ name }) {
  return <h1 className="greeting">Hello, {name}</h1>;
}

const List = ({ items }) => (
  <ul>{items.map((i) => <li key={i}>{i}</li>)}</ul>
);
`

	c := NewCodeChunker()
	chunks := c.Chunk("Greeting.jsx", []byte(src))
	require.Len(t, chunks, 2)

	assert.Equal(t, "function", chunks[0].Metadata[MetaDeclaration])
	assert.Equal(t, "Greeting", chunks[0].Metadata[MetaName])
	assert.Contains(t, chunks[0].Content, `<h1 className="greeting">`)

	assert.Equal(t, "variable", chunks[1].Metadata[MetaDeclaration])
	assert.Equal(t, "List", chunks[1].Metadata[MetaName])
	assert.True(t, strings.HasSuffix(chunks[1].Content, ");"))
	for _, chunk := range chunks {
		assert.Nil(t, chunk.Metadata[types.MetaFallback])
	}
}

func TestCodeChunker_FallbackOnSyntaxError(t *testing.T) {
	src := "function broken( {\n  return 1;\n"

	c := NewCodeChunker()
	chunks := c.Chunk("broken.js", []byte(src))
	require.Len(t, chunks, 1)
	assert.Equal(t, strings.TrimSpace(src), chunks[0].Content)
	assert.Equal(t, true, chunks[0].Metadata[types.MetaFallback])
	assert.Equal(t, types.KindCode, chunks[0].Kind)
}

func TestCodeChunker_NoDeclarations(t *testing.T) {
	c := NewCodeChunker()
	chunks := c.Chunk("run.js", []byte("main();\n"))
	require.Len(t, chunks, 1)
	assert.Equal(t, "main();", chunks[0].Content)
	assert.Nil(t, chunks[0].Metadata[types.MetaFallback])
}

func TestCodeChunker_Go(t *testing.T) {
	src := `package greet

import "fmt"

// Greet prints a greeting message
func Greet(name string) {
	fmt.Println("Hello, " + name)
}
`

	c := NewCodeChunker()
	chunks := c.Chunk("greet.go", []byte(src))
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "fmt.Println")
	assert.Equal(t, "Greet", chunks[0].Metadata[MetaName])
	assert.Equal(t, []string{"Greet prints a greeting message"}, chunks[0].Metadata[types.MetaComments])
}

func TestCodeChunker_EmptyFile(t *testing.T) {
	c := NewCodeChunker()
	assert.Empty(t, c.Chunk("empty.js", []byte("  \n")))
}

func TestHTMLChunker_PreOrder(t *testing.T) {
	src := `<!DOCTYPE html><html><head></head><body><!-- note --><div class="a" id="x"><p>Hello</p> <span>World</span></div></body></html>`

	chunks, err := HTMLChunker{}.Chunk(src)
	require.NoError(t, err)

	var tags []string
	var texts []string
	for _, c := range chunks {
		switch c.Kind {
		case types.KindHTML:
			tags = append(tags, c.Metadata.String(types.MetaTagName))
		case types.KindText:
			texts = append(texts, c.Content)
		}
	}

	assert.Equal(t, []string{"html", "head", "body", "div", "p", "span"}, tags)
	assert.Equal(t, []string{"Hello", "World"}, texts)

	for _, c := range chunks {
		if c.Metadata.String(types.MetaTagName) == "div" {
			assert.Equal(t, `<div class="a" id="x"><p>Hello</p> <span>World</span></div>`, c.Content)
			assert.Equal(t, []string{"class=a", "id=x"}, c.Metadata[types.MetaAttributes])
		}
	}
}

func TestHTMLChunker_Duplication(t *testing.T) {
	chunks, err := HTMLChunker{}.Chunk("<p>same</p>")
	require.NoError(t, err)

	count := 0
	for _, c := range chunks {
		if strings.Contains(c.Content, "same") {
			count++
		}
	}
	// the p element and its text node both carry the text
	assert.Equal(t, 2, count)
}

func TestHTMLChunker_Fragment(t *testing.T) {
	chunks, err := HTMLChunker{}.Chunk(`<div class="a">hi</div>`)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, types.KindHTML, chunks[0].Kind)
	assert.Equal(t, `<div class="a">hi</div>`, chunks[0].Content)
	assert.Equal(t, "div", chunks[0].Metadata.String(types.MetaTagName))
	assert.Equal(t, []string{"class=a"}, chunks[0].Metadata[types.MetaAttributes])

	assert.Equal(t, types.KindText, chunks[1].Kind)
	assert.Equal(t, "hi", chunks[1].Content)
}

func TestHTMLChunker_ImpliedElementsSkipped(t *testing.T) {
	chunks, err := HTMLChunker{}.Chunk("<!DOCTYPE html><title>T</title><p>body text</p>")
	require.NoError(t, err)

	var tags []string
	for _, c := range chunks {
		if c.Kind == types.KindHTML {
			tags = append(tags, c.Metadata.String(types.MetaTagName))
		}
	}
	assert.Equal(t, []string{"title", "p"}, tags)
}

func TestMarkdownChunker_Blocks(t *testing.T) {
	src := "# Title\n\nFirst paragraph here.\n\n- item one\n- item two\n\n```go\nfmt.Println(1)\n```\n\n> quoted\n"

	m := NewMarkdownChunker()
	chunks := m.Chunk(src, 1000)
	require.Len(t, chunks, 1)
	assert.Equal(t, strings.TrimSpace(src), chunks[0].Content)
	assert.Equal(t, "Title", chunks[0].Metadata[MetaHeading])
	assert.Equal(t, types.KindMarkdown, chunks[0].Kind)
}

func TestMarkdownChunker_Flush(t *testing.T) {
	src := "# One\n\nalpha beta gamma\n\n# Two\n\ndelta epsilon zeta\n"

	m := NewMarkdownChunker()
	blocks := m.blocks([]byte(src))
	require.Len(t, blocks, 4)
	assert.Equal(t, "# One", blocks[0].content)
	assert.Equal(t, "delta epsilon zeta", blocks[3].content)

	// each heading estimates to 3 and each paragraph to 3
	chunks := m.Chunk(src, 6)
	require.Len(t, chunks, 2)
	assert.Equal(t, "# One\n\nalpha beta gamma", chunks[0].Content)
	assert.Equal(t, "One", chunks[0].Metadata[MetaHeading])
	assert.Equal(t, "# Two\n\ndelta epsilon zeta", chunks[1].Content)
	assert.Equal(t, "Two", chunks[1].Metadata[MetaHeading])
}

func TestMarkdownChunker_FencedBlockStart(t *testing.T) {
	src := "Intro.\n\n```\ncode line\n```\n"

	m := NewMarkdownChunker()
	blocks := m.blocks([]byte(src))
	require.Len(t, blocks, 2)
	assert.Equal(t, "```\ncode line\n```", blocks[1].content)
}

func TestMarkdownChunker_OversizeBlock(t *testing.T) {
	long := strings.Repeat("word ", 50)
	m := NewMarkdownChunker()
	chunks := m.Chunk("short\n\n"+long, 10)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.TrimSpace(long), chunks[1].Content)
}

func TestPlainTextChunker(t *testing.T) {
	chunks := PlainTextChunker{}.Chunk("first\n\n  second  \n\t\nthird")
	require.Len(t, chunks, 3)
	assert.Equal(t, "second", chunks[1].Content)
	assert.Equal(t, 3, chunks[1].Metadata[types.MetaLineNumber])
	assert.Equal(t, 5, chunks[2].Metadata[types.MetaLineNumber])
}
