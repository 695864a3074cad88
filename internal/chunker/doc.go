// Package chunker splits documents into bounded units for embedding.
//
// Five chunkers cover the supported inputs:
//
//   - TextChunker: fenced code blocks first, then fixed windows of
//     cl100k_base tokens over the remaining prose
//   - CodeChunker: one chunk per top-level declaration (see package parser)
//   - HTMLChunker: one chunk per text node and per element, pre-order
//   - MarkdownChunker: block-level units grouped under an estimated bound
//   - PlainTextChunker: one chunk per non-blank line
//
// # Basic Usage
//
//	tc, err := chunker.NewTextChunker()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, piece := range tc.Chunk(pdfText, chunker.DefaultMaxTokens) {
//	    fmt.Println(piece)
//	}
//
// # Token Windows
//
// The prose window has no overlap. Concatenating the windows reproduces the
// prose exactly; a window may end in the middle of a multi-byte character
// since boundaries follow tokens, not runes. Fenced blocks are never split,
// whatever their size.
//
// # Code Fallback
//
// When a source file cannot be parsed, CodeChunker returns the whole file as
// one chunk with metadata fallback=true. A parsed file with no top-level
// declarations is also returned whole, without the fallback marker.
//
// # HTML Duplication
//
// Every element yields a chunk holding its serialized subtree, and traversal
// continues into its children, so text appears once per enclosing element
// plus once as a text chunk. Fragments are parsed in a body context, so no
// html, head or body chunk is emitted unless the source contains the tag.
package chunker
