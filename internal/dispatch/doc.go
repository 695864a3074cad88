// Package dispatch classifies input files and routes them to a chunker.
//
// Classification is by case-insensitive extension:
//
//	.pdf                               pdf
//	.js .jsx .ts .tsx .mjs .cjs        javascript
//	.go                                go
//	.html .htm                         html
//	.md .markdown                      markdown
//	.txt .text .log                    text
//
// Anything else is unsupported and Parse returns types.ErrUnsupportedFileType
// without reading the data. A supported file that yields no non-blank chunk
// returns types.ErrNoValidChunks.
//
// PDF text is extracted with tabula, whitespace-normalised and handed to the
// token-bounded text chunker. Fenced blocks in the extracted text become code
// chunks; everything else is text.
package dispatch
