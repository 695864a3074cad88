package chunker

import (
	"strings"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// splitFences extracts fenced blocks in one pass over text.
// It returns the blocks, markers included, in document order and the
// remaining prose with the blocks removed. An unterminated fence is
// left in the prose.
func splitFences(text string) (fences []string, prose string) {
	var b strings.Builder
	rest := text
	for {
		open := strings.Index(rest, types.FenceMarker)
		if open < 0 {
			break
		}
		closing := strings.Index(rest[open+len(types.FenceMarker):], types.FenceMarker)
		if closing < 0 {
			break
		}
		end := open + len(types.FenceMarker) + closing + len(types.FenceMarker)

		b.WriteString(rest[:open])
		fences = append(fences, rest[open:end])
		rest = rest[end:]
	}
	b.WriteString(rest)
	return fences, b.String()
}
