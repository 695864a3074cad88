package parser

import (
	"strings"
)

// comment is a source comment with its byte span
type comment struct {
	text       string
	start, end int
}

type commentList []comment

// newComment strips the markers of a raw line or block comment
func newComment(raw string, start, end int) comment {
	if strings.HasPrefix(raw, "//") {
		return comment{text: strings.TrimSpace(raw[2:]), start: start, end: end}
	}
	body := strings.TrimSuffix(strings.TrimPrefix(raw, "/*"), "*/")
	return comment{text: cleanBlock(body), start: start, end: end}
}

// scanComments finds line and block comments for builds without
// tree-sitter, skipping string and template literals. Regular expression
// literals are not recognized, so a "//" inside one starts a comment.
func scanComments(src string) commentList {
	var out commentList
	for i := 0; i < len(src); {
		switch c := src[i]; {
		case c == '"' || c == '\'' || c == '`':
			i = skipString(src, i, c)
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src)
			} else {
				end += i
			}
			out = append(out, newComment(src[i:end], i, end))
			i = end
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				end = len(src)
			} else {
				end += i + 4
			}
			out = append(out, newComment(src[i:end], i, end))
			i = end
		default:
			i++
		}
	}
	return out
}

// skipString returns the offset just past the literal opened at i
func skipString(src string, i int, quote byte) int {
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		case '\n':
			if quote != '`' {
				return j + 1
			}
		}
	}
	return len(src)
}

// cleanBlock strips the leading asterisks of a block comment
func cleanBlock(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// leading returns the contiguous comments that end right before offset,
// separated from it and from each other only by whitespace
func (cl commentList) leading(src string, offset int) []string {
	var out []string
	pos := offset
	for i := len(cl) - 1; i >= 0; i-- {
		c := cl[i]
		if c.end > pos {
			continue
		}
		if strings.TrimSpace(src[c.end:pos]) != "" {
			break
		}
		out = append([]string{c.text}, out...)
		pos = c.start
	}
	return out
}

// within returns the comments fully contained in [start, end)
func (cl commentList) within(start, end int) []string {
	var out []string
	for _, c := range cl {
		if c.start >= start && c.end <= end {
			out = append(out, c.text)
		}
	}
	return out
}
