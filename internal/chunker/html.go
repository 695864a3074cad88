package chunker

import (
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// HTMLChunker walks a parsed document and emits a chunk per text node
// and per element
type HTMLChunker struct{}

// Chunk parses src and returns chunks in pre-order. Elements are emitted
// with their full serialized subtree before their children are visited.
// Input without an <html>, <head> or <body> tag or a doctype is parsed as
// a body fragment; otherwise the html, head and body elements the parser
// implies without a source tag are walked but not emitted.
func (HTMLChunker) Chunk(src string) ([]types.Chunk, error) {
	explicit := explicitTags(src)

	var roots []*html.Node
	if len(explicit) == 0 {
		nodes, err := html.ParseFragment(strings.NewReader(src), &html.Node{
			Type:     html.ElementNode,
			Data:     "body",
			DataAtom: atom.Body,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to parse html fragment: %w", err)
		}
		roots = nodes
	} else {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse html: %w", err)
		}
		roots = doc.Nodes
	}

	var chunks []types.Chunk
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				chunks = append(chunks, types.NewChunk(text, types.KindText, nil))
			}
		case html.ElementNode:
			if implied(n, explicit) {
				break
			}
			outer, err := goquery.OuterHtml(goquery.NewDocumentFromNode(n).Selection)
			if err != nil {
				log.Printf("Skipping <%s> element: %v", n.Data, err)
			} else if strings.TrimSpace(outer) != "" {
				chunks = append(chunks, types.NewChunk(outer, types.KindHTML, types.Metadata{
					types.MetaTagName:    n.Data,
					types.MetaAttributes: attributes(n),
				}))
			}
		case html.CommentNode, html.DoctypeNode:
			return
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	for _, root := range roots {
		walk(root)
	}
	return chunks, nil
}

// explicitTags reports which document-level tags appear in src. A doctype
// counts as "!doctype". An empty result means src is a fragment.
func explicitTags(src string) map[string]bool {
	found := make(map[string]bool)
	z := html.NewTokenizer(strings.NewReader(src))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return found
		case html.DoctypeToken:
			found["!doctype"] = true
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch tag := string(name); tag {
			case "html", "head", "body":
				found[tag] = true
			}
		}
	}
}

// implied reports whether n is a document-level element the parser
// inserted without a matching source tag
func implied(n *html.Node, explicit map[string]bool) bool {
	switch n.DataAtom {
	case atom.Html, atom.Head, atom.Body:
		return !explicit[n.Data]
	}
	return false
}

// attributes renders element attributes as key=value pairs
func attributes(n *html.Node) []string {
	attrs := make([]string, 0, len(n.Attr))
	for _, a := range n.Attr {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + key
		}
		attrs = append(attrs, key+"="+a.Val)
	}
	return attrs
}
