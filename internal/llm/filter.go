package llm

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// FilterSystemPrompt asks the model for a JSON metadata filter
const FilterSystemPrompt = `You are an assistant that extracts structured metadata filters from natural language developer queries.
Return ONLY a JSON object with the following keys:
- framework: (string)
- tags: (array of strings)
- language: (string, e.g., "js", "tsx")
- filename: (string)
- type: ("code" or "text")

Examples:

Query: "Show Oracle JET dialog code using TSX"
{"framework": "oraclejet", "tags": ["dialog"], "language": "tsx", "type": "code"}

Query: "Where is the PDF about deployment steps?"
{"tags": ["deployment"], "type": "text"}

If any field is not clear, omit it. DO NOT explain anything. DO NOT return text outside the JSON.`

// filterKeys are the payload keys a filter may constrain
var filterKeys = map[string]bool{
	types.MetaFramework: true,
	types.MetaTags:      true,
	types.MetaLanguage:  true,
	types.MetaFilename:  true,
	types.MetaType:      true,
}

// Inferrer asks a Generator for a metadata filter
type Inferrer struct {
	gen Generator
}

// NewFilterInferrer creates an Inferrer backed by gen
func NewFilterInferrer(gen Generator) *Inferrer {
	return &Inferrer{gen: gen}
}

// InferFilter implements FilterInferrer
func (i *Inferrer) InferFilter(ctx context.Context, query string) (types.Filter, bool) {
	raw, err := Collect(ctx, i.gen, Prompt{System: FilterSystemPrompt, Question: query})
	if err != nil {
		log.Printf("Failed to infer filters: %v", err)
		return types.Filter{}, false
	}

	f, ok := ParseFilter(raw)
	if !ok {
		log.Printf("Ignoring unparseable filter response: %q", raw)
	}
	return f, ok
}

// ParseFilter decodes the first JSON object in raw into a filter over the
// recognized payload keys
func ParseFilter(raw string) (types.Filter, bool) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return types.Filter{}, false
	}

	var meta map[string]any
	dec := json.NewDecoder(strings.NewReader(raw[start:]))
	if err := dec.Decode(&meta); err != nil {
		return types.Filter{}, false
	}

	for k := range meta {
		if !filterKeys[k] {
			delete(meta, k)
		}
	}

	f := types.FilterFromMetadata(meta)
	if f.IsEmpty() {
		return types.Filter{}, false
	}
	return *f, true
}
