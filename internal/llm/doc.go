// Package llm provides clients for the generation service.
//
// Two streaming chat backends are supported: Ollama's /api/chat, which
// returns newline-delimited JSON, and OpenAI-compatible
// /v1/chat/completions endpoints, which return server-sent events.
// Both deliver the answer as an ordered channel of fragments:
//
//	stream, err := gen.Stream(ctx, llm.Prompt{Context: ctxText, Question: q})
//	for frag := range stream {
//	    if frag.Err != nil {
//	        return frag.Err
//	    }
//	    fmt.Print(frag.Text)
//	}
//
// Inferrer turns a natural language query into a metadata filter by asking
// a model for a JSON object and keeping only the recognized keys. Any
// failure means "no filter", never an error.
package llm
