// Package searcher implements the read path of the retrieval pipeline.
//
// A query is embedded once and searched against both collections at the
// same time. The two ranked lists are kept apart and rendered into one
// context blob by Assemble, code entries first.
//
// # Basic Usage
//
//	s := searcher.New(backend, emb, searcher.Config{})
//
//	resp, err := s.Query(ctx, searcher.QueryRequest{
//	    Query: "binary search implementation",
//	})
//	fmt.Println(resp.Context)
//
// # Search
//
// Search takes a precomputed vector and issues one backend search per
// collection with the same limit, score threshold and filter:
//
//	results, err := s.Search(ctx, vector, filter, 500, 0.7)
//	// results.Code: best-first hits from the code collection
//	// results.Text: best-first hits from the prose collection
//
// If either search fails the whole call fails with types.ErrStoreSearch.
//
// # Context Assembly
//
// Assemble keeps the top maxPerKind hits of each list and renders them as
//
//	[Code 1]
//	<content>
//
//	[Text 1]
//	<content>
//
// Hits with blank content are skipped. When nothing is left the
// InsufficientInformation sentinel is returned, and Query will not call
// the generator with it.
//
// # Filters
//
// A QueryRequest may carry an explicit filter. Without one, and with
// InferFilters enabled, the configured llm.FilterInferrer is asked to
// derive one from the query text. Inference failures fall back to an
// unfiltered search.
//
// # Caching
//
// Search results are cached in an LRU keyed by query, limit, threshold and
// effective filter, with a TTL (default 5 minutes). Callers that store new
// points should call InvalidateCache.
package searcher
