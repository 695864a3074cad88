// Package embedder generates vector embeddings for document chunks.
//
// Four providers implement the Embedder interface:
//
//   - Ollama (default): POST {base}/api/embeddings, one text per call,
//     model mxbai-embed-large (1024 dimensions)
//   - OpenAI and Jina: POST {base}/v1/embeddings with batched input
//   - Local: deterministic hash-derived unit vectors, for tests and offline use
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider:  "ollama",
//	    BaseURL:   "http://localhost:11434",
//	    CacheSize: 10000,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "How do I open a dialog?",
//	})
//	fmt.Printf("Vector dimension: %d\n", len(result.Vector))
//
// # Caching
//
// Providers share an optional LRU cache keyed by model and SHA-256 of the
// text (see CacheKey). Cached vectors are returned as copies.
//
// # Error Handling
//
// Provider failures are wrapped with ErrProviderFailed. Requests are
// attempted once by default; Config.MaxRetries raises the attempt count and
// enables exponential backoff between attempts. Context cancellation stops
// retrying immediately.
//
//	_, err := emb.GenerateBatch(ctx, req)
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // surface as an embedding failure
//	}
package embedder
