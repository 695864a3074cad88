// Package indexer implements the write path of the retrieval pipeline.
//
// The indexer turns uploaded files into stored points: the dispatcher
// chunks the file, every chunk is embedded, and points are upserted into
// one of two collections depending on their content kind.
//
// # Basic Usage
//
//	disp, _ := dispatch.New(dispatch.Options{})
//	idx := indexer.New(backend, emb, disp, indexer.Config{})
//
//	report, err := idx.IngestFile(ctx, data, "guide.pdf", func(line string) {
//	    fmt.Println(line)
//	})
//
// # Collections
//
// Chunks of kind code, and any chunk whose content starts with a fence
// marker, go to the code collection (default "code_snippets"). Everything
// else goes to the prose collection (default "data_history"). A point is
// written once and never moves between collections.
//
// # Batching
//
// UpsertChunks processes chunks in batches of BatchSize (default 200),
// strictly in order:
//
//	for each batch:
//	    embed every chunk (at most EmbedConcurrency calls in flight)
//	    one Upsert(wait=true) per collection the batch touches
//
// Embeddings are placed by index so point order always matches chunk
// order. The stored points do not depend on the batch size.
//
// # Payload
//
// Each point payload is built in this order, later keys overwriting
// earlier ones:
//
//	sourceId, chunkIndex, caller metadata, chunk metadata, content, type
//
// # Point IDs
//
// IDs are random UUIDs by default, so re-ingesting a file duplicates its
// points. With IDStrategy "content" the id is a name-based UUID of
// sourceId|chunkIndex|content and re-ingestion overwrites in place.
//
// # Error Handling
//
// A failed batch stops the call with a *BatchError carrying the chunk
// range. Batches before it stay committed. A batch holding both prose and
// code is written with one upsert per collection, so it can be half applied;
// the partial result counts the committed collection and BatchError.Collection
// names the one that failed:
//
//	var be *indexer.BatchError
//	if errors.As(err, &be) {
//	    log.Printf("chunks %d-%d not stored", be.Start, be.End)
//	}
//	errors.Is(err, types.ErrStoreWrite)       // backend write failed
//	errors.Is(err, types.ErrEmbeddingFailure) // embedding call failed
//
// Two concurrent ingestions of the same file name are rejected with
// ErrIngestInProgress.
package indexer
