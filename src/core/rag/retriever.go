package rag

import (
	"context"
	"fmt"
	"sort"

	"evalrag/src/infrastructure/log"
)

// Retriever embeds a query and fetches the nearest chunks from the vector
// index. It is read-only and holds no state between calls.
type Retriever struct {
	embedder Embedder
	index    VectorIndex
}

func NewRetriever(embedder Embedder, index VectorIndex) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
	}
}

// Retrieve returns the k most relevant contexts for the query, sorted by
// similarity descending with a stable tie-break on chunk ID. An empty index
// yields an empty result; zero hits from a non-empty index signal corruption.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]RetrievedContext, error) {
	if k < 1 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("retrieval depth k must be >= 1, got %d", k)}
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &RetrievalError{Reason: "failed to embed query", Err: err}
	}

	results, err := r.index.Search(ctx, vector, k)
	if err != nil {
		return nil, &RetrievalError{Reason: "vector index search failed", Err: err}
	}

	if len(results) == 0 {
		size, err := r.index.Size(ctx)
		if err != nil {
			return nil, &RetrievalError{Reason: "vector index unreachable", Err: err}
		}
		if size > 0 {
			return nil, &RetrievalError{Reason: fmt.Sprintf("index holds %d chunks but search returned none", size)}
		}
		log.Debug("retrieval against empty index", "query_length", len(query))
		return []RetrievedContext{}, nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	return results, nil
}
