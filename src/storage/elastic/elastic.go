package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"evalrag/src/core/rag"
)

// ChunkIndex is the index holding one document per indexed chunk.
const ChunkIndex = "eval_chunks"

// Index is the Elasticsearch rendition of the chunk store, usable behind the
// same retrieval path as the Weaviate one. Dims is the embedding width and
// must match the embedding model.
type Index struct {
	client *elasticsearch.Client
	index  string
	dims   int
}

func NewIndex(client *elasticsearch.Client, dims int) *Index {
	return &Index{
		client: client,
		index:  ChunkIndex,
		dims:   dims,
	}
}

type chunkDoc struct {
	ChunkID    int64     `json:"chunk_id"`
	DocumentID int64     `json:"document_id"`
	Content    string    `json:"content"`
	Position   int       `json:"position"`
	Embedding  []float32 `json:"embedding"`
}

// EnsureIndex creates the chunk index with a dense_vector mapping unless it
// already exists.
func (e *Index) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists(
		[]string{e.index},
		e.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"chunk_id":    map[string]interface{}{"type": "long"},
				"document_id": map[string]interface{}{"type": "long"},
				"content":     map[string]interface{}{"type": "text"},
				"position":    map[string]interface{}{"type": "integer"},
				"embedding": map[string]interface{}{
					"type":       "dense_vector",
					"dims":       e.dims,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	createRes, err := e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("index creation failed: %s", readError(createRes.Body))
	}

	return nil
}

// AddChunks bulk-indexes the chunks, using the chunk ID as document ID so
// re-ingestion overwrites instead of duplicating.
func (e *Index) AddChunks(ctx context.Context, chunks []rag.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, chunk := range chunks {
		action := fmt.Sprintf(`{"index":{"_index":%q,"_id":%q}}`, e.index, strconv.FormatInt(chunk.ID, 10))
		buf.WriteString(action)
		buf.WriteByte('\n')

		doc, err := json.Marshal(chunkDoc{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Content:    chunk.Text,
			Position:   chunk.Position,
			Embedding:  chunk.Embedding,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal chunk %d: %w", chunk.ID, err)
		}
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk index chunks: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk indexing failed: %s", readError(res.Body))
	}

	return nil
}

// Search runs a kNN query over the embedding field and returns the k best
// chunks by cosine similarity.
func (e *Index) Search(ctx context.Context, vector []float32, k int) ([]rag.RetrievedContext, error) {
	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "embedding",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 10,
		},
		"_source": []string{"chunk_id", "content"},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", readError(res.Body))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64  `json:"_score"`
				Source chunkDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	contexts := make([]rag.RetrievedContext, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		contexts = append(contexts, rag.RetrievedContext{
			ChunkID: hit.Source.ChunkID,
			Text:    hit.Source.Content,
			Score:   hit.Score,
		})
	}

	return contexts, nil
}

// Size reports the number of indexed chunks.
func (e *Index) Size(ctx context.Context) (int, error) {
	res, err := e.client.Count(
		e.client.Count.WithContext(ctx),
		e.client.Count.WithIndex(e.index),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("count failed: %s", readError(res.Body))
	}

	var parsed struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}

	return parsed.Count, nil
}

// DeleteByDocumentID removes every indexed chunk of a document.
func (e *Index) DeleteByDocumentID(ctx context.Context, documentID int64) error {
	query := fmt.Sprintf(`{"query":{"term":{"document_id":%d}}}`, documentID)

	res, err := e.client.DeleteByQuery(
		[]string{e.index},
		strings.NewReader(query),
		e.client.DeleteByQuery.WithContext(ctx),
		e.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for document %d: %w", documentID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("delete by query failed: %s", readError(res.Body))
	}

	return nil
}

func readError(r io.Reader) string {
	body, err := io.ReadAll(r)
	if err != nil {
		return "unreadable error body"
	}
	return string(body)
}
