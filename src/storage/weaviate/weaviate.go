package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"evalrag/src/core/rag"
)

// ChunkClass is the class holding one object per indexed chunk. Vectors are
// supplied by the caller, never by a Weaviate vectorizer module.
const ChunkClass = "EvalChunk"

const DefaultQueryLimit = 20

// Index stores chunk vectors in Weaviate and serves nearest-neighbour search
// over them.
type Index struct {
	client *weaviate.Client
	class  string
}

func NewIndex(client *weaviate.Client) *Index {
	return &Index{
		client: client,
		class:  ChunkClass,
	}
}

// EnsureClass creates the chunk class unless it already exists.
func (w *Index) EnsureClass(ctx context.Context) error {
	exists, err := w.classExists(ctx, w.class)
	if err != nil {
		return fmt.Errorf("failed to check if class exists: %w", err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:      w.class,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "chunkId", DataType: []string{"int"}},
			{Name: "documentId", DataType: []string{"int"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "position", DataType: []string{"int"}},
		},
	}

	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create Weaviate class: %w", err)
	}
	return nil
}

func (w *Index) classExists(ctx context.Context, className string) (bool, error) {
	schema, err := w.client.Schema().Getter().Do(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get schema: %w", err)
	}

	for _, class := range schema.Classes {
		if class.Class == className {
			return true, nil
		}
	}

	return false, nil
}

// AddChunks writes the chunks and their vectors in a single batch.
func (w *Index) AddChunks(ctx context.Context, chunks []rag.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	objs := make([]*models.Object, len(chunks))
	for i, chunk := range chunks {
		objs[i] = &models.Object{
			Class:  w.class,
			Vector: chunk.Embedding,
			Properties: map[string]interface{}{
				"chunkId":    chunk.ID,
				"documentId": chunk.DocumentID,
				"content":    chunk.Text,
				"position":   chunk.Position,
			},
		}
	}

	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to batch add chunks: %w", err)
	}
	if len(resp) == 0 {
		return fmt.Errorf("batch operation returned no results")
	}

	return nil
}

// Search returns the k nearest chunks by vector similarity, scored by
// certainty.
func (w *Index) Search(ctx context.Context, vector []float32, k int) ([]rag.RetrievedContext, error) {
	if k <= 0 {
		k = DefaultQueryLimit
	}

	fields := []graphql.Field{
		{Name: "chunkId"},
		{Name: "content"},
		{Name: "_additional { certainty }"},
	}

	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	result, err := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("vector query returned errors: %v", result.Errors[0].Message)
	}

	var contexts []rag.RetrievedContext
	if data, ok := result.Data["Get"].(map[string]interface{}); ok {
		if objects, ok := data[w.class].([]interface{}); ok {
			for _, obj := range objects {
				objMap, ok := obj.(map[string]interface{})
				if !ok {
					continue
				}

				rc := rag.RetrievedContext{}
				if id, ok := objMap["chunkId"].(float64); ok {
					rc.ChunkID = int64(id)
				}
				if content, ok := objMap["content"].(string); ok {
					rc.Text = content
				}
				if additional, ok := objMap["_additional"].(map[string]interface{}); ok {
					if certainty, ok := additional["certainty"].(float64); ok {
						rc.Score = certainty
					}
				}

				contexts = append(contexts, rc)
			}
		}
	}

	return contexts, nil
}

// Size reports the number of indexed chunks via a meta count aggregate.
func (w *Index) Size(ctx context.Context) (int, error) {
	meta := graphql.Field{
		Name:   "meta",
		Fields: []graphql.Field{{Name: "count"}},
	}

	result, err := w.client.GraphQL().Aggregate().
		WithClassName(w.class).
		WithFields(meta).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate class: %w", err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("aggregate query returned errors: %v", result.Errors[0].Message)
	}

	if data, ok := result.Data["Aggregate"].(map[string]interface{}); ok {
		if rows, ok := data[w.class].([]interface{}); ok && len(rows) > 0 {
			if row, ok := rows[0].(map[string]interface{}); ok {
				if meta, ok := row["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}

	return 0, fmt.Errorf("aggregate response missing meta count")
}

// DeleteByDocumentID removes every indexed chunk of a document. Used before
// re-ingesting a document so stale chunks never survive.
func (w *Index) DeleteByDocumentID(ctx context.Context, documentID int64) error {
	where := filters.Where().
		WithPath([]string{"documentId"}).
		WithOperator(filters.Equal).
		WithValueInt(documentID)

	_, err := w.client.Batch().ObjectsBatchDeleter().
		WithClassName(w.class).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for document %d: %w", documentID, err)
	}

	return nil
}
