package corpus

import (
	"context"
	"fmt"
	"sync"

	"evalrag/src/core/rag"
	"evalrag/src/infrastructure/log"
	"evalrag/src/storage/minioctrl"
	"evalrag/src/storage/postgres/documentctrl"
)

const DefaultEmbedWorkers = 4

// Indexer is the write side of the vector index.
type Indexer interface {
	AddChunks(ctx context.Context, chunks []rag.Chunk) error
	DeleteByDocumentID(ctx context.Context, documentID int64) error
}

// Service ingests documents: split, embed, index, and record. Re-ingesting a
// source URI replaces its chunks so the index never serves stale content.
type Service struct {
	docs     *documentctrl.DocumentService
	minio    *minioctrl.MinioService
	embedder rag.Embedder
	index    Indexer
	chunkCfg rag.ChunkConfig
	workers  int
	progress func(done, total int)
}

type Option func(*Service)

// WithEmbedWorkers sets the embedding concurrency.
func WithEmbedWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithProgress registers a callback invoked after each chunk is embedded.
func WithProgress(fn func(done, total int)) Option {
	return func(s *Service) { s.progress = fn }
}

func NewService(
	docs *documentctrl.DocumentService,
	minio *minioctrl.MinioService,
	embedder rag.Embedder,
	index Indexer,
	chunkCfg rag.ChunkConfig,
	opts ...Option,
) *Service {
	s := &Service{
		docs:     docs,
		minio:    minio,
		embedder: embedder,
		index:    index,
		chunkCfg: chunkCfg,
		workers:  DefaultEmbedWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestText splits, embeds and indexes one document and records it in
// Postgres and MinIO.
func (s *Service) IngestText(ctx context.Context, sourceURI string, text string) (*documentctrl.Document, error) {
	pieces, err := rag.SplitText(text, s.chunkCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to split document: %w", err)
	}
	if len(pieces) == 0 {
		return nil, fmt.Errorf("document %s is empty", sourceURI)
	}

	if err := s.replaceExisting(ctx, sourceURI); err != nil {
		return nil, err
	}

	documentID := s.docs.NewID()
	chunks, err := s.embedPieces(ctx, documentID, pieces)
	if err != nil {
		return nil, err
	}

	if err := s.index.AddChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to index chunks: %w", err)
	}

	if err := s.minio.EnsureBucketExists(ctx, minioctrl.DocumentsBucket); err != nil {
		return nil, fmt.Errorf("failed to ensure documents bucket exists: %w", err)
	}
	objectName := fmt.Sprintf("%d", documentID)
	if err := s.minio.PutObject(ctx, minioctrl.DocumentsBucket, objectName, []byte(text)); err != nil {
		return nil, fmt.Errorf("failed to store document content: %w", err)
	}

	minioURL := fmt.Sprintf("%s/%s", minioctrl.DocumentsBucket, objectName)
	doc, err := s.docs.Create(ctx, documentID, sourceURI, minioURL, len(chunks))
	if err != nil {
		return nil, err
	}

	rows := make([]documentctrl.Chunk, len(chunks))
	for i, chunk := range chunks {
		rows[i] = documentctrl.Chunk{
			ID:         chunk.ID,
			DocumentID: chunk.DocumentID,
			Position:   chunk.Position,
			Content:    chunk.Text,
		}
	}
	if err := s.docs.CreateChunks(ctx, rows); err != nil {
		return nil, err
	}

	log.Info("document ingested", "source_uri", sourceURI, "document_id", documentID, "chunks", len(chunks))
	return doc, nil
}

// replaceExisting removes a previously ingested version of the source, both
// the index entries and the metadata rows.
func (s *Service) replaceExisting(ctx context.Context, sourceURI string) error {
	existing, err := s.docs.GetBySourceURI(ctx, sourceURI)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	if err := s.index.DeleteByDocumentID(ctx, existing.ID); err != nil {
		return fmt.Errorf("failed to remove stale chunks from index: %w", err)
	}
	if err := s.docs.DeleteChunksByDocumentID(ctx, existing.ID); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, existing.ID); err != nil {
		return err
	}

	log.Info("replaced existing document", "source_uri", sourceURI, "document_id", existing.ID)
	return nil
}

type embedJob struct {
	index int
	piece rag.Piece
}

type embedResult struct {
	index int
	chunk rag.Chunk
	err   error
}

// embedPieces embeds the pieces with a bounded worker pool, preserving
// document order in the returned chunks.
func (s *Service) embedPieces(ctx context.Context, documentID int64, pieces []rag.Piece) ([]rag.Chunk, error) {
	jobs := make(chan embedJob)
	results := make(chan embedResult, len(pieces))

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				vector, err := s.embedder.Embed(ctx, job.piece.Text)
				results <- embedResult{
					index: job.index,
					chunk: rag.Chunk{
						ID:         s.docs.NewID(),
						DocumentID: documentID,
						Text:       job.piece.Text,
						Position:   job.piece.Index,
						Embedding:  vector,
					},
					err: err,
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, piece := range pieces {
			select {
			case <-ctx.Done():
				return
			case jobs <- embedJob{index: i, piece: piece}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	chunks := make([]rag.Chunk, len(pieces))
	seen := make([]bool, len(pieces))
	done := 0
	var firstErr error
	for res := range results {
		if res.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to embed chunk %d: %w", res.index, res.err)
		}
		chunks[res.index] = res.chunk
		seen[res.index] = true
		done++
		if s.progress != nil {
			s.progress(done, len(pieces))
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i := range seen {
		if !seen[i] {
			return nil, fmt.Errorf("embedding incomplete: chunk %d missing", i)
		}
	}

	return chunks, nil
}
