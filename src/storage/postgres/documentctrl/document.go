package documentctrl

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Document struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	SourceURI  string    `gorm:"not null;uniqueIndex;column:source_uri" json:"source_uri"`
	MinioURL   string    `gorm:"not null;column:minio_url" json:"minio_url"` // bucket name + object name
	ChunkCount int       `gorm:"not null;column:chunk_count" json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Chunk struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	DocumentID int64     `gorm:"not null;index" json:"document_id"`
	Position   int       `gorm:"not null;column:chunk_position" json:"position"`
	Content    string    `gorm:"not null" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type DocumentService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewDocumentService(db *gorm.DB) (*DocumentService, error) {
	node, err := snowflake.NewNode(2) // Node number 2 for documents and chunks
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &DocumentService{
		db:        db,
		snowflake: node,
	}, nil
}

// NewID mints a fresh snowflake, used for documents and chunks alike.
func (s *DocumentService) NewID() int64 {
	return s.snowflake.Generate().Int64()
}

func (s *DocumentService) Create(ctx context.Context, id int64, sourceURI, minioURL string, chunkCount int) (*Document, error) {
	doc := &Document{
		ID:         id,
		SourceURI:  sourceURI,
		MinioURL:   minioURL,
		ChunkCount: chunkCount,
	}

	result := s.db.WithContext(ctx).Create(doc)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create document: %v", result.Error)
	}

	return doc, nil
}

func (s *DocumentService) GetByID(ctx context.Context, id int64) (*Document, error) {
	var doc Document
	result := s.db.WithContext(ctx).First(&doc, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %v", result.Error)
	}
	return &doc, nil
}

func (s *DocumentService) GetBySourceURI(ctx context.Context, sourceURI string) (*Document, error) {
	var doc Document
	result := s.db.WithContext(ctx).Where("source_uri = ?", sourceURI).First(&doc)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %v", result.Error)
	}
	return &doc, nil
}

func (s *DocumentService) List(ctx context.Context) ([]Document, error) {
	var docs []Document
	result := s.db.WithContext(ctx).Order("created_at desc").Find(&docs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list documents: %v", result.Error)
	}
	return docs, nil
}

func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&Document{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete document: %v", result.Error)
	}
	return nil
}

func (s *DocumentService) CreateChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Create(&chunks)
	if result.Error != nil {
		return fmt.Errorf("failed to create chunks: %v", result.Error)
	}
	return nil
}

func (s *DocumentService) GetChunksByDocumentID(ctx context.Context, documentID int64) ([]Chunk, error) {
	var chunks []Chunk
	result := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_position asc").
		Find(&chunks)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get chunks: %v", result.Error)
	}
	return chunks, nil
}

// DeleteChunksByDocumentID removes the chunk rows of a document before it is
// re-ingested.
func (s *DocumentService) DeleteChunksByDocumentID(ctx context.Context, documentID int64) error {
	result := s.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&Chunk{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete chunks: %v", result.Error)
	}
	return nil
}
