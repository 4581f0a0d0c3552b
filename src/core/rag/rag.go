package rag

import (
	"context"
)

// Document is a raw text source registered at ingestion time. Immutable once stored.
type Document struct {
	ID        int64             `json:"id"`
	SourceURI string            `json:"source_uri"`
	Text      string            `json:"raw_text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Chunk is the unit of indexing and retrieval. Embedding length is fixed by the
// active embedding configuration.
type Chunk struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	Text       string    `json:"text"`
	Position   int       `json:"position_index"`
	Embedding  []float32 `json:"-"`
}

// RetrievedContext is one search hit, produced per query. Higher score means
// more relevant.
type RetrievedContext struct {
	ChunkID int64   `json:"chunk_id"`
	Text    string  `json:"text"`
	Score   float64 `json:"similarity_score"`
}

// TokenUsage reports token counts for a single model invocation.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// AnswerResult is the output of one Ask call. Contexts are ordered by
// similarity descending.
type AnswerResult struct {
	Query     string             `json:"query"`
	Answer    string             `json:"answer_text"`
	Contexts  []RetrievedContext `json:"contexts"`
	LatencyMs int64              `json:"generation_latency_ms"`
	Usage     TokenUsage         `json:"token_usage"`
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the read side of the chunk index.
type VectorIndex interface {
	// Search returns up to k nearest chunks for the given vector.
	Search(ctx context.Context, vector []float32, k int) ([]RetrievedContext, error)
	// Size returns the number of chunks currently indexed.
	Size(ctx context.Context) (int, error)
}

// GenerateResult is a raw model completion with provider-reported token counts.
type GenerateResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// LLMBackend abstracts the model provider used for generation and judging.
type LLMBackend interface {
	Generate(ctx context.Context, model, system, prompt string) (GenerateResult, error)
}

// Generation is the outcome of one Generator call including elapsed time.
type Generation struct {
	Text      string
	Usage     TokenUsage
	LatencyMs int64
}
