package rag

import (
	"context"
	"fmt"

	"evalrag/src/infrastructure/log"
)

const DefaultRetrievalDepth = 5

// Pipeline composes retrieval, prompt construction and generation into a
// single Ask operation. The evaluation engine reuses it verbatim so measured
// quality reflects the serving path.
type Pipeline struct {
	retriever *Retriever
	prompts   *PromptBuilder
	generator *Generator
	defaultK  int
}

func NewPipeline(retriever *Retriever, prompts *PromptBuilder, generator *Generator, defaultK int) *Pipeline {
	if defaultK <= 0 {
		defaultK = DefaultRetrievalDepth
	}
	return &Pipeline{
		retriever: retriever,
		prompts:   prompts,
		generator: generator,
		defaultK:  defaultK,
	}
}

// Ask answers a query with retrieval-augmented generation. k <= 0 uses the
// pipeline default.
func (p *Pipeline) Ask(ctx context.Context, query string, k int) (*AnswerResult, error) {
	if k <= 0 {
		k = p.defaultK
	}

	contexts, err := p.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}

	prompt, err := p.prompts.Build(query, contexts)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	generation, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	log.Debug("answered query",
		"context_count", len(contexts),
		"latency_ms", generation.LatencyMs,
		"completion_tokens", generation.Usage.CompletionTokens)

	return &AnswerResult{
		Query:     query,
		Answer:    generation.Text,
		Contexts:  contexts,
		LatencyMs: generation.LatencyMs,
		Usage:     generation.Usage,
	}, nil
}
