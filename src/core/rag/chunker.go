package rag

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	StrategyFixed    = "fixed"
	StrategySentence = "sentence"
)

// ChunkConfig controls how document text is split before embedding.
type ChunkConfig struct {
	Size     int    // maximum characters per chunk
	Overlap  int    // characters shared between adjacent chunks, 0 <= Overlap < Size
	Strategy string // StrategyFixed or StrategySentence
}

func (c ChunkConfig) validate() error {
	if c.Size <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("chunk size must be positive, got %d", c.Size)}
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return &ConfigurationError{Reason: fmt.Sprintf("chunk overlap %d must be in [0, %d)", c.Overlap, c.Size)}
	}
	switch c.Strategy {
	case StrategyFixed, StrategySentence:
		return nil
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("unknown splitting strategy %q", c.Strategy)}
	}
}

// Piece is one chunk of text prior to embedding, ordered within its document.
type Piece struct {
	Index int
	Text  string
}

// SplitText splits text into ordered pieces covering the whole document.
// Splitting is deterministic: the same text and configuration always produce
// identical boundaries.
func SplitText(text string, cfg ChunkConfig) ([]Piece, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	var spans []string
	var err error
	switch cfg.Strategy {
	case StrategySentence:
		spans, err = splitSentenceAware(text, cfg)
	default:
		spans = splitFixed(text, cfg)
	}
	if err != nil {
		return nil, err
	}

	pieces := make([]Piece, 0, len(spans))
	for i, s := range spans {
		pieces = append(pieces, Piece{Index: i, Text: s})
	}
	return pieces, nil
}

// splitFixed slides a rune window of cfg.Size with a step of Size-Overlap.
func splitFixed(text string, cfg ChunkConfig) []string {
	runes := []rune(text)
	step := cfg.Size - cfg.Overlap

	var spans []string
	for start := 0; start < len(runes); start += step {
		end := start + cfg.Size
		if end > len(runes) {
			end = len(runes)
		}
		spans = append(spans, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return spans
}

func splitSentenceAware(text string, cfg ChunkConfig) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.Size),
		textsplitter.WithChunkOverlap(cfg.Overlap),
	)
	spans, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	return spans, nil
}
