package rag_test

import (
	"errors"
	"strings"
	"testing"

	"evalrag/src/core/rag"
)

func TestSplitTextFixed(t *testing.T) {
	tests := []struct {
		name string
		text string
		cfg  rag.ChunkConfig
		want []string
	}{
		{
			name: "exact multiple without overlap",
			text: "abcdefgh",
			cfg:  rag.ChunkConfig{Size: 4, Overlap: 0, Strategy: rag.StrategyFixed},
			want: []string{"abcd", "efgh"},
		},
		{
			name: "trailing remainder",
			text: "abcdefghij",
			cfg:  rag.ChunkConfig{Size: 4, Overlap: 0, Strategy: rag.StrategyFixed},
			want: []string{"abcd", "efgh", "ij"},
		},
		{
			name: "with overlap",
			text: "abcdefgh",
			cfg:  rag.ChunkConfig{Size: 4, Overlap: 2, Strategy: rag.StrategyFixed},
			want: []string{"abcd", "cdef", "efgh"},
		},
		{
			name: "text shorter than chunk size",
			text: "abc",
			cfg:  rag.ChunkConfig{Size: 10, Overlap: 2, Strategy: rag.StrategyFixed},
			want: []string{"abc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pieces, err := rag.SplitText(tt.text, tt.cfg)
			if err != nil {
				t.Fatalf("SplitText returned error: %v", err)
			}
			if len(pieces) != len(tt.want) {
				t.Fatalf("got %d pieces, want %d", len(pieces), len(tt.want))
			}
			for i, p := range pieces {
				if p.Text != tt.want[i] {
					t.Errorf("piece %d = %q, want %q", i, p.Text, tt.want[i])
				}
				if p.Index != i {
					t.Errorf("piece %d has index %d", i, p.Index)
				}
			}
		})
	}
}

func TestSplitTextCoversWholeDocument(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 20)
	cfg := rag.ChunkConfig{Size: 100, Overlap: 10, Strategy: rag.StrategyFixed}

	pieces, err := rag.SplitText(text, cfg)
	if err != nil {
		t.Fatalf("SplitText returned error: %v", err)
	}

	// Without overlap trimming, stitching step-sized prefixes reconstructs the text.
	step := cfg.Size - cfg.Overlap
	var rebuilt strings.Builder
	for i, p := range pieces {
		runes := []rune(p.Text)
		if i == len(pieces)-1 {
			rebuilt.WriteString(p.Text)
			break
		}
		rebuilt.WriteString(string(runes[:step]))
	}
	if rebuilt.String() != text {
		t.Error("chunks do not cover the whole document")
	}
}

func TestSplitTextDeterministic(t *testing.T) {
	text := strings.Repeat("Paris is the capital of France. It is known for the Eiffel Tower. ", 30)

	for _, strategy := range []string{rag.StrategyFixed, rag.StrategySentence} {
		t.Run(strategy, func(t *testing.T) {
			cfg := rag.ChunkConfig{Size: 120, Overlap: 20, Strategy: strategy}

			first, err := rag.SplitText(text, cfg)
			if err != nil {
				t.Fatalf("first split failed: %v", err)
			}
			second, err := rag.SplitText(text, cfg)
			if err != nil {
				t.Fatalf("second split failed: %v", err)
			}

			if len(first) != len(second) {
				t.Fatalf("piece counts differ: %d vs %d", len(first), len(second))
			}
			for i := range first {
				if first[i] != second[i] {
					t.Errorf("piece %d differs between runs", i)
				}
			}
		})
	}
}

func TestSplitTextConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  rag.ChunkConfig
	}{
		{"overlap equals size", rag.ChunkConfig{Size: 10, Overlap: 10, Strategy: rag.StrategyFixed}},
		{"overlap exceeds size", rag.ChunkConfig{Size: 10, Overlap: 15, Strategy: rag.StrategyFixed}},
		{"negative overlap", rag.ChunkConfig{Size: 10, Overlap: -1, Strategy: rag.StrategyFixed}},
		{"zero size", rag.ChunkConfig{Size: 0, Overlap: 0, Strategy: rag.StrategyFixed}},
		{"unknown strategy", rag.ChunkConfig{Size: 10, Overlap: 0, Strategy: "semantic"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rag.SplitText("some text", tt.cfg)
			var cfgErr *rag.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("got %v, want ConfigurationError", err)
			}
		})
	}
}

func TestSplitTextEmptyInput(t *testing.T) {
	pieces, err := rag.SplitText("", rag.ChunkConfig{Size: 10, Overlap: 0, Strategy: rag.StrategyFixed})
	if err != nil {
		t.Fatalf("SplitText returned error: %v", err)
	}
	if len(pieces) != 0 {
		t.Errorf("got %d pieces for empty text, want 0", len(pieces))
	}
}
