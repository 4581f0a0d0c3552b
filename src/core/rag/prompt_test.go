package rag_test

import (
	"errors"
	"strings"
	"testing"

	"evalrag/src/core/rag"
)

func TestPromptBuilderRendersSlots(t *testing.T) {
	b, err := rag.NewPromptBuilder("Q: {{.Question}}\nC: {{.Context}}")
	if err != nil {
		t.Fatalf("NewPromptBuilder failed: %v", err)
	}

	contexts := []rag.RetrievedContext{
		{ChunkID: 1, Text: "first", Score: 0.9},
		{ChunkID: 2, Text: "second", Score: 0.8},
	}

	prompt, err := b.Build("why?", contexts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !strings.Contains(prompt, "Q: why?") {
		t.Errorf("question slot not rendered: %q", prompt)
	}
	if !strings.Contains(prompt, "first"+rag.DefaultContextSeparator+"second") {
		t.Errorf("contexts not joined in order: %q", prompt)
	}
}

func TestPromptBuilderMissingSlot(t *testing.T) {
	tests := []struct {
		name     string
		tmpl     string
		wantSlot string
	}{
		{"missing context", "Question: {{.Question}}", "context"},
		{"missing question", "Context: {{.Context}}", "question"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rag.NewPromptBuilder(tt.tmpl)
			var tmplErr *rag.TemplateError
			if !errors.As(err, &tmplErr) {
				t.Fatalf("got %v, want TemplateError", err)
			}
			if tmplErr.Slot != tt.wantSlot {
				t.Errorf("slot = %q, want %q", tmplErr.Slot, tt.wantSlot)
			}
		})
	}
}

func TestPromptBuilderInstructionsOptional(t *testing.T) {
	b, err := rag.NewPromptBuilder(
		"{{.Instructions}} {{.Question}} {{.Context}}",
		rag.WithInstructions("Be brief."),
	)
	if err != nil {
		t.Fatalf("NewPromptBuilder failed: %v", err)
	}

	prompt, err := b.Build("q", []rag.RetrievedContext{{Text: "c"}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(prompt, "Be brief.") {
		t.Errorf("instructions not rendered: %q", prompt)
	}

	// Default template works without instructions set.
	if _, err := rag.NewPromptBuilder(""); err != nil {
		t.Errorf("default template rejected: %v", err)
	}
}

func TestPromptBuilderContextBudget(t *testing.T) {
	b, err := rag.NewPromptBuilder(
		"{{.Question}}|{{.Context}}",
		rag.WithMaxContextChars(10),
		rag.WithContextSeparator("+"),
	)
	if err != nil {
		t.Fatalf("NewPromptBuilder failed: %v", err)
	}

	contexts := []rag.RetrievedContext{
		{Text: "12345"},
		{Text: "67890"},
		{Text: "overflowing"},
		{Text: "   "},
	}

	prompt, err := b.Build("q", contexts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got, want := prompt, "q|12345+67890"; got != want {
		t.Errorf("prompt = %q, want %q", got, want)
	}
}

func TestPromptBuilderPure(t *testing.T) {
	b, err := rag.NewPromptBuilder("")
	if err != nil {
		t.Fatalf("NewPromptBuilder failed: %v", err)
	}

	contexts := []rag.RetrievedContext{{ChunkID: 7, Text: "ctx", Score: 0.5}}
	first, err := b.Build("same question", contexts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	second, err := b.Build("same question", contexts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if first != second {
		t.Error("identical inputs produced different prompts")
	}
}
