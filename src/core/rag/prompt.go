package rag

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

const (
	DefaultContextSeparator = "\n\n---\n\n"
	DefaultMaxContextChars  = 4000

	DefaultPromptTemplate = `Answer the question using only the provided context.
If the context does not contain the answer, say so.
{{if .Instructions}}{{.Instructions}}

{{end}}Context:
{{.Context}}

Question: {{.Question}}

Answer:`
)

// PromptData holds the named slots available to a prompt template.
type PromptData struct {
	Question     string
	Context      string
	Instructions string
}

// PromptBuilder renders the generation prompt from a query and ranked contexts.
// Rendering is a pure function of its inputs.
type PromptBuilder struct {
	tmpl            *template.Template
	separator       string
	maxContextChars int
	instructions    string
}

type PromptOption func(*PromptBuilder)

func WithContextSeparator(sep string) PromptOption {
	return func(b *PromptBuilder) { b.separator = sep }
}

func WithMaxContextChars(n int) PromptOption {
	return func(b *PromptBuilder) { b.maxContextChars = n }
}

func WithInstructions(s string) PromptOption {
	return func(b *PromptBuilder) { b.instructions = s }
}

// NewPromptBuilder parses and validates the template. The template must
// reference the {{.Question}} and {{.Context}} slots; {{.Instructions}} is
// optional.
func NewPromptBuilder(tmplText string, opts ...PromptOption) (*PromptBuilder, error) {
	if tmplText == "" {
		tmplText = DefaultPromptTemplate
	}

	tmpl, err := template.New("prompt").Parse(tmplText)
	if err != nil {
		return nil, &TemplateError{Reason: err.Error()}
	}

	b := &PromptBuilder{
		tmpl:            tmpl,
		separator:       DefaultContextSeparator,
		maxContextChars: DefaultMaxContextChars,
	}
	for _, opt := range opts {
		opt(b)
	}

	if err := b.checkSlots(); err != nil {
		return nil, err
	}
	return b, nil
}

// checkSlots renders the template with marker values and verifies the required
// slots survive into the output.
func (b *PromptBuilder) checkSlots() error {
	const (
		questionMark = "\x00question\x00"
		contextMark  = "\x00context\x00"
	)

	var buf bytes.Buffer
	err := b.tmpl.Execute(&buf, PromptData{Question: questionMark, Context: contextMark})
	if err != nil {
		return &TemplateError{Reason: err.Error()}
	}

	rendered := buf.String()
	if !strings.Contains(rendered, questionMark) {
		return &TemplateError{Slot: "question"}
	}
	if !strings.Contains(rendered, contextMark) {
		return &TemplateError{Slot: "context"}
	}
	return nil
}

// Build renders the prompt for a question over the given contexts, preserving
// their order.
func (b *PromptBuilder) Build(question string, contexts []RetrievedContext) (string, error) {
	data := PromptData{
		Question:     question,
		Context:      b.joinContexts(contexts),
		Instructions: b.instructions,
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// joinContexts concatenates context texts with the separator, dropping empty
// texts and stopping once the character budget is exhausted.
func (b *PromptBuilder) joinContexts(contexts []RetrievedContext) string {
	var parts []string
	total := 0
	for _, c := range contexts {
		txt := strings.TrimSpace(c.Text)
		if txt == "" {
			continue
		}
		if b.maxContextChars > 0 && total+len(txt) > b.maxContextChars {
			break
		}
		parts = append(parts, txt)
		total += len(txt)
	}
	return strings.Join(parts, b.separator)
}
