package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"

	"evalrag/src/core/rag"
	"evalrag/src/infrastructure/log"
)

// JudgeConfig mirrors the generator's retry/timeout policy with an
// independently configured rate limit. Judges are invoked many-to-one
// relative to live generation, so they get their own budget.
type JudgeConfig struct {
	Model             string
	Timeout           time.Duration
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	RequestsPerMinute int // 0 disables rate limiting
}

// Judge scores produced answers against ground truth and retrieved context
// using a rubric-driven model call.
type Judge struct {
	generator *rag.Generator
	limiter   *intervalLimiter
	tmpl      *template.Template
}

func NewJudge(backend rag.LLMBackend, cfg JudgeConfig) *Judge {
	return &Judge{
		generator: rag.NewGenerator(backend, rag.GeneratorConfig{
			Model:      cfg.Model,
			System:     JudgeSystemMessage,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.BaseDelay,
			MaxDelay:   cfg.MaxDelay,
		}),
		limiter: newIntervalLimiter(cfg.RequestsPerMinute),
		tmpl:    template.Must(template.New("judge").Parse(judgePromptTmpl)),
	}
}

// Judge rates the answer on correctness, faithfulness and context relevance.
// A provider failure returns (nil, error). Output that fails the schema check
// returns an invalid verdict together with a JudgeError; scores of an invalid
// verdict are the Unscored sentinel, never a fabricated number.
func (j *Judge) Judge(ctx context.Context, question, answer string, contexts []rag.RetrievedContext, expectedAnswer string) (*JudgeVerdict, error) {
	if err := j.limiter.wait(ctx); err != nil {
		return nil, err
	}

	prompt, err := j.buildPrompt(question, answer, contexts, expectedAnswer)
	if err != nil {
		return nil, fmt.Errorf("failed to build judge prompt: %w", err)
	}

	generation, err := j.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	verdict, err := parseVerdict(generation.Text)
	if err != nil {
		log.Debug("judge output rejected", "error", err.Error())
		return invalidVerdict(), err
	}
	return verdict, nil
}

func (j *Judge) buildPrompt(question, answer string, contexts []rag.RetrievedContext, expectedAnswer string) (string, error) {
	parts := make([]string, 0, len(contexts))
	for _, c := range contexts {
		parts = append(parts, c.Text)
	}

	var buf bytes.Buffer
	err := j.tmpl.Execute(&buf, judgePromptData{
		Question:       question,
		ExpectedAnswer: expectedAnswer,
		Answer:         answer,
		Context:        strings.Join(parts, rag.DefaultContextSeparator),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func invalidVerdict() *JudgeVerdict {
	return &JudgeVerdict{
		Correctness:      Unscored,
		Faithfulness:     Unscored,
		ContextRelevance: Unscored,
		Valid:            false,
	}
}

// rawVerdict uses pointers so absent scores are distinguishable from 0.0.
type rawVerdict struct {
	Correctness      *float64 `json:"correctness"`
	Faithfulness     *float64 `json:"faithfulness"`
	ContextRelevance *float64 `json:"context_relevance"`
	Rationale        string   `json:"rationale"`
}

// parseVerdict applies the strict schema check: all three scores present and
// inside [0,1]. A code fence around the JSON is tolerated, nothing looser.
// Partially present scores are treated as fully invalid.
func parseVerdict(text string) (*JudgeVerdict, error) {
	payload := stripCodeFence(strings.TrimSpace(text))

	var raw rawVerdict
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, &JudgeError{Reason: fmt.Sprintf("not a JSON object: %v", err), Raw: text}
	}

	scores := map[string]*float64{
		"correctness":       raw.Correctness,
		"faithfulness":      raw.Faithfulness,
		"context_relevance": raw.ContextRelevance,
	}
	for name, score := range scores {
		if score == nil {
			return nil, &JudgeError{Reason: "missing score " + name, Raw: text}
		}
		if *score < 0 || *score > 1 {
			return nil, &JudgeError{Reason: fmt.Sprintf("score %s = %v outside [0,1]", name, *score), Raw: text}
		}
	}

	return &JudgeVerdict{
		Correctness:      *raw.Correctness,
		Faithfulness:     *raw.Faithfulness,
		ContextRelevance: *raw.ContextRelevance,
		Rationale:        raw.Rationale,
		Valid:            true,
	}, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// intervalLimiter spaces calls evenly at the configured rate. A nil limiter
// admits everything.
type intervalLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

func newIntervalLimiter(requestsPerMinute int) *intervalLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return &intervalLimiter{
		interval: time.Minute / time.Duration(requestsPerMinute),
	}
}

func (l *intervalLimiter) wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	now := time.Now()
	at := l.next
	if at.Before(now) {
		at = now
	}
	l.next = at.Add(l.interval)
	l.mu.Unlock()

	delay := at.Sub(now)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
