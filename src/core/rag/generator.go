package rag

import (
	"context"
	"time"

	"evalrag/src/infrastructure/log"
)

const (
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 30 * time.Second
)

// GeneratorConfig controls one model role (generation or judging).
type GeneratorConfig struct {
	Model      string
	System     string
	Timeout    time.Duration // per-attempt timeout
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // backoff is BaseDelay * 2^attempt, capped at MaxDelay
	MaxDelay   time.Duration
}

func (c GeneratorConfig) withDefaults() GeneratorConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	return c
}

// Generator invokes the configured language model with timeout and
// exponential-backoff retries. It mutates no local state.
type Generator struct {
	backend LLMBackend
	cfg     GeneratorConfig
}

func NewGenerator(backend LLMBackend, cfg GeneratorConfig) *Generator {
	return &Generator{
		backend: backend,
		cfg:     cfg.withDefaults(),
	}
}

// Generate runs the prompt through the backend, retrying on provider errors
// and timeouts. After MaxRetries failed retries it returns a GenerationError
// carrying the last underlying error.
func (g *Generator) Generate(ctx context.Context, prompt string) (*Generation, error) {
	start := time.Now()

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, g.backoff(attempt-1)); err != nil {
				break
			}
		}

		attempts++
		result, err := g.attempt(ctx, prompt)
		if err == nil {
			return &Generation{
				Text: result.Text,
				Usage: TokenUsage{
					PromptTokens:     result.PromptTokens,
					CompletionTokens: result.CompletionTokens,
				},
				LatencyMs: time.Since(start).Milliseconds(),
			}, nil
		}

		lastErr = err
		log.Debug("generation attempt failed", "model", g.cfg.Model, "attempt", attempt, "error", err.Error())

		if ctx.Err() != nil {
			break
		}
	}

	return nil, &GenerationError{Attempts: attempts, Err: lastErr}
}

func (g *Generator) attempt(ctx context.Context, prompt string) (GenerateResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	return g.backend.Generate(attemptCtx, g.cfg.Model, g.cfg.System, prompt)
}

func (g *Generator) backoff(attempt int) time.Duration {
	delay := g.cfg.BaseDelay << uint(attempt)
	if delay > g.cfg.MaxDelay || delay <= 0 {
		delay = g.cfg.MaxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
