package rag

import "fmt"

// ConfigurationError reports invalid static configuration. Fatal at startup.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// RetrievalError reports an unreachable or corrupt vector index.
type RetrievalError struct {
	Reason string
	Err    error
}

func (e *RetrievalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retrieval failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("retrieval failed: %s", e.Reason)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// GenerationError reports a provider failure after all retries were spent.
// Err carries the last underlying error.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// TemplateError reports a prompt template missing a required slot.
type TemplateError struct {
	Slot   string
	Reason string
}

func (e *TemplateError) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("prompt template missing required slot %q", e.Slot)
	}
	return fmt.Sprintf("invalid prompt template: %s", e.Reason)
}
