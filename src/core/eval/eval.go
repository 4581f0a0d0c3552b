package eval

import (
	"time"

	"evalrag/src/core/rag"
)

// Unscored is the sentinel carried by invalid verdicts in place of a score.
// It must never enter an aggregate.
const Unscored = -1.0

// DatasetItem is one question/ground-truth pair from an evaluation dataset.
// Immutable during a run.
type DatasetItem struct {
	ID               string   `json:"id"`
	Question         string   `json:"question"`
	ExpectedAnswer   string   `json:"expected_answer"`
	ExpectedContexts []string `json:"expected_contexts,omitempty"`
}

// JudgeVerdict scores one answer on three axes, each in [0,1]. When the judge
// output could not be parsed Valid is false and every score is Unscored.
type JudgeVerdict struct {
	Correctness      float64 `json:"correctness_score"`
	Faithfulness     float64 `json:"faithfulness_score"`
	ContextRelevance float64 `json:"context_relevance_score"`
	Rationale        string  `json:"rationale"`
	Valid            bool    `json:"valid"`
}

// ItemStatus tracks an item through the run state machine.
type ItemStatus string

const (
	StatusPending    ItemStatus = "PENDING"
	StatusRetrieving ItemStatus = "RETRIEVING"
	StatusGenerating ItemStatus = "GENERATING"
	StatusJudging    ItemStatus = "JUDGING"
	StatusSuccess    ItemStatus = "SUCCESS"
	StatusPartial    ItemStatus = "PARTIAL"
	StatusFailed     ItemStatus = "FAILED"
)

// Terminal reports whether the status is an end state of the item machine.
func (s ItemStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusPartial, StatusFailed:
		return true
	}
	return false
}

// ItemResult is the outcome of running one dataset item through the pipeline
// and the judge. Immutable once written.
type ItemResult struct {
	Item    DatasetItem
	Answer  *rag.AnswerResult
	Verdict *JudgeVerdict
	Status  ItemStatus
	Err     error
}

// AxisStats aggregates one score axis over the validly judged items.
type AxisStats struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	PassRate float64 `json:"pass_rate"`
	Scored   int     `json:"scored"`
}

// RunSummary is the dataset-level reduction of a finished run.
type RunSummary struct {
	RunID     string `json:"run_id"`
	DatasetID string `json:"dataset_id"`

	ItemCount    int `json:"item_count"`
	SuccessCount int `json:"success_count"`
	PartialCount int `json:"partial_count"`
	FailedCount  int `json:"failed_count"`

	PartialFailureRate float64 `json:"partial_failure_rate"`
	FailureRate        float64 `json:"failure_rate"`

	Correctness      AxisStats `json:"correctness"`
	Faithfulness     AxisStats `json:"faithfulness"`
	ContextRelevance AxisStats `json:"context_relevance"`

	LatencyP50Ms int64 `json:"latency_p50_ms"`
	LatencyP95Ms int64 `json:"latency_p95_ms"`

	TotalPromptTokens     int     `json:"total_prompt_tokens"`
	TotalCompletionTokens int     `json:"total_completion_tokens"`
	EstimatedCostUSD      float64 `json:"estimated_cost_usd"`
}

// Default configuration values for an evaluation run.
const (
	DefaultConcurrency   = 4
	DefaultPassThreshold = 0.7
	DefaultTimeoutMs     = 60_000
)

// Config carries the per-run options of an evaluation run. It is constructed
// once and passed by value; nothing reads configuration ambiently.
type Config struct {
	K               int     `json:"k"`
	Concurrency     int     `json:"concurrency"`
	PassThreshold   float64 `json:"pass_threshold"`
	GenerationModel string  `json:"generation_model"`
	JudgeModel      string  `json:"judge_model"`
	MaxRetries      int     `json:"max_retries"`
	TimeoutMs       int     `json:"timeout_ms"`
	JudgeRPM        int     `json:"judge_rpm"`
	PricePerToken   float64 `json:"price_per_token"`
}

// WithDefaults fills unset options.
func (c Config) WithDefaults() Config {
	if c.K <= 0 {
		c.K = rag.DefaultRetrievalDepth
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.PassThreshold <= 0 {
		c.PassThreshold = DefaultPassThreshold
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.TimeoutMs <= 0 {
		c.TimeoutMs = DefaultTimeoutMs
	}
	return c
}

// Timeout returns the per-call timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}
