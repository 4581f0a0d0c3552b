package eval_test

import (
	"math"
	"testing"

	"evalrag/src/core/eval"
	"evalrag/src/core/rag"
)

func successResult(id string, correctness, faithfulness, relevance float64, latencyMs int64) eval.ItemResult {
	return eval.ItemResult{
		Item: eval.DatasetItem{ID: id},
		Answer: &rag.AnswerResult{
			LatencyMs: latencyMs,
			Usage:     rag.TokenUsage{PromptTokens: 100, CompletionTokens: 50},
		},
		Verdict: &eval.JudgeVerdict{
			Correctness:      correctness,
			Faithfulness:     faithfulness,
			ContextRelevance: relevance,
			Valid:            true,
		},
		Status: eval.StatusSuccess,
	}
}

func partialResult(id string, latencyMs int64) eval.ItemResult {
	return eval.ItemResult{
		Item: eval.DatasetItem{ID: id},
		Answer: &rag.AnswerResult{
			LatencyMs: latencyMs,
			Usage:     rag.TokenUsage{PromptTokens: 100, CompletionTokens: 50},
		},
		Verdict: &eval.JudgeVerdict{
			Correctness:      eval.Unscored,
			Faithfulness:     eval.Unscored,
			ContextRelevance: eval.Unscored,
		},
		Status: eval.StatusPartial,
		Err:    &eval.JudgeError{Reason: "not a JSON object"},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSummarizeSingleCorrectAnswer(t *testing.T) {
	results := []eval.ItemResult{
		successResult("q1", 1.0, 1.0, 0.9, 42),
	}

	summary, err := eval.Summarize("run-1", "capitals", results, eval.Config{})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if summary.ItemCount != 1 || summary.SuccessCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", summary.ItemCount, summary.SuccessCount)
	}
	if !almostEqual(summary.Correctness.Mean, 1.0) {
		t.Errorf("correctness mean = %v, want 1.0", summary.Correctness.Mean)
	}
	if summary.LatencyP50Ms != 42 || summary.LatencyP95Ms != 42 {
		t.Errorf("latency percentiles = %d/%d, want 42/42", summary.LatencyP50Ms, summary.LatencyP95Ms)
	}
}

func TestSummarizeWrongAnswerIsSuccessWithZeroPassRate(t *testing.T) {
	// A confidently wrong answer still completes the pipeline; only the
	// scores reflect it.
	results := []eval.ItemResult{
		successResult("q1", 0.0, 0.2, 0.9, 40),
	}

	summary, err := eval.Summarize("run-1", "capitals", results, eval.Config{PassThreshold: 0.7})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if summary.SuccessCount != 1 || summary.FailedCount != 0 {
		t.Errorf("counts = success %d failed %d, want 1/0", summary.SuccessCount, summary.FailedCount)
	}
	if !almostEqual(summary.Correctness.PassRate, 0.0) {
		t.Errorf("correctness pass rate = %v, want 0", summary.Correctness.PassRate)
	}
	if !almostEqual(summary.ContextRelevance.PassRate, 1.0) {
		t.Errorf("context relevance pass rate = %v, want 1", summary.ContextRelevance.PassRate)
	}
}

func TestSummarizeExcludesPartialsFromScores(t *testing.T) {
	results := []eval.ItemResult{
		successResult("q1", 1.0, 1.0, 1.0, 30),
		successResult("q2", 0.5, 0.5, 0.5, 50),
		partialResult("q3", 70),
	}

	summary, err := eval.Summarize("run-1", "mixed", results, eval.Config{})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if summary.SuccessCount != 2 || summary.PartialCount != 1 {
		t.Errorf("counts = success %d partial %d, want 2/1", summary.SuccessCount, summary.PartialCount)
	}
	if summary.Correctness.Scored != 2 {
		t.Errorf("scored = %d, want 2: the unscored sentinel must not enter the mean", summary.Correctness.Scored)
	}
	if !almostEqual(summary.Correctness.Mean, 0.75) {
		t.Errorf("correctness mean = %v, want 0.75", summary.Correctness.Mean)
	}
	if !almostEqual(summary.PartialFailureRate, 1.0/3.0) {
		t.Errorf("partial failure rate = %v, want 1/3", summary.PartialFailureRate)
	}

	// The partial item produced an answer, so it still counts for latency
	// and cost.
	if summary.LatencyP95Ms != 70 {
		t.Errorf("latency p95 = %d, want 70", summary.LatencyP95Ms)
	}
	if summary.TotalPromptTokens != 300 {
		t.Errorf("prompt tokens = %d, want 300", summary.TotalPromptTokens)
	}
}

func TestSummarizeFailedItems(t *testing.T) {
	results := []eval.ItemResult{
		successResult("q1", 1.0, 1.0, 1.0, 30),
		{
			Item:   eval.DatasetItem{ID: "q2"},
			Status: eval.StatusFailed,
			Err:    &rag.GenerationError{Attempts: 4},
		},
	}

	summary, err := eval.Summarize("run-1", "mixed", results, eval.Config{})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if summary.FailedCount != 1 {
		t.Errorf("failed count = %d, want 1", summary.FailedCount)
	}
	if !almostEqual(summary.FailureRate, 0.5) {
		t.Errorf("failure rate = %v, want 0.5", summary.FailureRate)
	}
	if summary.Correctness.Scored != 1 {
		t.Errorf("scored = %d, want 1", summary.Correctness.Scored)
	}
}

func TestSummarizeMedianAndPercentiles(t *testing.T) {
	results := []eval.ItemResult{
		successResult("q1", 0.2, 1, 1, 100),
		successResult("q2", 0.4, 1, 1, 200),
		successResult("q3", 0.6, 1, 1, 300),
		successResult("q4", 0.8, 1, 1, 400),
	}

	summary, err := eval.Summarize("run-1", "spread", results, eval.Config{})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if !almostEqual(summary.Correctness.Median, 0.5) {
		t.Errorf("median = %v, want 0.5", summary.Correctness.Median)
	}
	if summary.LatencyP50Ms != 200 {
		t.Errorf("latency p50 = %d, want 200", summary.LatencyP50Ms)
	}
	if summary.LatencyP95Ms != 400 {
		t.Errorf("latency p95 = %d, want 400", summary.LatencyP95Ms)
	}
}

func TestSummarizeEstimatedCost(t *testing.T) {
	results := []eval.ItemResult{
		successResult("q1", 1, 1, 1, 10),
		successResult("q2", 1, 1, 1, 10),
	}

	summary, err := eval.Summarize("run-1", "cost", results, eval.Config{PricePerToken: 0.000002})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if !almostEqual(summary.EstimatedCostUSD, 300*0.000002) {
		t.Errorf("estimated cost = %v, want %v", summary.EstimatedCostUSD, 300*0.000002)
	}
}

func TestSummarizeRejectsNonTerminalItems(t *testing.T) {
	results := []eval.ItemResult{
		{Item: eval.DatasetItem{ID: "q1"}, Status: eval.StatusJudging},
	}

	if _, err := eval.Summarize("run-1", "pending", results, eval.Config{}); err == nil {
		t.Fatal("expected error for non-terminal item")
	}
}

func TestSummarizeIsDeterministic(t *testing.T) {
	results := []eval.ItemResult{
		successResult("q1", 0.3, 0.6, 0.9, 15),
		partialResult("q2", 25),
		successResult("q3", 0.7, 0.8, 0.9, 35),
	}

	first, err := eval.Summarize("run-1", "repeat", results, eval.Config{})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	second, err := eval.Summarize("run-1", "repeat", results, eval.Config{})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if *first != *second {
		t.Errorf("summaries differ:\n%+v\n%+v", first, second)
	}
}
