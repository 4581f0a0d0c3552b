package eval

import (
	"fmt"
	"sort"
)

// Summarize reduces the per-item results of a finished run into dataset-level
// metrics. It is a pure function of its inputs. FAILED items and invalid
// verdicts never enter the score statistics; their counts are reported
// separately so quality and reliability stay distinguishable.
func Summarize(runID, datasetID string, results []ItemResult, cfg Config) (*RunSummary, error) {
	cfg = cfg.WithDefaults()

	summary := &RunSummary{
		RunID:     runID,
		DatasetID: datasetID,
		ItemCount: len(results),
	}

	var correctness, faithfulness, relevance []float64
	var latencies []int64

	for _, res := range results {
		if !res.Status.Terminal() {
			return nil, fmt.Errorf("cannot summarize run %s: item %s is still %s", runID, res.Item.ID, res.Status)
		}

		switch res.Status {
		case StatusSuccess:
			summary.SuccessCount++
		case StatusPartial:
			summary.PartialCount++
		case StatusFailed:
			summary.FailedCount++
		}

		if res.Answer != nil {
			latencies = append(latencies, res.Answer.LatencyMs)
			summary.TotalPromptTokens += res.Answer.Usage.PromptTokens
			summary.TotalCompletionTokens += res.Answer.Usage.CompletionTokens
		}

		if res.Status == StatusSuccess && res.Verdict != nil && res.Verdict.Valid {
			correctness = append(correctness, res.Verdict.Correctness)
			faithfulness = append(faithfulness, res.Verdict.Faithfulness)
			relevance = append(relevance, res.Verdict.ContextRelevance)
		}
	}

	if summary.ItemCount > 0 {
		summary.PartialFailureRate = float64(summary.PartialCount) / float64(summary.ItemCount)
		summary.FailureRate = float64(summary.FailedCount) / float64(summary.ItemCount)
	}

	summary.Correctness = axisStats(correctness, cfg.PassThreshold)
	summary.Faithfulness = axisStats(faithfulness, cfg.PassThreshold)
	summary.ContextRelevance = axisStats(relevance, cfg.PassThreshold)

	summary.LatencyP50Ms = percentile(latencies, 50)
	summary.LatencyP95Ms = percentile(latencies, 95)

	totalTokens := summary.TotalPromptTokens + summary.TotalCompletionTokens
	summary.EstimatedCostUSD = float64(totalTokens) * cfg.PricePerToken

	return summary, nil
}

func axisStats(scores []float64, passThreshold float64) AxisStats {
	stats := AxisStats{Scored: len(scores)}
	if len(scores) == 0 {
		return stats
	}

	sum := 0.0
	passed := 0
	for _, s := range scores {
		sum += s
		if s >= passThreshold {
			passed++
		}
	}
	stats.Mean = sum / float64(len(scores))
	stats.PassRate = float64(passed) / float64(len(scores))

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		stats.Median = sorted[mid]
	} else {
		stats.Median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return stats
}

// percentile returns the nearest-rank percentile of the latencies.
func percentile(values []int64, p int) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
