package eval

import (
	"context"
	"errors"
	"sync"

	"evalrag/src/core/rag"
	"evalrag/src/infrastructure/log"
)

// Asker is the serving-path entry point the runner drives per item. The live
// RAG pipeline satisfies it; tests substitute deterministic fakes.
type Asker interface {
	Ask(ctx context.Context, query string, k int) (*rag.AnswerResult, error)
}

// Scorer judges one produced answer.
type Scorer interface {
	Judge(ctx context.Context, question, answer string, contexts []rag.RetrievedContext, expectedAnswer string) (*JudgeVerdict, error)
}

// Runner drives a dataset through the RAG pipeline and the judge with a
// bounded worker pool. Each item is one unit of work owned by a single worker
// until it reaches a terminal status; results are re-sorted to dataset order.
type Runner struct {
	asker    Asker
	judge    Scorer
	cfg      Config
	progress func(done, total int)
}

type RunnerOption func(*Runner)

// WithProgress registers a callback invoked after each item completes.
func WithProgress(fn func(done, total int)) RunnerOption {
	return func(r *Runner) { r.progress = fn }
}

func NewRunner(asker Asker, judge Scorer, cfg Config, opts ...RunnerOption) *Runner {
	r := &Runner{
		asker: asker,
		judge: judge,
		cfg:   cfg.WithDefaults(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type indexedResult struct {
	index  int
	result ItemResult
}

// Run executes every dataset item, tolerating individual failures. It returns
// a SystemicError only when every single item failed at the retrieval stage,
// which signals an unreachable or corrupt index rather than item-level noise.
// Cancellation stops dispatch; undispatched items are recorded FAILED so the
// result set always covers the full dataset.
func (r *Runner) Run(ctx context.Context, items []DatasetItem) ([]ItemResult, error) {
	if len(items) == 0 {
		return nil, &SystemicError{Reason: "dataset is empty"}
	}

	jobs := make(chan int)
	out := make(chan indexedResult, len(items))

	var wg sync.WaitGroup
	for w := 0; w < r.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out <- indexedResult{index: i, result: r.processItem(ctx, items[i])}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range items {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]ItemResult, len(items))
	dispatched := make([]bool, len(items))
	done := 0
	for ir := range out {
		results[ir.index] = ir.result
		dispatched[ir.index] = true
		done++
		if r.progress != nil {
			r.progress(done, len(items))
		}
	}

	// Items never handed to a worker still need a terminal status.
	for i := range results {
		if !dispatched[i] {
			results[i] = ItemResult{
				Item:   items[i],
				Status: StatusFailed,
				Err:    context.Cause(ctx),
			}
		}
	}

	if err := r.checkSystemic(results); err != nil {
		return nil, err
	}
	return results, nil
}

// processItem walks one item through the state machine. Steps are strictly
// sequential; the only suspension points are the network calls inside the
// pipeline and the judge.
func (r *Runner) processItem(ctx context.Context, item DatasetItem) ItemResult {
	result := ItemResult{Item: item, Status: StatusPending}

	if ctx.Err() != nil {
		result.Status = StatusFailed
		result.Err = ctx.Err()
		return result
	}

	result.Status = StatusRetrieving
	answer, err := r.asker.Ask(ctx, item.Question, r.cfg.K)
	if err != nil {
		var genErr *rag.GenerationError
		if errors.As(err, &genErr) {
			result.Status = StatusGenerating
		}
		log.Debug("item failed in pipeline", "item_id", item.ID, "stage", string(result.Status), "error", err.Error())
		result.Status = StatusFailed
		result.Err = err
		return result
	}
	result.Answer = answer

	result.Status = StatusJudging
	verdict, err := r.judge.Judge(ctx, item.Question, answer.Answer, answer.Contexts, item.ExpectedAnswer)
	if err != nil {
		// The answer is retained; only the scores are absent.
		log.Debug("item failed in judging", "item_id", item.ID, "error", err.Error())
		result.Verdict = verdict
		result.Status = StatusPartial
		result.Err = err
		return result
	}

	result.Verdict = verdict
	result.Status = StatusSuccess
	return result
}

// checkSystemic flags the run as failed wholesale when every item died with a
// retrieval error.
func (r *Runner) checkSystemic(results []ItemResult) error {
	var firstErr error
	for _, res := range results {
		if res.Status != StatusFailed {
			return nil
		}
		var retErr *rag.RetrievalError
		if !errors.As(res.Err, &retErr) {
			return nil
		}
		if firstErr == nil {
			firstErr = res.Err
		}
	}
	return &SystemicError{Reason: "vector index unreachable for all items", Err: firstErr}
}
