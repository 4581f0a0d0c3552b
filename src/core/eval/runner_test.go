package eval_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"evalrag/src/core/eval"
	"evalrag/src/core/rag"
)

type askerFunc func(ctx context.Context, query string, k int) (*rag.AnswerResult, error)

func (f askerFunc) Ask(ctx context.Context, query string, k int) (*rag.AnswerResult, error) {
	return f(ctx, query, k)
}

type scorerFunc func(ctx context.Context, question, answer string, contexts []rag.RetrievedContext, expectedAnswer string) (*eval.JudgeVerdict, error)

func (f scorerFunc) Judge(ctx context.Context, question, answer string, contexts []rag.RetrievedContext, expectedAnswer string) (*eval.JudgeVerdict, error) {
	return f(ctx, question, answer, contexts, expectedAnswer)
}

func echoAsker() eval.Asker {
	return askerFunc(func(ctx context.Context, query string, k int) (*rag.AnswerResult, error) {
		return &rag.AnswerResult{
			Query:     query,
			Answer:    "answer to " + query,
			LatencyMs: 10,
			Usage:     rag.TokenUsage{PromptTokens: 100, CompletionTokens: 20},
		}, nil
	})
}

func perfectJudge() eval.Scorer {
	return scorerFunc(func(ctx context.Context, question, answer string, contexts []rag.RetrievedContext, expectedAnswer string) (*eval.JudgeVerdict, error) {
		return &eval.JudgeVerdict{Correctness: 1, Faithfulness: 1, ContextRelevance: 1, Valid: true}, nil
	})
}

func makeItems(n int) []eval.DatasetItem {
	items := make([]eval.DatasetItem, n)
	for i := range items {
		items[i] = eval.DatasetItem{
			ID:             fmt.Sprintf("q%d", i),
			Question:       fmt.Sprintf("question %d", i),
			ExpectedAnswer: fmt.Sprintf("answer %d", i),
		}
	}
	return items
}

func TestRunAllItemsSucceed(t *testing.T) {
	runner := eval.NewRunner(echoAsker(), perfectJudge(), eval.Config{Concurrency: 4})

	results, err := runner.Run(context.Background(), makeItems(8))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i, res := range results {
		if res.Status != eval.StatusSuccess {
			t.Errorf("item %d status = %s, want %s", i, res.Status, eval.StatusSuccess)
		}
		if res.Answer == nil || res.Verdict == nil {
			t.Errorf("item %d missing answer or verdict", i)
		}
	}
}

func TestRunPreservesDatasetOrder(t *testing.T) {
	items := makeItems(32)
	runner := eval.NewRunner(echoAsker(), perfectJudge(), eval.Config{Concurrency: 8})

	results, err := runner.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != len(items) {
		t.Fatalf("got %d results, want %d", len(results), len(items))
	}
	for i, res := range results {
		if res.Item.ID != items[i].ID {
			t.Fatalf("result %d carries item %s, want %s", i, res.Item.ID, items[i].ID)
		}
	}
}

func TestRunIsolatesItemFailures(t *testing.T) {
	asker := askerFunc(func(ctx context.Context, query string, k int) (*rag.AnswerResult, error) {
		if query == "question 1" {
			return nil, &rag.GenerationError{Attempts: 4, Err: fmt.Errorf("model down")}
		}
		return echoAsker().Ask(ctx, query, k)
	})
	runner := eval.NewRunner(asker, perfectJudge(), eval.Config{Concurrency: 2})

	results, err := runner.Run(context.Background(), makeItems(3))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if results[1].Status != eval.StatusFailed {
		t.Errorf("item 1 status = %s, want %s", results[1].Status, eval.StatusFailed)
	}
	var genErr *rag.GenerationError
	if !errors.As(results[1].Err, &genErr) {
		t.Errorf("item 1 error = %v, want GenerationError", results[1].Err)
	}
	for _, i := range []int{0, 2} {
		if results[i].Status != eval.StatusSuccess {
			t.Errorf("item %d status = %s, want %s", i, results[i].Status, eval.StatusSuccess)
		}
	}
}

func TestRunUnparseableJudgeYieldsPartial(t *testing.T) {
	judge := scorerFunc(func(ctx context.Context, question, answer string, contexts []rag.RetrievedContext, expectedAnswer string) (*eval.JudgeVerdict, error) {
		return &eval.JudgeVerdict{
			Correctness:      eval.Unscored,
			Faithfulness:     eval.Unscored,
			ContextRelevance: eval.Unscored,
			Valid:            false,
		}, &eval.JudgeError{Reason: "not a JSON object", Raw: "I think it's fine"}
	})
	runner := eval.NewRunner(echoAsker(), judge, eval.Config{Concurrency: 1})

	results, err := runner.Run(context.Background(), makeItems(1))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	res := results[0]
	if res.Status != eval.StatusPartial {
		t.Fatalf("status = %s, want %s", res.Status, eval.StatusPartial)
	}
	if res.Answer == nil {
		t.Error("partial item must retain its answer")
	}
	if res.Verdict == nil || res.Verdict.Valid {
		t.Errorf("partial item must carry an invalid verdict, got %+v", res.Verdict)
	}
	var judgeErr *eval.JudgeError
	if !errors.As(res.Err, &judgeErr) {
		t.Errorf("error = %v, want JudgeError", res.Err)
	}
}

func TestRunSystemicRetrievalFailure(t *testing.T) {
	asker := askerFunc(func(ctx context.Context, query string, k int) (*rag.AnswerResult, error) {
		return nil, &rag.RetrievalError{Reason: "vector index unreachable", Err: fmt.Errorf("dial tcp: connection refused")}
	})
	runner := eval.NewRunner(asker, perfectJudge(), eval.Config{Concurrency: 4})

	results, err := runner.Run(context.Background(), makeItems(5))
	var sysErr *eval.SystemicError
	if !errors.As(err, &sysErr) {
		t.Fatalf("got %v, want SystemicError", err)
	}
	if results != nil {
		t.Error("systemic failure must not yield results")
	}
}

func TestRunMixedRetrievalFailureIsNotSystemic(t *testing.T) {
	asker := askerFunc(func(ctx context.Context, query string, k int) (*rag.AnswerResult, error) {
		if query == "question 0" {
			return echoAsker().Ask(ctx, query, k)
		}
		return nil, &rag.RetrievalError{Reason: "vector index unreachable"}
	})
	runner := eval.NewRunner(asker, perfectJudge(), eval.Config{Concurrency: 2})

	results, err := runner.Run(context.Background(), makeItems(4))
	if err != nil {
		t.Fatalf("one healthy item must keep the run alive, got %v", err)
	}
	if results[0].Status != eval.StatusSuccess {
		t.Errorf("item 0 status = %s, want %s", results[0].Status, eval.StatusSuccess)
	}
}

func TestRunEmptyDataset(t *testing.T) {
	runner := eval.NewRunner(echoAsker(), perfectJudge(), eval.Config{})

	_, err := runner.Run(context.Background(), nil)
	var sysErr *eval.SystemicError
	if !errors.As(err, &sysErr) {
		t.Fatalf("got %v, want SystemicError", err)
	}
}

func TestRunCancellationLeavesNoItemNonTerminal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	asker := askerFunc(func(ctx context.Context, query string, k int) (*rag.AnswerResult, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return echoAsker().Ask(ctx, query, k)
	})
	runner := eval.NewRunner(asker, perfectJudge(), eval.Config{Concurrency: 1})

	results, err := runner.Run(ctx, makeItems(16))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	failed := 0
	for i, res := range results {
		if !res.Status.Terminal() {
			t.Errorf("item %d left non-terminal: %s", i, res.Status)
		}
		if res.Status == eval.StatusFailed {
			failed++
		}
	}
	if failed == 0 {
		t.Error("cancellation should fail the undispatched items")
	}
}

func TestRunReportsProgress(t *testing.T) {
	var seen []int
	runner := eval.NewRunner(echoAsker(), perfectJudge(), eval.Config{Concurrency: 1},
		eval.WithProgress(func(done, total int) {
			if total != 4 {
				t.Errorf("total = %d, want 4", total)
			}
			seen = append(seen, done)
		}))

	if _, err := runner.Run(context.Background(), makeItems(4)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(seen) != 4 || seen[3] != 4 {
		t.Errorf("progress callbacks = %v", seen)
	}
}
