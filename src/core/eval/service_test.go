package eval_test

import (
	"context"
	"encoding/json"
	"testing"

	"evalrag/src/core/eval"
)

type recordingQueue struct {
	taskType string
	payload  json.RawMessage
}

func (q *recordingQueue) Enqueue(ctx context.Context, taskType string, payload json.RawMessage) error {
	q.taskType = taskType
	q.payload = payload
	return nil
}

type nopStore struct{}

func (nopStore) SaveItemResults(ctx context.Context, runID string, results []eval.ItemResult) error {
	return nil
}
func (nopStore) SaveSummary(ctx context.Context, summary *eval.RunSummary) error { return nil }
func (nopStore) GetSummary(ctx context.Context, runID string) (*eval.RunSummary, error) {
	return nil, nil
}
func (nopStore) ListItemResults(ctx context.Context, runID string) ([]eval.ItemResult, error) {
	return nil, nil
}

func TestStartRunEnqueuesRequest(t *testing.T) {
	queue := &recordingQueue{}
	svc := eval.NewService(queue, nopStore{})

	runID, err := svc.StartRun(context.Background(), "capitals", eval.Config{K: 3})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if runID == "" {
		t.Fatal("run id is empty")
	}
	if queue.taskType != eval.TaskTypeEvalRun {
		t.Errorf("task type = %q, want %q", queue.taskType, eval.TaskTypeEvalRun)
	}

	var req eval.RunRequest
	if err := json.Unmarshal(queue.payload, &req); err != nil {
		t.Fatalf("payload is not a run request: %v", err)
	}
	if req.RunID != runID || req.DatasetID != "capitals" {
		t.Errorf("request = %+v", req)
	}
	if req.Config.K != 3 {
		t.Errorf("k = %d, want 3", req.Config.K)
	}
	if req.Config.Concurrency != eval.DefaultConcurrency {
		t.Errorf("defaults not applied: %+v", req.Config)
	}
}

func TestStartRunRequiresDatasetID(t *testing.T) {
	svc := eval.NewService(&recordingQueue{}, nopStore{})

	if _, err := svc.StartRun(context.Background(), "", eval.Config{}); err == nil {
		t.Fatal("expected error for empty dataset id")
	}
}
