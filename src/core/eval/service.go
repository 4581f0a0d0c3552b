package eval

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"evalrag/src/infrastructure/log"
)

// TaskTypeEvalRun is the job queue task type for asynchronous evaluation runs.
const TaskTypeEvalRun = "eval_run"

// RunRequest is the payload of an eval_run job.
type RunRequest struct {
	RunID     string `json:"run_id"`
	DatasetID string `json:"dataset_id"`
	Config    Config `json:"config"`
}

// ResultStore persists per-item results keyed by (run_id, item_id) and one
// summary per run_id.
type ResultStore interface {
	SaveItemResults(ctx context.Context, runID string, results []ItemResult) error
	SaveSummary(ctx context.Context, summary *RunSummary) error
	GetSummary(ctx context.Context, runID string) (*RunSummary, error)
	ListItemResults(ctx context.Context, runID string) ([]ItemResult, error)
}

// JobQueue enqueues background work.
type JobQueue interface {
	Enqueue(ctx context.Context, taskType string, payload json.RawMessage) error
}

// Service is the run-management surface behind the HTTP API: it starts
// asynchronous runs and reads back their state.
type Service struct {
	queue JobQueue
	store ResultStore
}

func NewService(queue JobQueue, store ResultStore) *Service {
	return &Service{
		queue: queue,
		store: store,
	}
}

// StartRun enqueues an evaluation run over the named dataset and returns its
// run ID. The run executes on a worker; summary and items become readable as
// they reach the store.
func (s *Service) StartRun(ctx context.Context, datasetID string, cfg Config) (string, error) {
	if datasetID == "" {
		return "", fmt.Errorf("dataset id is required")
	}

	runID := uuid.New().String()
	payload, err := json.Marshal(RunRequest{
		RunID:     runID,
		DatasetID: datasetID,
		Config:    cfg.WithDefaults(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal run request: %w", err)
	}

	if err := s.queue.Enqueue(ctx, TaskTypeEvalRun, payload); err != nil {
		return "", fmt.Errorf("failed to enqueue eval run: %w", err)
	}

	log.Info("eval run enqueued", "run_id", runID, "dataset_id", datasetID)
	return runID, nil
}

// GetRunSummary returns the summary of a run, or nil when none is stored yet.
func (s *Service) GetRunSummary(ctx context.Context, runID string) (*RunSummary, error) {
	return s.store.GetSummary(ctx, runID)
}

// GetRunItems returns the per-item results of a run in dataset order.
func (s *Service) GetRunItems(ctx context.Context, runID string) ([]ItemResult, error) {
	return s.store.ListItemResults(ctx, runID)
}
