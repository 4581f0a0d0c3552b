package jobctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"evalrag/src/core/eval"
	"evalrag/src/core/rag"
	"evalrag/src/infrastructure/integrations/ollama"
	"evalrag/src/infrastructure/log"
	"evalrag/src/storage/minioctrl"
)

// EvalRunTask executes one evaluation run end to end: load the dataset from
// object storage, drive it through the serving pipeline and the judge, and
// persist per-item results plus the summary.
type EvalRunTask struct {
	minioService   *minioctrl.MinioService
	resultStore    eval.ResultStore
	ollamaClient   *ollama.Client
	index          rag.VectorIndex
	embeddingModel string
}

func NewEvalRunTask(
	minioService *minioctrl.MinioService,
	resultStore eval.ResultStore,
	ollamaClient *ollama.Client,
	index rag.VectorIndex,
	embeddingModel string,
) *EvalRunTask {
	return &EvalRunTask{
		minioService:   minioService,
		resultStore:    resultStore,
		ollamaClient:   ollamaClient,
		index:          index,
		embeddingModel: embeddingModel,
	}
}

// Handle runs the eval_run task. A systemic failure aborts without writing a
// summary; item-level failures are persisted like any other outcome.
func (task *EvalRunTask) Handle(ctx context.Context, payload json.RawMessage) error {
	var req eval.RunRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal eval run payload: %w", err)
	}
	cfg := req.Config.WithDefaults()

	data, err := task.minioService.GetObject(ctx, minioctrl.DatasetsBucket, req.DatasetID)
	if err != nil {
		return fmt.Errorf("failed to load dataset %s: %w", req.DatasetID, err)
	}

	items, err := eval.LoadDataset(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse dataset %s: %w", req.DatasetID, err)
	}

	pipeline, judge, err := task.buildPipeline(cfg)
	if err != nil {
		return err
	}

	runner := eval.NewRunner(pipeline, judge, cfg)
	results, err := runner.Run(ctx, items)
	if err != nil {
		return fmt.Errorf("eval run %s aborted: %w", req.RunID, err)
	}

	if err := task.resultStore.SaveItemResults(ctx, req.RunID, results); err != nil {
		return fmt.Errorf("failed to save item results: %w", err)
	}

	summary, err := eval.Summarize(req.RunID, req.DatasetID, results, cfg)
	if err != nil {
		return fmt.Errorf("failed to summarize run %s: %w", req.RunID, err)
	}
	if err := task.resultStore.SaveSummary(ctx, summary); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}

	log.Info("eval run completed",
		"run_id", req.RunID,
		"dataset_id", req.DatasetID,
		"items", summary.ItemCount,
		"success", summary.SuccessCount,
		"partial", summary.PartialCount,
		"failed", summary.FailedCount)

	return nil
}

func (task *EvalRunTask) buildPipeline(cfg eval.Config) (*rag.Pipeline, *eval.Judge, error) {
	embedder := ollama.NewEmbeddingProvider(task.ollamaClient, task.embeddingModel)
	retriever := rag.NewRetriever(embedder, task.index)

	prompts, err := rag.NewPromptBuilder("")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build prompt template: %w", err)
	}

	generator := rag.NewGenerator(task.ollamaClient, rag.GeneratorConfig{
		Model:      cfg.GenerationModel,
		Timeout:    cfg.Timeout(),
		MaxRetries: cfg.MaxRetries,
	})

	judge := eval.NewJudge(task.ollamaClient, eval.JudgeConfig{
		Model:             cfg.JudgeModel,
		Timeout:           cfg.Timeout(),
		MaxRetries:        cfg.MaxRetries,
		RequestsPerMinute: cfg.JudgeRPM,
	})

	return rag.NewPipeline(retriever, prompts, generator, cfg.K), judge, nil
}
