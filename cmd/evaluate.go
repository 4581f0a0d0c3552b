/*
Copyright © 2024 Dean
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"evalrag/src/core/eval"
	"evalrag/src/core/rag"
	"evalrag/src/infrastructure/integrations/ollama"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run an evaluation dataset against the serving pipeline",
	Long: `The evaluate command runs a JSONL dataset of question/ground-truth pairs
through the retrieval pipeline and scores each produced answer with an
LLM judge. It runs synchronously and prints the summary when done.`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	settingDefaultConfig()
	evaluateCmd.Flags().StringP("dataset", "d", "", "Dataset JSONL file path")
	evaluateCmd.MarkFlagRequired("dataset")
	evaluateCmd.Flags().StringP("output", "o", "", "Write the summary JSON to this file")
	evaluateCmd.Flags().IntP("k", "k", 0, "Retrieval depth override")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	datasetPath, _ := cmd.Flags().GetString("dataset")
	outputPath, _ := cmd.Flags().GetString("output")
	kOverride, _ := cmd.Flags().GetInt("k")

	file, err := os.Open(datasetPath)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %v", err)
	}
	defer file.Close()

	items, err := eval.LoadDataset(file)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %v", err)
	}

	cfg := evalConfigFromViper()
	if kOverride > 0 {
		cfg.K = kOverride
	}
	cfg = cfg.WithDefaults()

	index, ensureIndex, err := newVectorIndex()
	if err != nil {
		return err
	}
	if err := ensureIndex(ctx); err != nil {
		return fmt.Errorf("failed to ensure vector index schema: %v", err)
	}

	oc := newOllamaClient()
	embedder := ollama.NewEmbeddingProvider(oc, viper.GetString("models.embedding"))
	retriever := rag.NewRetriever(embedder, index)
	prompts, err := rag.NewPromptBuilder("")
	if err != nil {
		return err
	}
	generator := rag.NewGenerator(oc, rag.GeneratorConfig{
		Model:      cfg.GenerationModel,
		Timeout:    cfg.Timeout(),
		MaxRetries: cfg.MaxRetries,
	})
	pipeline := rag.NewPipeline(retriever, prompts, generator, cfg.K)

	judge := eval.NewJudge(oc, eval.JudgeConfig{
		Model:             cfg.JudgeModel,
		Timeout:           cfg.Timeout(),
		MaxRetries:        cfg.MaxRetries,
		RequestsPerMinute: cfg.JudgeRPM,
	})

	bar := progressbar.Default(int64(len(items)), "evaluating")
	runner := eval.NewRunner(pipeline, judge, cfg, eval.WithProgress(func(done, total int) {
		bar.Set(done)
	}))

	results, err := runner.Run(ctx, items)
	if err != nil {
		return fmt.Errorf("evaluation aborted: %v", err)
	}

	runID := uuid.New().String()
	summary, err := eval.Summarize(runID, datasetPath, results, cfg)
	if err != nil {
		return err
	}

	printSummary(summary)

	if outputPath != "" {
		payload, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(outputPath, payload, 0o644); err != nil {
			return fmt.Errorf("failed to write summary: %v", err)
		}
		fmt.Printf("Summary written to %s\n", outputPath)
	}

	return nil
}

func printSummary(s *eval.RunSummary) {
	fmt.Printf("\nEvaluation Results:\n")
	fmt.Printf("Items: %d (success %d, partial %d, failed %d)\n",
		s.ItemCount, s.SuccessCount, s.PartialCount, s.FailedCount)
	fmt.Printf("Correctness:       mean %.3f  median %.3f  pass %.1f%%\n",
		s.Correctness.Mean, s.Correctness.Median, s.Correctness.PassRate*100)
	fmt.Printf("Faithfulness:      mean %.3f  median %.3f  pass %.1f%%\n",
		s.Faithfulness.Mean, s.Faithfulness.Median, s.Faithfulness.PassRate*100)
	fmt.Printf("Context relevance: mean %.3f  median %.3f  pass %.1f%%\n",
		s.ContextRelevance.Mean, s.ContextRelevance.Median, s.ContextRelevance.PassRate*100)
	fmt.Printf("Latency: p50 %dms, p95 %dms\n", s.LatencyP50Ms, s.LatencyP95Ms)
	fmt.Printf("Tokens: %d prompt, %d completion", s.TotalPromptTokens, s.TotalCompletionTokens)
	if s.EstimatedCostUSD > 0 {
		fmt.Printf(" (est. $%.4f)", s.EstimatedCostUSD)
	}
	fmt.Println()
}
