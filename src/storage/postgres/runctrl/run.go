package runctrl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"evalrag/src/core/eval"
	"evalrag/src/core/rag"
)

// ItemResultRow is one evaluated dataset item. The (run_id, item_id) pair is
// unique so re-running persistence for the same run overwrites instead of
// duplicating.
type ItemResultRow struct {
	ID     int64  `gorm:"primaryKey" json:"id"`
	RunID  string `gorm:"not null;uniqueIndex:idx_run_item;column:run_id" json:"run_id"`
	ItemID string `gorm:"not null;uniqueIndex:idx_run_item;column:item_id" json:"item_id"`

	Question       string `gorm:"not null" json:"question"`
	ExpectedAnswer string `gorm:"not null;column:expected_answer" json:"expected_answer"`

	Status       string `gorm:"not null" json:"status"`
	ErrorMessage string `gorm:"column:error_message" json:"error_message"`

	Answer           string `json:"answer"`
	Contexts         []byte `gorm:"type:jsonb" json:"contexts"`
	LatencyMs        int64  `gorm:"column:latency_ms" json:"latency_ms"`
	PromptTokens     int    `gorm:"column:prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int    `gorm:"column:completion_tokens" json:"completion_tokens"`

	// Scores are null for items that never reached a valid verdict.
	Correctness      *float64 `json:"correctness"`
	Faithfulness     *float64 `json:"faithfulness"`
	ContextRelevance *float64 `gorm:"column:context_relevance" json:"context_relevance"`
	Rationale        string   `json:"rationale"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ItemResultRow) TableName() string {
	return "eval_item_results"
}

// RunSummaryRow holds one summary per run.
type RunSummaryRow struct {
	RunID     string `gorm:"primaryKey;column:run_id" json:"run_id"`
	DatasetID string `gorm:"not null;column:dataset_id" json:"dataset_id"`
	Summary   []byte `gorm:"type:jsonb;not null" json:"summary"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RunSummaryRow) TableName() string {
	return "eval_run_summaries"
}

// RunService persists evaluation results in Postgres.
type RunService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewRunService(db *gorm.DB) (*RunService, error) {
	node, err := snowflake.NewNode(3) // Node number 3 for eval results
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &RunService{
		db:        db,
		snowflake: node,
	}, nil
}

func (s *RunService) SaveItemResults(ctx context.Context, runID string, results []eval.ItemResult) error {
	if len(results) == 0 {
		return nil
	}

	rows := make([]ItemResultRow, 0, len(results))
	for _, res := range results {
		row, err := s.toRow(runID, res)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}, {Name: "item_id"}},
			UpdateAll: true,
		}).
		Create(&rows)
	if result.Error != nil {
		return fmt.Errorf("failed to save item results: %v", result.Error)
	}

	return nil
}

func (s *RunService) SaveSummary(ctx context.Context, summary *eval.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %v", err)
	}

	row := RunSummaryRow{
		RunID:     summary.RunID,
		DatasetID: summary.DatasetID,
		Summary:   payload,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}},
			UpdateAll: true,
		}).
		Create(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to save summary: %v", result.Error)
	}

	return nil
}

func (s *RunService) GetSummary(ctx context.Context, runID string) (*eval.RunSummary, error) {
	var row RunSummaryRow
	result := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&row)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get summary: %v", result.Error)
	}

	var summary eval.RunSummary
	if err := json.Unmarshal(row.Summary, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %v", err)
	}
	return &summary, nil
}

func (s *RunService) ListItemResults(ctx context.Context, runID string) ([]eval.ItemResult, error) {
	var rows []ItemResultRow
	result := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at asc, id asc").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list item results: %v", result.Error)
	}

	results := make([]eval.ItemResult, 0, len(rows))
	for _, row := range rows {
		res, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *RunService) toRow(runID string, res eval.ItemResult) (ItemResultRow, error) {
	row := ItemResultRow{
		ID:             s.snowflake.Generate().Int64(),
		RunID:          runID,
		ItemID:         res.Item.ID,
		Question:       res.Item.Question,
		ExpectedAnswer: res.Item.ExpectedAnswer,
		Status:         string(res.Status),
	}

	if res.Err != nil {
		row.ErrorMessage = res.Err.Error()
	}

	if res.Answer != nil {
		row.Answer = res.Answer.Answer
		row.LatencyMs = res.Answer.LatencyMs
		row.PromptTokens = res.Answer.Usage.PromptTokens
		row.CompletionTokens = res.Answer.Usage.CompletionTokens

		contexts, err := json.Marshal(res.Answer.Contexts)
		if err != nil {
			return ItemResultRow{}, fmt.Errorf("failed to marshal contexts for item %s: %v", res.Item.ID, err)
		}
		row.Contexts = contexts
	}

	if res.Verdict != nil && res.Verdict.Valid {
		correctness := res.Verdict.Correctness
		faithfulness := res.Verdict.Faithfulness
		relevance := res.Verdict.ContextRelevance
		row.Correctness = &correctness
		row.Faithfulness = &faithfulness
		row.ContextRelevance = &relevance
		row.Rationale = res.Verdict.Rationale
	}

	return row, nil
}

func fromRow(row ItemResultRow) (eval.ItemResult, error) {
	res := eval.ItemResult{
		Item: eval.DatasetItem{
			ID:             row.ItemID,
			Question:       row.Question,
			ExpectedAnswer: row.ExpectedAnswer,
		},
		Status: eval.ItemStatus(row.Status),
	}

	if row.ErrorMessage != "" {
		res.Err = fmt.Errorf("%s", row.ErrorMessage)
	}

	if row.Answer != "" || len(row.Contexts) > 0 {
		answer := &rag.AnswerResult{
			Query:     row.Question,
			Answer:    row.Answer,
			LatencyMs: row.LatencyMs,
			Usage: rag.TokenUsage{
				PromptTokens:     row.PromptTokens,
				CompletionTokens: row.CompletionTokens,
			},
		}
		if len(row.Contexts) > 0 {
			if err := json.Unmarshal(row.Contexts, &answer.Contexts); err != nil {
				return eval.ItemResult{}, fmt.Errorf("failed to unmarshal contexts for item %s: %v", row.ItemID, err)
			}
		}
		res.Answer = answer
	}

	if row.Correctness != nil && row.Faithfulness != nil && row.ContextRelevance != nil {
		res.Verdict = &eval.JudgeVerdict{
			Correctness:      *row.Correctness,
			Faithfulness:     *row.Faithfulness,
			ContextRelevance: *row.ContextRelevance,
			Rationale:        row.Rationale,
			Valid:            true,
		}
	} else if res.Status == eval.StatusPartial {
		res.Verdict = &eval.JudgeVerdict{
			Correctness:      eval.Unscored,
			Faithfulness:     eval.Unscored,
			ContextRelevance: eval.Unscored,
		}
	}

	return res, nil
}
