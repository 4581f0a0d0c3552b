package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"evalrag/src/core/eval"
)

type startEvalRunRequest struct {
	DatasetID string      `json:"dataset_id" binding:"required"`
	Config    eval.Config `json:"config"`
}

type startEvalRunResponse struct {
	RunID string `json:"run_id"`
}

// StartEvalRun enqueues an asynchronous evaluation run and returns its ID.
func (h *Handler) StartEvalRun(c *gin.Context) {
	var req startEvalRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	runID, err := h.evalService.StartRun(c.Request.Context(), req.DatasetID, req.Config)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusAccepted, startEvalRunResponse{RunID: runID})
}

// GetEvalRunSummary returns the summary of a finished run. Runs still in
// flight have no summary yet and answer 404.
func (h *Handler) GetEvalRunSummary(c *gin.Context) {
	runID := c.Param("id")

	summary, err := h.evalService.GetRunSummary(c.Request.Context(), runID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if summary == nil {
		sendError(c, http.StatusNotFound, fmt.Errorf("no summary for run %s", runID))
		return
	}

	sendJSON(c, http.StatusOK, summary)
}

type evalRunItem struct {
	ItemID           string             `json:"item_id"`
	Question         string             `json:"question"`
	ExpectedAnswer   string             `json:"expected_answer"`
	Answer           string             `json:"answer,omitempty"`
	Status           string             `json:"status"`
	Error            string             `json:"error,omitempty"`
	Verdict          *eval.JudgeVerdict `json:"verdict,omitempty"`
	LatencyMs        int64              `json:"latency_ms"`
	PromptTokens     int                `json:"prompt_tokens"`
	CompletionTokens int                `json:"completion_tokens"`
}

// ListEvalRunItems returns the per-item results of a run.
func (h *Handler) ListEvalRunItems(c *gin.Context) {
	runID := c.Param("id")

	results, err := h.evalService.GetRunItems(c.Request.Context(), runID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if len(results) == 0 {
		sendError(c, http.StatusNotFound, fmt.Errorf("no results for run %s", runID))
		return
	}

	items := make([]evalRunItem, 0, len(results))
	for _, res := range results {
		item := evalRunItem{
			ItemID:         res.Item.ID,
			Question:       res.Item.Question,
			ExpectedAnswer: res.Item.ExpectedAnswer,
			Status:         string(res.Status),
			Verdict:        res.Verdict,
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		if res.Answer != nil {
			item.Answer = res.Answer.Answer
			item.LatencyMs = res.Answer.LatencyMs
			item.PromptTokens = res.Answer.Usage.PromptTokens
			item.CompletionTokens = res.Answer.Usage.CompletionTokens
		}
		items = append(items, item)
	}

	sendJSON(c, http.StatusOK, items)
}
