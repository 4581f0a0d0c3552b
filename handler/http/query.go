package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"evalrag/src/core/rag"
)

type queryRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

type queryResponse struct {
	Answer    string                 `json:"answer"`
	Contexts  []rag.RetrievedContext `json:"contexts"`
	LatencyMs int64                  `json:"latency_ms"`
	Usage     rag.TokenUsage         `json:"usage"`
}

// Query answers a question over the indexed corpus.
func (h *Handler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	result, err := h.pipeline.Ask(c.Request.Context(), req.Query, req.K)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, queryResponse{
		Answer:    result.Answer,
		Contexts:  result.Contexts,
		LatencyMs: result.LatencyMs,
		Usage:     result.Usage,
	})
}
