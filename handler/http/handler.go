package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"evalrag/src/core/eval"
	"evalrag/src/core/rag"
)

type Handler struct {
	pipeline     eval.Asker
	evalService  *eval.Service
	healthChecks map[string]HealthCheck
}

func NewHandler(pipeline eval.Asker, evalService *eval.Service) *Handler {
	return &Handler{
		pipeline:    pipeline,
		evalService: evalService,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	// Query routes
	v1.POST("/query", h.Query)

	// Eval run routes
	v1.POST("/eval-runs", h.StartEvalRun)
	v1.GET("/eval-runs/:id/summary", h.GetEvalRunSummary)
	v1.GET("/eval-runs/:id/items", h.ListEvalRunItems)

	// System routes
	v1.GET("/health", h.CheckHealth)
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func sendError(c *gin.Context, status int, err error) {
	var code string
	var cfgErr *rag.ConfigurationError
	var retErr *rag.RetrievalError
	var genErr *rag.GenerationError
	switch {
	case errors.As(err, &cfgErr):
		code = "INVALID_CONFIGURATION"
		status = http.StatusBadRequest
	case errors.As(err, &retErr):
		code = "RETRIEVAL_FAILED"
		status = http.StatusBadGateway
	case errors.As(err, &genErr):
		code = "GENERATION_FAILED"
		status = http.StatusBadGateway
	default:
		if status == 0 {
			status = http.StatusInternalServerError
		}
		switch status {
		case http.StatusBadRequest:
			code = "BAD_REQUEST"
		case http.StatusNotFound:
			code = "NOT_FOUND"
		default:
			code = "INTERNAL_ERROR"
		}
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
