package handler

import (
	"errors"
	"net/http"

	"go-jobflow/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/moogar0880/problems"
)

func badRequest(c *gin.Context, detail string) {
	problem := problems.NewStatusProblem(http.StatusBadRequest).
		WithInstance(c.Request.URL.Path).
		WithType("validation_error").
		WithDetail(detail)

	c.AbortWithStatusJSON(http.StatusBadRequest, problem)
}

func problemUnauthorized(c *gin.Context) {
	problem := problems.NewStatusProblem(http.StatusUnauthorized).
		WithInstance(c.Request.URL.Path).
		WithType("unauthorized").
		WithDetail("missing or invalid " + UserHeader + " header")

	c.AbortWithStatusJSON(http.StatusUnauthorized, problem)
}

// handleServiceError maps domain errors to problem responses.
func handleServiceError(c *gin.Context, err error) {
	status, kind := http.StatusInternalServerError, "internal_error"

	switch {
	case errors.Is(err, domain.ErrWorkflowNotFound):
		status, kind = http.StatusNotFound, "workflow_not_found"
	case errors.Is(err, domain.ErrExecutionNotFound):
		status, kind = http.StatusNotFound, "execution_not_found"
	case errors.Is(err, domain.ErrWebhookNotFound):
		status, kind = http.StatusNotFound, "webhook_not_found"
	case errors.Is(err, domain.ErrInvalidWorkflowState):
		status, kind = http.StatusConflict, "invalid_workflow_state"
	case errors.Is(err, domain.ErrConcurrencyLimitExceeded):
		status, kind = http.StatusConflict, "concurrency_limit_exceeded"
	case errors.Is(err, domain.ErrExecutionNotActive):
		status, kind = http.StatusConflict, "execution_not_active"
	case domain.IsConfigurationError(err):
		status, kind = http.StatusUnprocessableEntity, "invalid_workflow"
	}

	problem := problems.NewStatusProblem(status).
		WithInstance(c.Request.URL.Path).
		WithType(kind)
	if status == http.StatusInternalServerError {
		// Don't expose details of unexpected errors
		_ = c.Error(err)
		problem = problem.WithDetail("unexpected error")
	} else {
		problem = problem.WithDetail(err.Error())
	}

	c.AbortWithStatusJSON(status, problem)
}
