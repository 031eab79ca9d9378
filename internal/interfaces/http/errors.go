package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/dmt-records/internal/domain/entity"
	"github.com/garyjia/dmt-records/internal/domain/policy"
	"github.com/garyjia/dmt-records/internal/domain/workflow"
)

// ErrorDetails carries machine-readable context for rejected requests
type ErrorDetails struct {
	Role    string   `json:"role,omitempty"`
	Field   string   `json:"field,omitempty"`
	Fields  []string `json:"fields,omitempty"`
	Allowed []string `json:"allowed,omitempty"`
}

// statusFor maps a service error to an HTTP status and optional details
func statusFor(err error) (int, *ErrorDetails) {
	var forbidden *policy.ForbiddenError
	var violation *workflow.ViolationError

	switch {
	case errors.As(err, &forbidden):
		return http.StatusForbidden, &ErrorDetails{
			Role:    string(forbidden.Role),
			Fields:  fieldNames(forbidden.Fields),
			Allowed: fieldNames(forbidden.Allowed),
		}
	case errors.Is(err, entity.ErrOperationNotAllowed):
		return http.StatusForbidden, nil
	case errors.Is(err, entity.ErrRecordNotFound):
		return http.StatusNotFound, nil
	case errors.Is(err, entity.ErrRecordClosed):
		return http.StatusConflict, nil
	case errors.As(err, &violation):
		return http.StatusUnprocessableEntity, &ErrorDetails{Field: string(violation.Field)}
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrGuardFailed):
		return http.StatusUnprocessableEntity, nil
	case errors.Is(err, entity.ErrInvalidInput):
		return http.StatusBadRequest, nil
	default:
		return http.StatusInternalServerError, nil
	}
}

func (h *Handlers) writeError(c *gin.Context, op string, err error) {
	status, details := statusFor(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "error", err)
		msg = "internal server error"
	} else {
		h.logger.Warn("Request rejected", "op", op, "status", status, "error", err)
	}

	resp := Response{Success: false, Error: msg}
	if details != nil {
		resp.Details = details
	}
	c.JSON(status, resp)
}

func fieldNames(fields []entity.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}
