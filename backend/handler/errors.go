package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grantdesk/applicants/backend/middleware"
	"github.com/grantdesk/applicants/backend/pkg/logger"
	"github.com/grantdesk/applicants/backend/service"
)

// apiError is the JSON body of every failed API call
type apiError struct {
	Error          string   `json:"error"`
	Code           string   `json:"code"`
	ShouldGenerate bool     `json:"shouldGenerate,omitempty"`
	MissingFields  []string `json:"missingFields,omitempty"`
	RequestID      string   `json:"request_id,omitempty"`
}

// classify maps a pipeline error onto a status and payload
func classify(err error) (int, apiError) {
	var incomplete *service.IncompleteSubjectError
	switch {
	case errors.Is(err, service.ErrUnknownKind):
		return http.StatusBadRequest, apiError{Error: "Unknown document kind", Code: "UNKNOWN_KIND"}
	case errors.Is(err, service.ErrSubjectNotFound):
		return http.StatusNotFound, apiError{Error: "Subject not found", Code: "SUBJECT_NOT_FOUND"}
	case errors.As(err, &incomplete):
		return http.StatusUnprocessableEntity, apiError{
			Error:         "Subject data is incomplete for this document",
			Code:          "INCOMPLETE_SUBJECT_DATA",
			MissingFields: incomplete.Fields,
		}
	case errors.Is(err, service.ErrGenerationUnavailable):
		return http.StatusServiceUnavailable, apiError{Error: "Document generation is currently unavailable", Code: "GENERATION_UNAVAILABLE"}
	case errors.Is(err, service.ErrNotGenerated):
		return http.StatusNotFound, apiError{Error: "Document has not been generated yet", Code: "NOT_GENERATED", ShouldGenerate: true}
	case errors.Is(err, service.ErrFileMissing):
		return http.StatusNotFound, apiError{Error: "Document file is missing, generate it again", Code: "FILE_MISSING", ShouldGenerate: true}
	case errors.Is(err, service.ErrPersistence):
		return http.StatusInternalServerError, apiError{Error: "Failed to persist document state", Code: "PERSISTENCE_ERROR"}
	case errors.Is(err, service.ErrInvalidChecksum):
		return http.StatusForbidden, apiError{Error: "Invalid checksum", Code: "INVALID_CHECKSUM"}
	case errors.Is(err, service.ErrInvalidCallback):
		return http.StatusBadRequest, apiError{Error: "Invalid callback content", Code: "INVALID_REQUEST"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, apiError{Error: "Request timed out, the document is still being generated", Code: "TIMEOUT"}
	default:
		return http.StatusInternalServerError, apiError{Error: "Internal server error", Code: "INTERNAL_ERROR"}
	}
}

// respondError writes the error payload for err and logs server side failures
func respondError(c *gin.Context, err error) {
	if errors.Is(err, context.Canceled) && c.Request.Context().Err() != nil {
		// client is gone
		c.Abort()
		return
	}

	status, body := classify(err)
	body.RequestID = middleware.GetRequestID(c)

	ctx := c.Request.Context()
	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "request failed", "code", body.Code, "error", err)
	} else {
		logger.Debug(ctx, "request rejected", "code", body.Code, "error", err)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func respondBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, apiError{
		Error:     message,
		Code:      "INVALID_REQUEST",
		RequestID: middleware.GetRequestID(c),
	})
}
