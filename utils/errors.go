package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"car-assist-rag/internal/ai"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithUnauthorized sends a 401 Unauthorized error
func RespondWithUnauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, "unauthorized", message, nil)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithServiceError translates an AI boundary failure into a
// user-facing response distinguishing "temporary - retry" from
// "configuration problem - fix setup".
func RespondWithServiceError(c *gin.Context, err error) {
	var se *ai.ServiceError
	if errors.As(err, &se) {
		if se.Retryable() {
			RespondWithError(c, http.StatusServiceUnavailable, "service_unavailable",
				"The "+se.Service+" service is temporarily unavailable. Please retry in a moment.",
				gin.H{"kind": se.Kind})
			return
		}
		RespondWithError(c, http.StatusBadGateway, "service_misconfigured",
			"The "+se.Service+" service rejected the request. Check API credentials and configuration.",
			gin.H{"kind": se.Kind})
		return
	}
	RespondWithInternalError(c, "Request failed", gin.H{"error": err.Error()})
}
