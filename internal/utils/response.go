package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"hospital-ops-server/internal/scheduling"
)

// ResponseData represents the structure of a standard API response.
type ResponseData struct {
	Status  int                    `json:"status"`
	Message string                 `json:"message"`
	Data    interface{}            `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Kind    string                 `json:"kind,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Success sends a standard success response.
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, ResponseData{
		Status:  http.StatusCreated,
		Message: message,
		Data:    data,
	})
}

// Error sends a standard error response.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, ResponseData{
		Status:  statusCode,
		Message: "An error occurred",
		Error:   errorMessage,
	})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, errorMessage string) {
	Error(c, http.StatusBadRequest, errorMessage)
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *gin.Context, errorMessage string) {
	Error(c, http.StatusForbidden, errorMessage)
}

// InternalServerError sends a 500 Internal Server Error response.
func InternalServerError(c *gin.Context, errorMessage string) {
	Error(c, http.StatusInternalServerError, errorMessage)
}

// StatusForKind maps a scheduling error kind to its HTTP status.
func StatusForKind(kind scheduling.ErrorKind) int {
	switch kind {
	case scheduling.KindNotFound:
		return http.StatusNotFound
	case scheduling.KindSlotConflict:
		return http.StatusConflict
	case scheduling.KindForbidden:
		return http.StatusForbidden
	case scheduling.KindInvalidTransition, scheduling.KindPolicyDenied, scheduling.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as an error envelope. Classified errors keep their
// message and arguments; anything else is logged and answered with a generic 500.
func RespondError(c *gin.Context, log zerolog.Logger, err error) {
	var se *scheduling.Error
	if !errors.As(err, &se) {
		log.Error().Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.FullPath()).
			Msg("request failed")
		InternalServerError(c, "Internal server error")
		return
	}

	status := StatusForKind(se.Kind)
	c.JSON(status, ResponseData{
		Status:  status,
		Message: "An error occurred",
		Error:   se.Message,
		Kind:    string(se.Kind),
		Details: detailsOf(se),
	})
}

func detailsOf(se *scheduling.Error) map[string]interface{} {
	if len(se.Args) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(se.Args))
	for k, v := range se.Args {
		out[k] = v
	}
	var inner *scheduling.Error
	if errors.As(errors.Unwrap(se), &inner) && inner.Message != "" {
		out["cause"] = inner.Message
	}
	return out
}
