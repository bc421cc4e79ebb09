package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/pkg/errors"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// statusFor maps engine error codes onto HTTP statuses.
func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrEntryNotFound, apperrors.ErrOfferNotFound:
		return http.StatusNotFound
	case apperrors.ErrOfferNotPending, apperrors.ErrEntryNotActive:
		return http.StatusConflict
	case apperrors.ErrOfferExpired:
		return http.StatusGone
	case apperrors.ErrScheduleUnavailable, apperrors.ErrNoCandidates:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		traceID := c.GetString(ContextRequestID)

		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", traceID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("Request error")
		}

		lastErr := c.Errors.Last()

		var ae *apperrors.AppError
		if errors.As(lastErr.Err, &ae) {
			c.JSON(statusFor(ae.Code), ErrorResponse{
				Code:    string(ae.Code),
				Message: ae.Message,
				TraceID: traceID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    string(apperrors.ErrInternal),
			Message: "internal error",
			TraceID: traceID,
		})
	}
}
