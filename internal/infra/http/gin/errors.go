package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	domainbooking "staybook/internal/domain/booking"
)

// statusFor maps the booking error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainbooking.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domainbooking.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, domainbooking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainbooking.ErrOutOfWindow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domainbooking.ErrListingInactive),
		errors.Is(err, domainbooking.ErrDateUnavailable),
		errors.Is(err, domainbooking.ErrBookingOverlap),
		errors.Is(err, domainbooking.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domainbooking.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	kind := domainbooking.KindOf(err)
	c.Set("error_kind", kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed", "error", err, "path", c.FullPath())
		}
		msg = "internal error"
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	c.JSON(status, gin.H{"error": msg, "kind": kind})
}

func badRequest(c *gin.Context, err error) {
	c.Set("error_kind", "ValidationError")
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "ValidationError"})
}
