package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authdomain "github.com/billfold/billfold/internal/auth/domain"
	dashboarddomain "github.com/billfold/billfold/internal/dashboard/domain"
	invoicedomain "github.com/billfold/billfold/internal/invoice/domain"
	"github.com/billfold/billfold/internal/observability/logger"
)

// apiError carries an HTTP status plus a machine-readable code for the
// response envelope.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *apiError) Error() string { return e.Code }

var (
	ErrUnauthorized       = &apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "authentication required"}
	ErrForbidden          = &apiError{Status: http.StatusForbidden, Code: "forbidden", Message: "access denied"}
	ErrNotFound           = &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrTooManyRequests    = &apiError{Status: http.StatusTooManyRequests, Code: "too_many_requests", Message: "too many requests"}
	ErrServiceUnavailable = &apiError{Status: http.StatusServiceUnavailable, Code: "service_unavailable", Message: "service unavailable"}
)

func invalidRequestError() *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "request body could not be parsed"}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: code, Field: field, Message: message}
}

// AbortWithError translates domain errors into HTTP responses. Unknown
// errors become 500 and get logged with the request context.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal server error"

	switch {
	case errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, authdomain.ErrUserNotFound):
		status, code, message = http.StatusNotFound, err.Error(), "resource not found"
	case errors.Is(err, invoicedomain.ErrInvalidInvoiceID),
		errors.Is(err, invoicedomain.ErrInvalidStatus),
		errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrWeakPassword):
		status, code, message = http.StatusBadRequest, err.Error(), "invalid request"
	case errors.Is(err, authdomain.ErrEmailTaken):
		status, code, message = http.StatusConflict, err.Error(), "email already registered"
	case errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidToken):
		status, code, message = http.StatusUnauthorized, err.Error(), "invalid credentials"
	case errors.Is(err, invoicedomain.ErrInvalidUser),
		errors.Is(err, dashboarddomain.ErrInvalidUser):
		status, code, message = http.StatusUnauthorized, "unauthorized", "authentication required"
	}

	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(status, gin.H{"error": &apiError{Status: status, Code: code, Message: message}})
}
