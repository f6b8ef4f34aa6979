package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diagnosis/cardlink/internal/domain"
	"github.com/diagnosis/cardlink/pkg/logger"
)

// Envelope is the shape of every API response, success or failure.
type Envelope struct {
	HTTPStatusCode int         `json:"http_status_code"`
	Success        bool        `json:"success"`
	Message        string      `json:"message"`
	Data           interface{} `json:"data"`
}

func write(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.HTTPStatusCode)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Error("failed to encode response envelope", "error", err)
	}
}

func OK(w http.ResponseWriter, message string, data interface{}) {
	write(w, Envelope{
		HTTPStatusCode: http.StatusOK,
		Success:        true,
		Message:        message,
		Data:           data,
	})
}

func Created(w http.ResponseWriter, message string, data interface{}) {
	write(w, Envelope{
		HTTPStatusCode: http.StatusCreated,
		Success:        true,
		Message:        message,
		Data:           data,
	})
}

func Fail(w http.ResponseWriter, statusCode int, message string) {
	write(w, Envelope{
		HTTPStatusCode: statusCode,
		Success:        false,
		Message:        message,
		Data:           nil,
	})
}

// Error maps a service error to the failure taxonomy. Unexpected errors are
// logged and converted to a generic 500 so driver error text never reaches
// the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var locked *domain.LockedError
	switch {
	case domain.IsValidation(err):
		Fail(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &locked):
		Fail(w, http.StatusTooManyRequests, locked.Error())
	case errors.Is(err, domain.ErrRateLimited):
		Fail(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
	case errors.Is(err, domain.ErrInvalidCredentials):
		Fail(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrStaleResetToken),
		errors.Is(err, domain.ErrWrongTokenType):
		Fail(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		Fail(w, http.StatusForbidden, "Insufficient permissions")
	case errors.Is(err, domain.ErrLastAdmin):
		Fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNotConfigured):
		Fail(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrSlugTaken):
		Fail(w, http.StatusConflict, err.Error())
	default:
		logger.ErrorContext(r.Context(), "unexpected error", "error", err, "path", r.URL.Path)
		Fail(w, http.StatusInternalServerError, "Internal server error")
	}
}
