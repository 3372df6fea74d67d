// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorHandler converts internal errors into HTTP responses with a
// standardized JSON body.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// WriteHTTP logs the error and writes it as a JSON response. Partial fan-out
// failures never reach this path; only structural input errors and genuine
// internal failures do.
func (h *ErrorHandler) WriteHTTP(w http.ResponseWriter, err error) {
	stdErr := Normalize(err)

	h.logger.Error("request failed", map[string]interface{}{
		"errorCode": string(stdErr.Code),
		"message":   stdErr.Message,
		"details":   stdErr.Details,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(stdErr.Code))
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": stdErr,
	})
}

func httpStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNoConnectors, ErrCodeInvalidCriteria:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
