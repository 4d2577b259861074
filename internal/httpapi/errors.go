package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/limitofzero/balances-watcher/internal/domain"
)

// appError carries an HTTP status plus a client-facing message.
type appError struct {
	status  int
	message string
}

func (e *appError) Error() string { return e.message }

func badRequest(message string) *appError {
	return &appError{status: http.StatusBadRequest, message: message}
}

func notFound(message string) *appError {
	return &appError{status: http.StatusNotFound, message: message}
}

func internalErr(message string) *appError {
	return &appError{status: http.StatusInternalServerError, message: message}
}

// classifySubscriptionError maps the subscription manager's book-keeping
// errors to HTTP status: NoSession -> 404; everything else (TooManyClients,
// the NoClients refcount underflow) indicates the registry is in an
// unexpected state and maps to 500.
func classifySubscriptionError(err error) *appError {
	if errors.Is(err, domain.ErrNoSession) {
		return notFound(err.Error())
	}
	return internalErr(err.Error())
}

// errorBody is the `{code, message}` wire shape of every non-2xx response,
// the same shape as the SSE adapter's `error` event body.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err *appError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.status)
	_ = json.NewEncoder(w).Encode(errorBody{Code: err.status, Message: err.message})
}
