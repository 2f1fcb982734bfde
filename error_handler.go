package jwksmiddleware

import (
	"errors"
	"net/http"

	"github.com/tokengate/go-jwks-middleware/validator"
)

// ErrorHandler is called when token validation fails. It owns the HTTP
// response for the failure.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler responds to every authentication failure with the
// same 401 and a fixed JSON body, never revealing which internal check
// failed; the category is available to logs and metrics only. Errors that
// did not originate from validation get a 500.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")

	if errors.Is(err, validator.ErrTokenInvalid) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized","message":"Invalid or missing authentication token."}`))
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"internal","message":"Something went wrong while checking the token."}`))
}
