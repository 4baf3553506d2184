package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/campus-admin/admingate/internal/errors"
	"github.com/campus-admin/admingate/internal/service"
)

const maxJSONBody = 1 << 20

// Public messages for auth responses. Internal causes are logged, never returned.
const (
	msgCredentialsRequired = "Email and password are required"
	msgInvalidCredentials  = "Invalid email or password"
	msgAuthRequired        = "Authentication required"
	msgNotAdmin            = "Unauthorized access - Not an admin"
	msgAccountDisabled     = "Account is disabled"
	msgRateLimited         = "Too many login attempts. Please try again later."
	msgInternal            = "Internal server error"
	msgMethodNotAllowed    = "Method not allowed"
)

// DecodeJSON decodes a size-limited JSON request body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	return dec.Decode(dst)
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

type failureBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeFailure writes the {success:false, error} shape shared by the auth endpoints and the API guard.
func writeFailure(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, failureBody{Error: message})
}

// authErrorResponse maps the error taxonomy to a status and a fixed public message.
// Anything unclassified is an internal error: auth fails closed.
func authErrorResponse(err error) (int, string) {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest, msgCredentialsRequired
	case apperrors.ErrCodeInvalidCredential:
		return http.StatusUnauthorized, msgInvalidCredentials
	case apperrors.ErrCodeMissingCredential, apperrors.ErrCodeRefreshExhausted:
		return http.StatusUnauthorized, msgAuthRequired
	case apperrors.ErrCodeNotAuthorized:
		return http.StatusForbidden, msgNotAdmin
	case apperrors.ErrCodeAccountDisabled:
		return http.StatusForbidden, msgAccountDisabled
	case apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests, msgRateLimited
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// setRetryAfter sets Retry-After in whole seconds, rounding up.
func setRetryAfter(w http.ResponseWriter, err error) {
	var rl *service.RateLimitedError
	if !errors.As(err, &rl) {
		return
	}
	secs := int((rl.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}

// methodNotAllowed is the router's 405 handler.
func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeFailure(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}
