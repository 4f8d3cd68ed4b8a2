package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/creatorhub/jobcore/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, ErrorParams{Code: http.StatusRequestEntityTooLarge, ErrCode: "body_too_large", Err: err})
			return false
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
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

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// errInternal replaces messages of unclassified errors so infrastructure details never reach callers.
var errInternal = errors.New("internal server error")

// WriteServiceError renders a service error using its AppError code. Errors without a code are
// reported as 500 with a generic message; the caller is expected to have logged them.
func WriteServiceError(w http.ResponseWriter, err error) {
	status, code := statusForError(err)
	if status == http.StatusInternalServerError {
		err = errInternal
	}
	WriteError(w, ErrorParams{Code: status, ErrCode: code, Err: err})
}

func statusForError(err error) (int, string) {
	code := apperrors.GetCode(err)
	switch code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound, string(code)
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest, string(code)
	case apperrors.ErrCodeConflict, apperrors.ErrCodeForeignKey, apperrors.ErrCodeInvalidState:
		return http.StatusConflict, string(code)
	case apperrors.ErrCodeQuotaExceeded:
		return http.StatusTooManyRequests, string(code)
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized, string(code)
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden, string(code)
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, string(code)
	case apperrors.ErrCodeCanceled:
		return http.StatusRequestTimeout, string(code)
	default:
		return http.StatusInternalServerError, string(apperrors.ErrCodeInternal)
	}
}
