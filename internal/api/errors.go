package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/logging"
	"github.com/portal-admin/internal/types"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error *types.ServiceError `json:"error"`
}

// respondError converts err into its categorized status and JSON body.
// Causes of 5xx errors are logged, never returned.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := apperrors.Categorize(err)

	if catErr.StatusCode >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
			"code":   catErr.Code,
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
	}
	if catErr.Code == apperrors.CodeRateLimitExceeded {
		if seconds, ok := catErr.Details["retryAfter"].(int); ok && seconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
	}

	respondJSON(w, catErr.StatusCode, ErrorResponse{Error: catErr.ToServiceError()})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// parseJSONBody parses a JSON request body. Unknown fields, trailing data and
// oversized bodies are rejected as validation errors.
func parseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		return bodyError(err)
	}
	if decoder.More() {
		return apperrors.NewValidationError("request body must contain a single JSON object", nil)
	}
	return nil
}

func bodyError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, io.EOF):
		return apperrors.NewValidationError("request body is required", nil)
	case errors.As(err, &syntaxErr):
		return apperrors.NewValidationError("request body is not valid JSON", nil)
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apperrors.NewInvalidParameterError(field, "has the wrong type")
	case errors.As(err, &maxErr):
		return apperrors.NewValidationError("request body is too large", nil)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return apperrors.NewInvalidParameterError(field, "is not a known field")
	default:
		return apperrors.NewValidationError("invalid request body", nil)
	}
}
