package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/storyvault/storyvault/pkg/storyvault"
)

// ErrorResponse is the JSON error envelope returned by every endpoint.
type ErrorResponse struct {
	Error   bool          `json:"error"`
	Message string        `json:"message"`
	Details *ErrorDetails `json:"details,omitempty"`
}

// ErrorDetails carries structured context for client-side handling.
type ErrorDetails struct {
	MaxSizeMB      float64 `json:"max_size_mb,omitempty"`
	ReceivedSizeMB float64 `json:"received_size_mb,omitempty"`
	Limit          int     `json:"limit,omitempty"`
	Count          int     `json:"count,omitempty"`
}

func toMB(bytes int64) float64 {
	return float64(bytes) / (1 << 20)
}

// writeError is the single translation point from service errors to HTTP
// responses. Internal failures are logged with detail but reported to the
// client with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		tooLargeErr *storyvault.PayloadTooLargeError
		quotaErr    *storyvault.QuotaExceededError
		schemaErr   *storyvault.SchemaError
		corruptErr  *storyvault.CorruptError
	)

	switch {
	case errors.As(err, &tooLargeErr):
		details := &ErrorDetails{MaxSizeMB: toMB(tooLargeErr.Limit)}
		if tooLargeErr.Received >= 0 {
			details.ReceivedSizeMB = toMB(tooLargeErr.Received)
		}
		writeEnvelope(w, r, http.StatusRequestEntityTooLarge, "Request body too large", details)

	case errors.As(err, &quotaErr):
		writeEnvelope(w, r, http.StatusTooManyRequests, err.Error(), &ErrorDetails{
			Limit: quotaErr.Limit,
			Count: quotaErr.Count,
		})

	case errors.Is(err, storyvault.ErrNotFound):
		writeEnvelope(w, r, http.StatusNotFound, "Not found", nil)

	case errors.As(err, &schemaErr),
		errors.Is(err, storyvault.ErrInvalidEntityType),
		errors.Is(err, storyvault.ErrInvalidDataFilename):
		writeEnvelope(w, r, http.StatusBadRequest, err.Error(), nil)

	case errors.As(err, &corruptErr):
		slog.Error("Stored object is corrupt", "path", r.URL.Path, "error", err)
		writeEnvelope(w, r, http.StatusInternalServerError, "Stored object is corrupt", nil)

	default:
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeEnvelope(w, r, http.StatusInternalServerError, "Internal server error", nil)
	}
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeEnvelope(w, r, http.StatusBadRequest, message, nil)
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, message string, details *ErrorDetails) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: true, Message: message, Details: details})
}
