package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/pypindex/pypindex"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteHTML writes an HTML response
func WriteHTML(w http.ResponseWriter, code int, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if _, err := io.WriteString(w, page); err != nil {
		slog.Error("failed to write html response", "error", err)
	}
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	if errors.Is(err, pypindex.ErrNotFound) {
		writeNotFoundPage(w)
		return
	}

	if errors.Is(err, pypindex.ErrUnauthorized) {
		WriteError(w, http.StatusForbidden, "unauthorized", err.Error())
		return
	}

	if errors.Is(err, pypindex.ErrStorageAuth) {
		WriteError(w, http.StatusBadGateway, "storage_auth", "Storage rejected the server credentials")
		return
	}

	if errors.Is(err, pypindex.ErrStorageUnavailable) {
		WriteError(w, http.StatusServiceUnavailable, "storage_unavailable", "Storage backend unavailable")
		return
	}

	WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}
