package http_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pypindex/pypindex"
	pypindexhttp "github.com/pypindex/pypindex/http"
)

func TestWriteHTML(t *testing.T) {
	rec := httptest.NewRecorder()
	pypindexhttp.WriteHTML(rec, http.StatusOK, "<html>page</html>")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<html>page</html>", rec.Body.String())
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "not found", err: pypindex.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "unauthorized", err: fmt.Errorf("signature mismatch: %w", pypindex.ErrUnauthorized), wantStatus: http.StatusForbidden},
		{name: "storage auth", err: fmt.Errorf("list: %w", pypindex.ErrStorageAuth), wantStatus: http.StatusBadGateway},
		{name: "storage unavailable", err: fmt.Errorf("list: %w", pypindex.ErrStorageUnavailable), wantStatus: http.StatusServiceUnavailable},
		{name: "unknown error", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			pypindexhttp.HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusNotFound {
				var resp pypindexhttp.ErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.NotEmpty(t, resp.Error)
			}
		})
	}
}
