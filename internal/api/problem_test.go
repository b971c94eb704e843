package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperengineering/pulse/internal/approach"
	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/validation"
)

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestWriteProblem(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/objectives/abc", nil)

	WriteProblem(w, r, http.StatusNotFound, "Resource not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeProblem(t, w)
	assert.Equal(t, "https://pulse.hyperengineering.dev/errors/not-found", body["type"])
	assert.Equal(t, "Not Found", body["title"])
	assert.Equal(t, float64(404), body["status"])
	assert.Equal(t, "Resource not found", body["detail"])
	assert.Equal(t, "/api/v1/objectives/abc", body["instance"])
	assert.NotContains(t, body, "errors", "field errors only appear on 422")
}

func TestWriteProblem_UnknownStatus(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteProblem(w, r, http.StatusTeapot, "short and stout")

	body := decodeProblem(t, w)
	assert.Equal(t, "https://pulse.hyperengineering.dev/errors/unknown", body["type"])
	assert.Equal(t, "I'm a teapot", body["title"])
}

func TestWriteProblemWithErrors(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/activity", nil)

	WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{
		{Field: "limit", Message: "must be an integer"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeProblem(t, w)
	assert.Equal(t, "https://pulse.hyperengineering.dev/errors/validation-error", body["type"])
	assert.Equal(t, "Validation Error", body["title"])
	errs, ok := body["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "limit", errs[0].(map[string]any)["field"])
}

func TestMapStoreError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("objective x: %w", store.ErrNotFound), http.StatusNotFound},
		{"invalid input", fmt.Errorf("wrapped: %w", &approach.InvalidInputError{Errors: []validation.ValidationError{{Field: "period", Message: "bad"}}}), http.StatusUnprocessableEntity},
		{"anything else", errors.New("connection refused to 10.0.0.3"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/x", nil)

			MapStoreError(w, r, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.NotContains(t, w.Body.String(), "10.0.0.3", "internal details never leak")
		})
	}
}
