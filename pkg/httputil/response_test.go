package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteJSON(w, http.StatusOK, map[string]string{"message": "success"})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "success")
}

func TestSuccessHelpers(t *testing.T) {
	w := httptest.NewRecorder()
	assert.NoError(t, WriteSuccess(w, map[string]string{"status": "ok"}))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	assert.NoError(t, WriteCreated(w, map[string]int{"id": 123}))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "123")

	w = httptest.NewRecorder()
	WriteNoContent(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w http.ResponseWriter)
		status  int
		message string
	}{
		{"WriteBadRequest", func(w http.ResponseWriter) { WriteBadRequest(w, "bad input") }, http.StatusBadRequest, "bad input"},
		{"WriteValidationError", func(w http.ResponseWriter) { WriteValidationError(w, "name is required") }, http.StatusBadRequest, "name is required"},
		{"WriteUnauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "invalid credentials") }, http.StatusUnauthorized, "invalid credentials"},
		{"WriteForbidden", func(w http.ResponseWriter) { WriteForbidden(w, "access denied") }, http.StatusForbidden, "access denied"},
		{"WriteNotFoundError", func(w http.ResponseWriter) { WriteNotFoundError(w, "tree not found") }, http.StatusNotFound, "tree not found"},
		{"WriteConflict", func(w http.ResponseWriter) { WriteConflict(w, "relationship already recorded") }, http.StatusConflict, "relationship already recorded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, errorBody(t, w))
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusBadRequest, errors.New("boom"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "boom", errorBody(t, w))

	w = httptest.NewRecorder()
	WriteInternalError(w, errors.New("db gone"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "db gone", errorBody(t, w))
}
