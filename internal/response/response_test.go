package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metro-ticketing/internal/apperr"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	p = NewPagination(1, 10, 0)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrev)
}

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, "Trip issued", map[string]int{"id": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Trip issued", body["message"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotContains(t, body, "pagination")
}

func TestSuccessWithNilData(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusOK, "Deleted", nil)

	body := decode(t, rec)
	assert.Contains(t, body, "data")
	assert.Nil(t, body["data"])
}

func TestPaginatedEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, "Trips", []int{1, 2}, NewPagination(1, 2, 3))

	body := decode(t, rec)
	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["totalPages"])
	assert.Equal(t, true, pagination["hasNext"])
}

func TestFromError(t *testing.T) {
	rec := httptest.NewRecorder()
	FromError(rec, zerolog.Nop(), apperr.New(apperr.KindNotFound, "trip not found"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "trip not found", body["message"])
	assert.NotContains(t, body, "data")

	rec = httptest.NewRecorder()
	FromError(rec, zerolog.Nop(), errors.New("sql: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["message"])
}
