package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metro-ticketing/internal/apperr"
	"metro-ticketing/internal/middleware"
	"metro-ticketing/internal/models"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
		wantErr   bool
	}{
		{"", 1, 10, false},
		{"page=3&limit=25", 3, 25, false},
		{"limit=500", 1, 100, false},
		{"page=0", 0, 0, true},
		{"limit=abc", 0, 0, true},
		{"page=21474836&limit=100", 21474836, 100, false},
		{"page=21474837&limit=100", 0, 0, true},
		{"page=922337203685477581&limit=100", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/x?"+tt.query, nil)
			page, limit, err := parsePagination(r)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"malformed", `{"email":`, "Invalid request body"},
		{"missing field", `{"fullName":"Al","phone":"5551234","password":"secret1"}`, "email is required"},
		{"bad email", `{"fullName":"Al","email":"nope","phone":"5551234","password":"secret1"}`, "email must be a valid email address"},
		{"short password", `{"fullName":"Al","email":"a@b.co","phone":"5551234","password":"x"}`, "password must be at least 6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/register", strings.NewReader(tt.body))
			var req models.RegisterRequest
			err := decodeAndValidate(r, &req)
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, apperr.MessageOf(err))
		})
	}

	r := httptest.NewRequest("POST", "/register", strings.NewReader(`{"fullName":"Al","email":"a@b.co","phone":"5551234","password":"secret1"}`))
	var req models.RegisterRequest
	require.NoError(t, decodeAndValidate(r, &req))
	assert.Equal(t, "a@b.co", req.Email)
}

func TestIssueTripValidation(t *testing.T) {
	r := httptest.NewRequest("POST", "/trips", strings.NewReader(`{"fromStation":1,"toStation":2,"numberOfPassengers":11}`))
	var req models.IssueTripRequest
	err := decodeAndValidate(r, &req)
	require.Error(t, err)
	assert.Equal(t, "numberOfPassengers must be at most 10", apperr.MessageOf(err))

	r = httptest.NewRequest("POST", "/trips", strings.NewReader(`{"fromStation":1,"toStation":2,"paymentMethod":"gold"}`))
	req = models.IssueTripRequest{}
	err = decodeAndValidate(r, &req)
	require.Error(t, err)
	assert.Equal(t, "paymentMethod must be one of: balance cash card", apperr.MessageOf(err))
}

func TestPathID(t *testing.T) {
	r := mux.SetURLVars(httptest.NewRequest("GET", "/trips/7", nil), map[string]string{"id": "7"})
	id, err := pathID(r, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	r = mux.SetURLVars(httptest.NewRequest("GET", "/trips/0", nil), map[string]string{"id": "0"})
	_, err = pathID(r, "id")
	require.Error(t, err)
}

func TestCurrentUser(t *testing.T) {
	r := httptest.NewRequest("GET", "/users/profile", nil)
	_, _, err := currentUser(r)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))

	r = r.WithContext(middleware.WithUser(r.Context(), 42, models.RoleAdmin))
	id, role, err := currentUser(r)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, models.RoleAdmin, role)
}
