package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	sentinel := New(KindNotFound, "trip not found")
	wrapped := fmt.Errorf("redeem: %w", sentinel)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, sentinel))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:    http.StatusBadRequest,
		KindStateConflict: http.StatusBadRequest,
		KindAuth:          http.StatusUnauthorized,
		KindForbidden:     http.StatusForbidden,
		KindNotFound:      http.StatusNotFound,
		KindConflict:      http.StatusConflict,
		KindInternal:      http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestMessageOfHidesInternalErrors(t *testing.T) {
	assert.Equal(t, "Internal server error", MessageOf(errors.New("dial tcp: connection refused")))
	assert.Equal(t, "Internal server error", MessageOf(&Error{Kind: KindInternal, Message: "db down", Err: errors.New("x")}))
	assert.Equal(t, "amount must be greater than zero", MessageOf(Validation("amount must be greater than zero")))
}

func TestErrorString(t *testing.T) {
	err := &Error{Kind: KindConflict, Message: "station already exists", Err: errors.New("duplicate key")}
	assert.Equal(t, "station already exists: duplicate key", err.Error())
	assert.Equal(t, "duplicate key", errors.Unwrap(err).Error())
}
