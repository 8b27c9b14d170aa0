package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs_MatchesByKind(t *testing.T) {
	err := Wrap(KindInvalidLimit, "limit must be between 1 and 100", nil)
	wrapped := fmt.Errorf("search: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInvalidLimit))
	assert.False(t, errors.Is(wrapped, ErrInputTooLong))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"typed", RateLimited("slow down", time.Second, nil), KindRateLimitExceeded},
		{"wrapped", fmt.Errorf("outer: %w", Unavailable("down", nil)), KindUpstreamUnavailable},
		{"plain", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindInputTooLong, http.StatusBadRequest},
		{KindInvalidCharacters, http.StatusBadRequest},
		{KindInvalidIdentifier, http.StatusBadRequest},
		{KindInvalidLimit, http.StatusBadRequest},
		{KindRateLimitExceeded, http.StatusTooManyRequests},
		{KindUpstreamUnavailable, http.StatusServiceUnavailable},
		{KindNotFound, http.StatusNotFound},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.kind, "x").HTTPStatus())
		})
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("search request failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, err.IsClientError())
	assert.True(t, New(KindInvalidIdentifier, "bad id").IsClientError())
}
