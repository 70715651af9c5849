package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{
			name:       "plain error becomes internal",
			err:        stderrors.New("boom"),
			wantCode:   ErrCodeInternal,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "app error is kept",
			err:        NotFound("Customer"),
			wantCode:   ErrCodeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "wrapped app error is found",
			err:        fmt.Errorf("lookup: %w", Unauthorized("Invalid token")),
			wantCode:   ErrCodeUnauthorized,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "provider failures surface as 500",
			err:        ProviderAPIError("Stripe", stderrors.New("timeout")),
			wantCode:   ErrCodeProviderAPI,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(tt.err)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
		})
	}

	assert.Nil(t, From(nil))
}

func TestFrom_KeepsRawMessage(t *testing.T) {
	got := From(stderrors.New("connection refused"))
	assert.Equal(t, "connection refused", got.Message)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("Profile")))
	assert.True(t, IsNotFound(fmt.Errorf("x: %w", NotFound("Profile"))))
	assert.False(t, IsNotFound(BadRequest("nope")))
	assert.False(t, IsNotFound(stderrors.New("plain")))
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("db down")
	err := DatabaseError("Failed to get profile", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to get profile: db down", err.Error())
}
