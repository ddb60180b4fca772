package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthError_UnwrapsToInvalidCredentials(t *testing.T) {
	err := &AuthError{Code: "invalid_grant"}
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestAuthError_IncludesDescription(t *testing.T) {
	err := &AuthError{Code: "invalid_grant", Description: "wrong password"}
	assert.Contains(t, err.Error(), "wrong password")
}

func TestRequestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &RequestError{Err: cause}
	assert.ErrorIs(t, err, cause)
}

func TestIsUnauthorized(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"401 response", &RequestError{Status: 401, Err: errors.New("unauthorized")}, true},
		{"wrapped 401", fmt.Errorf("refresh: %w", &RequestError{Status: 401, Err: errors.New("unauthorized")}), true},
		{"500 response", &RequestError{Status: 500, Err: errors.New("boom")}, false},
		{"connection error", &RequestError{Err: errors.New("timeout")}, false},
		{"auth error", &AuthError{Code: "invalid_grant"}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUnauthorized(tt.err))
		})
	}
}
