package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidCredentials is the token exchange rejecting the username or
	// password. Every *AuthError unwraps to it.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProfileMissing is a successful token exchange followed by a user
	// fetch that resolved no user.
	ErrProfileMissing = errors.New("authenticated but no user profile returned")

	// ErrLoginInFlight rejects a login attempt while another one is pending.
	ErrLoginInFlight = errors.New("another login attempt is in flight")

	// ErrLoggedOut is an operation that requires an active session.
	ErrLoggedOut = errors.New("not logged in")

	// ErrSuperseded discards a network result that arrived after the session
	// state it was computed against was torn down.
	ErrSuperseded = errors.New("session state changed before the result arrived")
)

// AuthError carries the OAuth error code from a rejected token exchange.
type AuthError struct {
	Code        string
	Description string
}

func (e *AuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("token exchange rejected (%s): %s", e.Code, e.Description)
	}
	return fmt.Sprintf("token exchange rejected (%s)", e.Code)
}

func (e *AuthError) Unwrap() error { return ErrInvalidCredentials }

// RequestError is a transport-level failure: a connection error (Status 0) or
// a non-2xx response.
type RequestError struct {
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("request failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a 401 response, meaning the server
// rejected the bearer token.
func IsUnauthorized(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Status == http.StatusUnauthorized
}
