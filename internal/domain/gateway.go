package domain

import "context"

// Gateway is the remote collaborator surface the session core drives. The
// production implementation lives in internal/api; tests substitute fakes.
type Gateway interface {
	// ExchangeCredentials performs the resource-owner password grant and
	// returns the bearer token.
	ExchangeCredentials(ctx context.Context, username, password string) (string, error)

	// FetchCurrentUser returns the profile for the current bearer token, or
	// nil when the server resolves no user (token revoked server-side).
	FetchCurrentUser(ctx context.Context) (*UserProfile, error)

	// FetchUnreadCount returns the unread notification count.
	FetchUnreadCount(ctx context.Context) (int, error)

	// RegisterDevice and UnregisterDevice manage the push registration for
	// this installation. Both are best-effort from the caller's perspective.
	RegisterDevice(ctx context.Context, token string) error
	UnregisterDevice(ctx context.Context, token string) error

	// SetBearerToken updates the Authorization header applied to subsequent
	// requests. An empty token clears it.
	SetBearerToken(token string)
}
