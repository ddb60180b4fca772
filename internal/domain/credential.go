package domain

import "time"

// Credential is the OAuth2 bearer credential of the current session. Exactly
// zero or one instance is persisted at a time.
type Credential struct {
	AccessToken string    `json:"access_token"`
	IssuedAt    time.Time `json:"issued_at"`
}

// CredentialStore persists the credential in storage appropriate for secrets.
// Implementations must treat read failures as "absent", so a broken store
// degrades to a logged-out session instead of aborting startup.
type CredentialStore interface {
	Get() (*Credential, error)
	Set(Credential) error
	Clear() error
}
