package domain

// UserProfile is the authenticated user as returned by /api/v3/users/me.json.
type UserProfile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Email     string `json:"email,omitempty"`
}

// DisplayName returns the human-facing name, falling back to the login.
func (u *UserProfile) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Login
}

// ProfileCache stores the last-known serialized profile. It is an optimistic
// hint only: the session manager always revalidates against the network after
// rehydrating from it. Same fail-open read contract as CredentialStore.
type ProfileCache interface {
	Get() (*UserProfile, error)
	Set(UserProfile) error
	Clear() error
}
