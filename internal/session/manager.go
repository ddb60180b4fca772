package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/testerhome/ruby-china-ios/internal/bus"
	"github.com/testerhome/ruby-china-ios/internal/domain"
	"github.com/testerhome/ruby-china-ios/internal/logging"
	"github.com/testerhome/ruby-china-ios/internal/metrics"
)

// Manager is the session state machine. Construct one per process with
// NewManager and share it; all methods are safe for concurrent use.
type Manager struct {
	creds    domain.CredentialStore
	profiles domain.ProfileCache
	gateway  domain.Gateway
	bus      *bus.Bus
	clock    clockwork.Clock

	group singleflight.Group

	mu            sync.Mutex
	epoch         uint64
	loginInFlight bool
	credential    *domain.Credential
	profile       *domain.UserProfile
	unread        int
	deviceToken   string
}

func NewManager(creds domain.CredentialStore, profiles domain.ProfileCache, gateway domain.Gateway, b *bus.Bus, clock clockwork.Clock) *Manager {
	return &Manager{
		creds:    creds,
		profiles: profiles,
		gateway:  gateway,
		bus:      b,
		clock:    clock,
	}
}

// IsLoggedIn reports whether both a credential and a profile are present.
func (m *Manager) IsLoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credential != nil && m.profile != nil
}

// CurrentUser returns a copy of the current profile, or nil when logged out.
func (m *Manager) CurrentUser() *domain.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil
	}
	p := *m.profile
	return &p
}

// UnreadCount returns the last reconciled unread notification count.
func (m *Manager) UnreadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unread
}

// Initialize rehydrates the session from the stores. Store reads fail open, so
// a broken store just means starting logged out. A credential with no cached
// profile is kept but not treated as logged in until Reconcile confirms it.
func (m *Manager) Initialize() {
	cred, _ := m.creds.Get()
	if cred == nil {
		// no credential means no session; drop any orphaned profile hint
		_ = m.profiles.Clear()
		metrics.SessionState.Set(0)
		return
	}
	profile, _ := m.profiles.Get()

	m.mu.Lock()
	m.credential = cred
	m.profile = profile
	m.gateway.SetBearerToken(cred.AccessToken)
	m.mu.Unlock()

	if profile != nil {
		metrics.SessionState.Set(1)
		slog.Info("Session rehydrated from cache", "user", profile.Login)
		m.bus.Publish(bus.UserChanged)
	} else {
		metrics.SessionState.Set(0)
		slog.Info("Found credential without cached profile, awaiting revalidation")
	}
}

// Reconcile revalidates a rehydrated session against the server: it refreshes
// the profile and, on success, the unread count. When the server reports the
// stored credential invalid (unauthorized, or no user resolves for it), the
// local session is torn down and both stores cleared. Plain network failures
// leave the optimistic state untouched.
func (m *Manager) Reconcile(ctx context.Context) {
	m.mu.Lock()
	if m.credential == nil {
		m.mu.Unlock()
		return
	}
	epoch := m.epoch
	m.mu.Unlock()

	if err := m.RefreshProfile(ctx); err != nil {
		switch {
		case errors.Is(err, domain.ErrProfileMissing) || domain.IsUnauthorized(err):
			slog.Warn("Stored credential no longer valid, signing out", "error", err)
			m.forceSignOut(epoch)
		case errors.Is(err, domain.ErrSuperseded), errors.Is(err, domain.ErrLoggedOut):
		default:
			slog.Warn("Profile reconciliation failed, keeping cached session", "error", err)
		}
		return
	}

	if err := m.RefreshUnreadCount(ctx); err != nil {
		slog.Debug("Unread count reconciliation failed", "error", err)
	}
}

// Login exchanges the credentials for a bearer token, persists it, fetches and
// persists the profile, and publishes UserChanged. On success it returns the
// fresh profile. The operation is all-or-nothing: if the profile fetch fails
// or resolves no user, the freshly persisted token is rolled back and the
// error reported. Only one login may be in flight at a time.
func (m *Manager) Login(ctx context.Context, username, password string) (*domain.UserProfile, error) {
	m.mu.Lock()
	if m.loginInFlight {
		m.mu.Unlock()
		metrics.LoginAttemptsTotal.WithLabelValues("rejected_in_flight").Inc()
		return nil, domain.ErrLoginInFlight
	}
	m.loginInFlight = true
	epoch := m.epoch
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.loginInFlight = false
		m.mu.Unlock()
	}()

	token, err := m.gateway.ExchangeCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			metrics.LoginAttemptsTotal.WithLabelValues("network_error").Inc()
		}
		return nil, err
	}

	// credential is persisted before the profile, so a crash between the two
	// writes leaves at worst a token without a profile, which Initialize and
	// Reconcile recover from
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		metrics.LoginAttemptsTotal.WithLabelValues("superseded").Inc()
		return nil, domain.ErrSuperseded
	}
	cred := domain.Credential{AccessToken: token, IssuedAt: m.clock.Now()}
	if err := m.creds.Set(cred); err != nil {
		m.mu.Unlock()
		metrics.LoginAttemptsTotal.WithLabelValues("persistence_error").Inc()
		return nil, fmt.Errorf("failed to persist credential: %w", err)
	}
	m.credential = &cred
	m.gateway.SetBearerToken(token)
	m.mu.Unlock()

	profile, err := m.gateway.FetchCurrentUser(ctx)
	if err != nil {
		m.rollbackLogin(epoch)
		metrics.LoginAttemptsTotal.WithLabelValues("network_error").Inc()
		return nil, err
	}
	if profile == nil {
		m.rollbackLogin(epoch)
		metrics.LoginAttemptsTotal.WithLabelValues("profile_missing").Inc()
		return nil, domain.ErrProfileMissing
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		metrics.LoginAttemptsTotal.WithLabelValues("superseded").Inc()
		return nil, domain.ErrSuperseded
	}
	if err := m.profiles.Set(*profile); err != nil {
		m.credential = nil
		m.gateway.SetBearerToken("")
		_ = m.creds.Clear()
		m.mu.Unlock()
		metrics.LoginAttemptsTotal.WithLabelValues("persistence_error").Inc()
		return nil, fmt.Errorf("failed to persist profile: %w", err)
	}
	m.profile = profile
	deviceToken := m.deviceToken
	m.mu.Unlock()

	metrics.SessionState.Set(1)
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	logging.WithUser(profile.Login).Info("Login succeeded", "user_id", profile.ID)
	m.bus.Publish(bus.UserChanged)

	if deviceToken != "" {
		go m.submitDeviceToken(deviceToken, epoch)
	}
	result := *profile
	return &result, nil
}

// rollbackLogin undoes the credential persisted by a login whose profile fetch
// failed, unless the session moved on in the meantime.
func (m *Manager) rollbackLogin(expect uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != expect {
		return
	}
	m.credential = nil
	m.gateway.SetBearerToken("")
	_ = m.creds.Clear()
}

// Logout tears the session down: best-effort device unregistration, both
// stores cleared, unread count reset, SignedOut published. Idempotent; calling
// it when already logged out re-clears the stores and publishes nothing.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	loggedIn := m.credential != nil && m.profile != nil
	deviceToken := m.deviceToken
	m.mu.Unlock()

	// revoke while the bearer token is still valid; failure never blocks logout
	if loggedIn && deviceToken != "" {
		if err := m.gateway.UnregisterDevice(ctx, deviceToken); err != nil {
			metrics.DeviceRegistrationsTotal.WithLabelValues("unregister", "error").Inc()
			slog.Warn("Device unregistration failed", "error", err)
		} else {
			metrics.DeviceRegistrationsTotal.WithLabelValues("unregister", "success").Inc()
		}
	}

	m.mu.Lock()
	wasLoggedIn := m.credential != nil && m.profile != nil
	m.epoch++
	m.credential = nil
	m.profile = nil
	unreadChanged := m.unread != 0
	m.unread = 0
	m.gateway.SetBearerToken("")
	_ = m.creds.Clear()
	_ = m.profiles.Clear()
	m.mu.Unlock()

	metrics.SessionState.Set(0)
	metrics.UnreadCount.Set(0)
	if unreadChanged {
		m.bus.Publish(bus.UnreadCountChanged)
	}
	if wasLoggedIn {
		slog.Info("Logged out")
		m.bus.Publish(bus.SignedOut)
	}
	return nil
}

// forceSignOut is Reconcile's teardown for a credential the server rejected.
// It only applies if the session epoch is still the one the caller observed.
func (m *Manager) forceSignOut(expect uint64) {
	m.mu.Lock()
	if m.epoch != expect {
		m.mu.Unlock()
		return
	}
	wasLoggedIn := m.credential != nil && m.profile != nil
	m.epoch++
	m.credential = nil
	m.profile = nil
	unreadChanged := m.unread != 0
	m.unread = 0
	m.gateway.SetBearerToken("")
	_ = m.creds.Clear()
	_ = m.profiles.Clear()
	m.mu.Unlock()

	metrics.SessionState.Set(0)
	metrics.UnreadCount.Set(0)
	if unreadChanged {
		m.bus.Publish(bus.UnreadCountChanged)
	}
	if wasLoggedIn {
		m.bus.Publish(bus.SignedOut)
	}
}

// RefreshProfile fetches the current user and, on success, persists and
// publishes it. A server that resolves no user yields domain.ErrProfileMissing;
// the caller decides whether that forces a sign-out. Concurrent calls are
// deduplicated.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	_, err, _ := m.group.Do("profile", func() (any, error) {
		return nil, m.refreshProfile(ctx)
	})
	return err
}

func (m *Manager) refreshProfile(ctx context.Context) error {
	m.mu.Lock()
	if m.credential == nil {
		m.mu.Unlock()
		return domain.ErrLoggedOut
	}
	epoch := m.epoch
	m.mu.Unlock()

	profile, err := m.gateway.FetchCurrentUser(ctx)
	if err != nil {
		metrics.ProfileRefreshesTotal.WithLabelValues("error").Inc()
		return err
	}
	if profile == nil {
		metrics.ProfileRefreshesTotal.WithLabelValues("missing").Inc()
		return domain.ErrProfileMissing
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return domain.ErrSuperseded
	}
	if err := m.profiles.Set(*profile); err != nil {
		slog.Warn("Profile cache write failed", "error", err)
	}
	m.profile = profile
	m.mu.Unlock()

	metrics.ProfileRefreshesTotal.WithLabelValues("success").Inc()
	metrics.SessionState.Set(1)
	m.bus.Publish(bus.UserChanged)
	return nil
}

// RefreshUnreadCount reconciles the unread notification count.
// UnreadCountChanged is published only when the value actually moves. When
// logged out it resets the count to zero without touching the network. Network
// failures leave the last-known count in place. Concurrent calls are
// deduplicated.
func (m *Manager) RefreshUnreadCount(ctx context.Context) error {
	_, err, _ := m.group.Do("unread", func() (any, error) {
		return nil, m.refreshUnreadCount(ctx)
	})
	return err
}

func (m *Manager) refreshUnreadCount(ctx context.Context) error {
	m.mu.Lock()
	if m.credential == nil || m.profile == nil {
		changed := m.unread != 0
		m.unread = 0
		m.mu.Unlock()
		metrics.UnreadCount.Set(0)
		if changed {
			m.bus.Publish(bus.UnreadCountChanged)
		}
		return nil
	}
	epoch := m.epoch
	m.mu.Unlock()

	count, err := m.gateway.FetchUnreadCount(ctx)
	if err != nil {
		metrics.UnreadPollsTotal.WithLabelValues("error").Inc()
		return err
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return domain.ErrSuperseded
	}
	changed := m.unread != count
	m.unread = count
	m.mu.Unlock()

	metrics.UnreadPollsTotal.WithLabelValues("success").Inc()
	metrics.UnreadCount.Set(float64(count))
	if changed {
		m.bus.Publish(bus.UnreadCountChanged)
	}
	return nil
}

// SetDeviceToken records the push token for this installation. If a session is
// active the token is submitted immediately in the background; otherwise it is
// submitted after the next successful login.
func (m *Manager) SetDeviceToken(token string) {
	m.mu.Lock()
	m.deviceToken = token
	loggedIn := m.credential != nil && m.profile != nil
	epoch := m.epoch
	m.mu.Unlock()

	if loggedIn && token != "" {
		go m.submitDeviceToken(token, epoch)
	}
}
