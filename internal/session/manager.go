package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"lmsgate/internal/gateway"
	"lmsgate/pkg/logging"
)

// Credential is the bearer token held for the current user plus its decoded
// claims.
type Credential struct {
	Token    string
	Claims   Claims
	StoredAt time.Time
}

// TokenRefresher exchanges the current token for a fresh one.
// It is implemented by the backend client.
type TokenRefresher interface {
	Refresh(ctx context.Context, token string) (string, error)
}

// Manager owns the single outstanding credential. Installing a credential
// atomically replaces the previous one; a failed refresh leaves it untouched.
type Manager struct {
	mu         sync.RWMutex
	credential *Credential

	// refreshMu serializes refresh calls so two callers never race to
	// replace the credential with tokens derived from the same predecessor.
	refreshMu sync.Mutex

	store     *Store
	refresher TokenRefresher
	now       func() time.Time

	hooksMu  sync.Mutex
	onLogout []func()
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithRefresher sets the component used by Refresh.
func WithRefresher(r TokenRefresher) ManagerOption {
	return func(m *Manager) {
		m.refresher = r
	}
}

// NewManager creates a manager backed by store and loads any persisted
// credential. A corrupt slot is logged and ignored.
func NewManager(store *Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if _, err := m.Reload(); err != nil {
		logging.Warn("Session", "Ignoring unreadable session slot: %v", err)
	}
	return m
}

// SetRefresher wires the refresh component after construction.
func (m *Manager) SetRefresher(r TokenRefresher) {
	m.refreshMu.Lock()
	m.refresher = r
	m.refreshMu.Unlock()
}

// OnLogout registers a hook run after the credential is dropped, whether by
// Logout or because another process emptied the slot.
func (m *Manager) OnLogout(fn func()) {
	m.hooksMu.Lock()
	m.onLogout = append(m.onLogout, fn)
	m.hooksMu.Unlock()
}

// Install replaces the held credential with token and persists it.
func (m *Manager) Install(token string) (*Credential, error) {
	if token == "" {
		return nil, gateway.NewError(gateway.KindInvalidRequest, nil, "cannot install an empty token")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installLocked(token)
}

func (m *Manager) installLocked(token string) (*Credential, error) {
	claims, err := DecodeClaims(token)
	if err != nil {
		// Claims are advisory; an opaque token is still usable.
		logging.Debug("Session", "Installing token without readable claims: %v", err)
	}

	cred := &Credential{Token: token, Claims: claims, StoredAt: m.now()}
	if err := m.store.Save(cred.Token, cred.StoredAt); err != nil {
		return nil, err
	}
	m.credential = cred
	return copyCredential(cred), nil
}

// Current returns a copy of the held credential, or nil.
func (m *Manager) Current() *Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyCredential(m.credential)
}

// BearerToken returns the held token, or "".
func (m *Manager) BearerToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.credential == nil {
		return ""
	}
	return m.credential.Token
}

// Token implements oauth2.TokenSource. It never refreshes; it returns a
// KindAuthRequired gateway error when no credential is held.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.credential == nil {
		return nil, gateway.NewError(gateway.KindAuthRequired, nil, "no session credential held; run 'lmsgate auth login'")
	}
	return &oauth2.Token{
		AccessToken: m.credential.Token,
		TokenType:   "Bearer",
		Expiry:      m.credential.Claims.ExpiresAt,
	}, nil
}

// SecondsUntilExpiry reports the held token's remaining lifetime, 0 when no
// credential is held or its expiry is unreadable.
func (m *Manager) SecondsUntilExpiry() int64 {
	token := m.BearerToken()
	if token == "" {
		return 0
	}
	return SecondsUntilExpiry(token, m.now())
}

// Refresh exchanges the held token for a new one. On failure the held
// credential is unchanged and a KindRefreshFailed error is returned.
func (m *Manager) Refresh(ctx context.Context) (*Credential, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	current := m.Current()
	if current == nil {
		return nil, gateway.NewError(gateway.KindAuthRequired, nil, "no session credential to refresh")
	}
	if m.refresher == nil {
		return nil, gateway.NewError(gateway.KindRefreshFailed, nil, "token refresh is not configured")
	}

	newToken, err := m.refresher.Refresh(ctx, current.Token)
	if err != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "token_refresh",
			Outcome: "failure",
			Subject: current.Claims.Subject,
			Reason:  err.Error(),
		})
		if gateway.IsNetworkFailure(err) {
			return nil, err
		}
		return nil, &gateway.Error{Kind: gateway.KindRefreshFailed, Message: "token refresh failed", Err: err}
	}
	if newToken == "" {
		return nil, gateway.NewError(gateway.KindRefreshFailed, nil, "token refresh returned no token")
	}

	m.mu.Lock()
	if m.credential == nil || m.credential.Token != current.Token {
		// Logged out or re-authenticated while the refresh was in flight.
		m.mu.Unlock()
		return nil, gateway.NewError(gateway.KindRefreshFailed, nil, "credential changed during refresh")
	}
	cred, err := m.installLocked(newToken)
	m.mu.Unlock()
	if err != nil {
		return nil, &gateway.Error{Kind: gateway.KindRefreshFailed, Message: "failed to store refreshed token", Err: err}
	}

	logging.Audit(logging.AuditEvent{
		Action:  "token_refresh",
		Outcome: "success",
		Subject: cred.Claims.Subject,
	})
	return cred, nil
}

// Logout drops the credential, empties the slot and runs logout hooks.
func (m *Manager) Logout() error {
	m.mu.Lock()
	prev := m.credential
	m.credential = nil
	err := m.store.Delete()
	m.mu.Unlock()

	subject := ""
	if prev != nil {
		subject = prev.Claims.Subject
	}
	logging.Audit(logging.AuditEvent{
		Action:  "logout",
		Outcome: "success",
		Subject: subject,
	})

	m.runLogoutHooks()
	return err
}

// Reload re-reads the slot, picking up credentials written by another
// process. It reports whether the held credential changed.
func (m *Manager) Reload() (bool, error) {
	token, storedAt, err := m.store.Load()
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	changed := false
	switch {
	case token == "" && m.credential != nil:
		m.credential = nil
		changed = true
	case token != "" && (m.credential == nil || m.credential.Token != token):
		claims, _ := DecodeClaims(token)
		m.credential = &Credential{Token: token, Claims: claims, StoredAt: storedAt}
		changed = true
	}
	dropped := changed && m.credential == nil
	m.mu.Unlock()

	if dropped {
		logging.Info("Session", "Session slot emptied externally, credential dropped")
		m.runLogoutHooks()
	} else if changed {
		logging.Debug("Session", "Loaded session credential from slot")
	}
	return changed, nil
}

func (m *Manager) runLogoutHooks() {
	m.hooksMu.Lock()
	hooks := append([]func(){}, m.onLogout...)
	m.hooksMu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

func copyCredential(c *Credential) *Credential {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

// ErrNoCredential is returned by helpers that require a held credential.
var ErrNoCredential = errors.New("no session credential held")

// RequireCredential returns the held credential or an AuthRequired error
// wrapping ErrNoCredential.
func (m *Manager) RequireCredential() (*Credential, error) {
	if cred := m.Current(); cred != nil {
		return cred, nil
	}
	return nil, &gateway.Error{
		Kind:    gateway.KindAuthRequired,
		Message: "not logged in",
		Err:     fmt.Errorf("%w; run 'lmsgate auth login'", ErrNoCredential),
	}
}
