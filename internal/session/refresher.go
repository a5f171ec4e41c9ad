package session

import (
	"context"
	"sync"
	"time"

	"lmsgate/pkg/logging"
)

const (
	// DefaultRefreshThreshold is how close to expiry a token must be before
	// the background refresher renews it.
	DefaultRefreshThreshold = 5 * time.Minute

	// DefaultCheckInterval is how often the background refresher inspects
	// the held token.
	DefaultCheckInterval = 30 * time.Second
)

// AutoRefresher keeps the held credential fresh by refreshing it shortly
// before it expires.
type AutoRefresher struct {
	mu        sync.Mutex
	manager   *Manager
	threshold time.Duration
	interval  time.Duration
	running   bool
	stopCh    chan struct{}

	// warnedToken suppresses repeated expiry warnings for the same token.
	warnedToken string
}

// AutoRefresherOption configures an AutoRefresher.
type AutoRefresherOption func(*AutoRefresher)

// WithThreshold sets the refresh threshold.
func WithThreshold(d time.Duration) AutoRefresherOption {
	return func(r *AutoRefresher) {
		if d > 0 {
			r.threshold = d
		}
	}
}

// WithCheckInterval sets the polling interval.
func WithCheckInterval(d time.Duration) AutoRefresherOption {
	return func(r *AutoRefresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

// NewAutoRefresher creates a refresher for manager.
func NewAutoRefresher(manager *Manager, opts ...AutoRefresherOption) *AutoRefresher {
	r := &AutoRefresher{
		manager:   manager,
		threshold: DefaultRefreshThreshold,
		interval:  DefaultCheckInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run checks the credential immediately and then every interval until ctx is
// cancelled or Stop is called.
func (r *AutoRefresher) Run(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	stopCh := r.stopCh
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			r.Check(ctx)
		}
	}
}

// Stop ends Run.
func (r *AutoRefresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		close(r.stopCh)
		r.running = false
	}
}

// IsRunning reports whether Run is active.
func (r *AutoRefresher) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Check performs one inspection: refresh when 0 < remaining <= threshold,
// warn once when the token is already expired. It returns true if a refresh
// succeeded.
func (r *AutoRefresher) Check(ctx context.Context) bool {
	cred := r.manager.Current()
	if cred == nil {
		return false
	}

	remaining := r.manager.SecondsUntilExpiry()
	switch {
	case remaining <= 0:
		r.mu.Lock()
		first := r.warnedToken != cred.Token
		r.warnedToken = cred.Token
		r.mu.Unlock()
		if first {
			logging.Warn("Session", "Session token for %s has expired; run 'lmsgate auth login'",
				logging.TruncateIdentifier(cred.Claims.Email))
		}
		return false

	case time.Duration(remaining)*time.Second <= r.threshold:
		logging.Info("Session", "Session token expires in %ds, refreshing", remaining)
		if _, err := r.manager.Refresh(ctx); err != nil {
			logging.Warn("Session", "Background token refresh failed: %v", err)
			return false
		}
		return true
	}
	return false
}
