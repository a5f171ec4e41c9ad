package app

import (
	"fmt"

	"lmsgate/internal/backend"
	"lmsgate/internal/cache"
	"lmsgate/internal/config"
	"lmsgate/internal/gateway"
	"lmsgate/internal/proxy"
	"lmsgate/internal/ratelimit"
	"lmsgate/internal/session"
	"lmsgate/pkg/logging"
)

// Services holds every component of a running gateway. One instance is
// created at process start and closed at stop; nothing here is global.
//
// Field descriptions:
//   - Pipeline: the assembled middleware chain ending at the Forwarder
//   - HTTP: the inbound HTTP surface over Pipeline
//   - Session: the credential holder shared by the pipeline and the backend client
//   - Backend: typed client for the auth and 2FA endpoints
type Services struct {
	Config *config.GatewayConfig

	Cache     *cache.Cache
	Limiter   *ratelimit.Limiter
	Forwarder *proxy.Forwarder
	Metrics   *gateway.Metrics

	Store   *session.Store
	Session *session.Manager
	Backend *backend.Client

	Refresher *session.AutoRefresher
	Watcher   *session.SlotWatcher

	Pipeline gateway.Handler
	HTTP     *gateway.HTTPHandler
}

// InitializeServices creates and wires all components from cfg.Gateway.
//
// Initialization Sequence:
//  1. Forwarder for the configured backend origin
//  2. Session store and manager (loads any persisted credential)
//  3. Cache, limiter and metrics
//  4. Pipeline: Instrument → RateLimit → Credential → Cache → Forwarder
//  5. Backend client over the pipeline, registered as the session refresher
func InitializeServices(cfg *Config) (*Services, error) {
	if cfg == nil || cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway configuration is required")
	}
	gw := cfg.Gateway

	forwarder, err := proxy.NewForwarder(gw.Backend.Origin, proxy.WithTimeout(gw.Backend.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create forwarder: %w", err)
	}

	store, err := session.NewStore(session.StoreConfig{
		StorageDir: gw.Session.StorageDir,
		FileMode:   gw.Session.FileMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}
	manager := session.NewManager(store)

	s := &Services{
		Config:    gw,
		Cache:     cache.New(),
		Limiter:   ratelimit.New(gw.RateLimit.MaxRequests, gw.RateLimit.Window),
		Forwarder: forwarder,
		Metrics:   gateway.NewMetrics(),
		Store:     store,
		Session:   manager,
	}

	s.Pipeline = gateway.Chain(forwarder, s.middlewares()...)
	s.HTTP = gateway.NewHTTPHandler(s.Pipeline, s.metricsIfEnabled())

	s.Backend = backend.NewClient(s.Pipeline, backend.WithTokenSource(manager))
	manager.SetRefresher(s.Backend)

	// Cached responses belong to the identity that fetched them.
	manager.OnLogout(s.Cache.Purge)

	s.Refresher = session.NewAutoRefresher(manager,
		session.WithThreshold(gw.Session.RefreshThreshold),
		session.WithCheckInterval(gw.Session.CheckInterval),
	)
	if gw.Session.WatchFile && store.FileMode() {
		s.Watcher = session.NewSlotWatcher(manager, 0)
	}

	logging.Debug("Services", "Initialized gateway for %s (cache=%t rateLimit=%t attachSession=%t)",
		forwarder.Origin(), gw.Cache.Enabled, gw.RateLimit.Enabled, gw.Server.AttachSession)

	return s, nil
}

func (s *Services) middlewares() []gateway.Middleware {
	gw := s.Config

	mws := []gateway.Middleware{gateway.Instrument(s.Metrics)}
	if gw.RateLimit.Enabled {
		mws = append(mws, gateway.RateLimit(s.Limiter))
	}
	if gw.Server.AttachSession {
		mws = append(mws, gateway.Credential(s.Session))
	}
	if gw.Cache.Enabled {
		mws = append(mws, gateway.Cache(s.Cache, gateway.CacheOptions{
			Policy:            CachePolicy(gw.Cache),
			InvalidateOnWrite: gw.Cache.InvalidateOnWrite,
		}))
	}
	return mws
}

func (s *Services) metricsIfEnabled() *gateway.Metrics {
	if !s.Config.Server.Metrics {
		return nil
	}
	return s.Metrics
}

// CachePolicy converts the configured route table into a cache.Policy.
func CachePolicy(cfg config.CacheConfig) cache.Policy {
	rules := make([]cache.Rule, 0, len(cfg.Routes))
	for _, r := range cfg.Routes {
		rules = append(rules, cache.Rule{Pattern: r.Pattern, TTL: r.TTL})
	}
	return cache.Policy{DefaultTTL: cfg.DefaultTTL, Rules: rules}
}

// Close stops background components. It is safe to call more than once.
func (s *Services) Close() {
	if s.Watcher != nil {
		s.Watcher.Stop()
	}
	if s.Refresher != nil {
		s.Refresher.Stop()
	}
}
