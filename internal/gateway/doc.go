// Package gateway composes the request pipeline that sits between LMS clients
// and the learning platform backend.
//
// A request flows through an explicit middleware chain:
//
//	Instrument -> RateLimit -> Credential -> Cache -> forwarder
//
// The rate limiter and the response cache may short-circuit the chain before
// any network call is made. The terminal Handler is the proxy forwarder, which
// lives in internal/proxy and is injected by the application.
//
// The package also provides the typed Error used across the gateway, the
// Prometheus metrics for the pipeline, and the http.Handler served by
// `lmsgate serve`.
package gateway
