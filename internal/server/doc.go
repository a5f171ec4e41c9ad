// Package server runs the local lmsgate HTTP gateway.
//
// The server binds the handler built by the gateway package to a TCP
// listener, applies conservative timeouts and shuts down gracefully when its
// context is cancelled. It is started by `lmsgate serve`:
//
//	server:
//	  host: localhost
//	  port: 8090
//
// # Endpoints
//
//   - /api/<path> - forwarded to <backend.origin>/api/<path> through the pipeline
//   - /health - liveness probe
//   - /metrics - Prometheus metrics (when server.metrics is enabled)
package server
