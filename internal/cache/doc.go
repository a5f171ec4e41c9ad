// Package cache stores successful read responses from the learning platform
// for a bounded time.
//
// Entries are keyed by endpoint (path plus query) and a fingerprint of the
// caller's bearer token. Freshness is checked lazily on lookup. Concurrent
// misses on the same key share one backend fetch.
package cache
