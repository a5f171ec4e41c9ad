package gateway

import (
	"net/http"
	"strings"
)

// Request is a call travelling through the pipeline. Path is opaque and
// relative to the backend's /api/ prefix.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte

	// Anonymous keeps the Credential middleware from attaching the session
	// token, for endpoints that establish a session rather than use one.
	Anonymous bool
}

// NewRequest builds a request with an initialized header map.
func NewRequest(method, path string, body []byte) *Request {
	rawQuery := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, rawQuery = path[:i], path[i+1:]
	}
	return &Request{
		Method:   strings.ToUpper(method),
		Path:     strings.TrimPrefix(path, "/"),
		RawQuery: rawQuery,
		Header:   make(http.Header),
		Body:     body,
	}
}

// Endpoint is the path without query, used as the rate-limit key and for
// TTL route matching.
func (r *Request) Endpoint() string {
	return strings.Trim(r.Path, "/")
}

// CacheEndpoint is the path plus raw query, used in the cache key.
func (r *Request) CacheEndpoint() string {
	if r.RawQuery == "" {
		return r.Endpoint()
	}
	return r.Endpoint() + "?" + r.RawQuery
}

// BearerToken returns the token carried in the Authorization header, if any.
func (r *Request) BearerToken() string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// Response is a backend reply, either freshly forwarded or served from cache.
type Response struct {
	Status int
	Header http.Header
	Body   []byte

	// FromCache is set when the response never reached the network.
	FromCache bool
}

// Success reports a 2xx status.
func (r *Response) Success() bool {
	return r.Status >= 200 && r.Status < 300
}
