package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"lmsgate/internal/gateway"
	"lmsgate/pkg/logging"
)

// RequestIDHeader correlates a forwarded call across gateway and backend logs.
const RequestIDHeader = "X-Request-ID"

// hopHeaders are connection-scoped and never forwarded in either direction.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Connection",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// Forwarder relays requests to <origin>/api/<path> and mirrors the reply.
// It is the terminal gateway.Handler of the pipeline.
type Forwarder struct {
	origin     string
	httpClient *http.Client

	timeout    time.Duration
	hasTimeout bool
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Forwarder) {
		f.httpClient = client
	}
}

// WithTimeout bounds each outbound call. Zero means no timeout. It applies
// whatever the option order, including on top of WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Forwarder) {
		f.timeout = timeout
		f.hasTimeout = true
	}
}

// NewForwarder creates a forwarder for the given backend origin
// (scheme://host[:port], no path).
func NewForwarder(origin string, opts ...Option) (*Forwarder, error) {
	origin = strings.TrimSuffix(strings.TrimSpace(origin), "/")
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid backend origin %q: expected http(s)://host[:port]", origin)
	}

	f := &Forwarder{
		origin:     origin,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.hasTimeout {
		// Applied to a copy so a client passed in by the caller is left alone.
		client := *f.httpClient
		client.Timeout = f.timeout
		f.httpClient = &client
	}
	return f, nil
}

// Origin returns the backend origin.
func (f *Forwarder) Origin() string {
	return f.origin
}

// Do forwards req. Backend non-2xx replies are returned as responses, not
// errors. A transport failure yields a synthetic 502 response together with a
// KindNetworkFailure error.
func (f *Forwarder) Do(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	method := strings.ToUpper(req.Method)
	if !allowedMethods[method] {
		return nil, gateway.NewError(gateway.KindInvalidRequest, nil, "method %q is not supported", req.Method)
	}

	target := f.origin + "/api/" + strings.TrimPrefix(req.Path, "/")
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	var body io.Reader
	if method != http.MethodGet && method != http.MethodHead && len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, gateway.NewError(gateway.KindInvalidRequest, err, "invalid request path %q", req.Path)
	}

	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	removeHopHeaders(httpReq.Header)
	httpReq.Header.Del("Host")
	httpReq.Header.Del("Content-Length")

	requestID := httpReq.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		httpReq.Header.Set(RequestIDHeader, requestID)
	}

	logging.Debug("Proxy", "Forwarding %s %s (request %s)", method, target, requestID)

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return f.networkFailure(err, requestID)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return f.networkFailure(err, requestID)
	}

	header := resp.Header.Clone()
	removeHopHeaders(header)
	header.Del("Origin")

	return &gateway.Response{
		Status: resp.StatusCode,
		Header: header,
		Body:   respBody,
	}, nil
}

func (f *Forwarder) networkFailure(err error, requestID string) (*gateway.Response, error) {
	connErr := ClassifyConnectionError(err, f.origin)
	logging.Warn("Proxy", "Backend unreachable (%s, request %s): %v", connErr.Type, requestID, err)

	body, _ := json.Marshal(gateway.ErrorBody{
		Error:   connErr.Error(),
		Details: err.Error(),
	})

	resp := &gateway.Response{
		Status: http.StatusBadGateway,
		Header: http.Header{
			"Content-Type":  []string{"application/json"},
			RequestIDHeader: []string{requestID},
		},
		Body: body,
	}
	return resp, &gateway.Error{Kind: gateway.KindNetworkFailure, Err: connErr}
}

// removeHopHeaders strips hop-by-hop headers, including any listed in the
// Connection header.
func removeHopHeaders(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = textproto.TrimString(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}
