package proxy

import (
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"strings"
)

// FailureType categorizes why the backend could not be reached.
type FailureType int

const (
	// FailureUnknown is an unclassified transport error.
	FailureUnknown FailureType = iota
	// FailureTLS is a TLS or certificate verification error.
	FailureTLS
	// FailureNetwork is a connectivity error (refused, reset, unreachable).
	FailureNetwork
	// FailureTimeout is a connection or response timeout.
	FailureTimeout
	// FailureDNS is a name resolution failure.
	FailureDNS
)

// String returns a human-readable name for the failure type.
func (t FailureType) String() string {
	switch t {
	case FailureTLS:
		return "TLS certificate error"
	case FailureNetwork:
		return "Network error"
	case FailureTimeout:
		return "Connection timeout"
	case FailureDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ConnectionError is the cause wrapped by a NetworkFailure gateway error.
type ConnectionError struct {
	// Origin is the backend origin that could not be reached.
	Origin string
	// Type categorizes the failure.
	Type FailureType
	// Reason is the underlying transport error.
	Reason error
}

// Error returns the actionable message shown to users.
func (e *ConnectionError) Error() string {
	return "Unable to reach the learning platform at " + e.Origin + ". Check your connection and try again."
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// ClassifyConnectionError wraps a transport error with its failure type.
// It returns nil for a nil error.
func ClassifyConnectionError(err error, origin string) *ConnectionError {
	if err == nil {
		return nil
	}

	ce := &ConnectionError{Origin: origin, Reason: err}

	var dnsErr *net.DNSError
	switch {
	case isTLSError(err):
		ce.Type = FailureTLS
	case errors.As(err, &dnsErr):
		ce.Type = FailureDNS
	case isTimeoutError(err):
		ce.Type = FailureTimeout
	case isNetworkError(err.Error()):
		ce.Type = FailureNetwork
	default:
		ce.Type = FailureUnknown
	}
	return ce
}

func isTLSError(err error) bool {
	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	var systemRootsErr *x509.SystemRootsError

	if errors.As(err, &certErr) || errors.As(err, &hostErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &systemRootsErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

func isTimeoutError(err error) bool {
	// net.Error is an interface, so walk the chain by hand.
	for e := err; e != nil; {
		if ne, ok := e.(net.Error); ok && ne.Timeout() {
			return true
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

func isNetworkError(errStr string) bool {
	for _, keyword := range []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connect:",
	} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
