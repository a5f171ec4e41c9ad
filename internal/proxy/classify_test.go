package proxy

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o wait" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureType
	}{
		{name: "x509 unknown authority", err: fmt.Errorf("get: %w", x509.UnknownAuthorityError{}), want: FailureTLS},
		{name: "tls keyword", err: errors.New("remote error: tls: handshake failure"), want: FailureTLS},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "lms.invalid"}, want: FailureDNS},
		{name: "net timeout", err: fmt.Errorf("wrapped: %w", timeoutErr{}), want: FailureTimeout},
		{name: "deadline text", err: errors.New("context deadline exceeded"), want: FailureTimeout},
		{name: "refused", err: errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), want: FailureNetwork},
		{name: "unknown", err: errors.New("something odd"), want: FailureUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyConnectionError(tt.err, "https://lms.example.com")
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, "https://lms.example.com", got.Origin)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.Nil(t, ClassifyConnectionError(nil, "https://lms.example.com"))
}

func TestConnectionError_Message(t *testing.T) {
	err := &ConnectionError{Origin: "http://localhost:5000", Reason: errors.New("refused")}
	assert.Equal(t,
		"Unable to reach the learning platform at http://localhost:5000. Check your connection and try again.",
		err.Error())
}
