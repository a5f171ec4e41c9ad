package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func tokenExpiringIn(t *testing.T, subject string, d time.Duration) string {
	t.Helper()
	return signToken(t, jwt.MapClaims{
		"id":    subject,
		"email": subject + "@example.com",
		"role":  "student",
		"exp":   testNow.Add(d).Unix(),
	})
}

// fakeRefresher returns queued tokens or errors.
type fakeRefresher struct {
	mu       sync.Mutex
	tokens   []string
	err      error
	calls    int
	lastSeen string
	block    chan struct{}
	entered  chan struct{}
}

func (f *fakeRefresher) Refresh(ctx context.Context, token string) (string, error) {
	if f.block != nil {
		if f.entered != nil {
			close(f.entered)
		}
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSeen = token
	if f.err != nil {
		return "", f.err
	}
	if len(f.tokens) == 0 {
		return "", errors.New("no token queued")
	}
	next := f.tokens[0]
	f.tokens = f.tokens[1:]
	return next, nil
}

func (f *fakeRefresher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newMemoryManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	store, err := NewStore(StoreConfig{FileMode: false})
	require.NoError(t, err)
	opts = append([]ManagerOption{WithClock(func() time.Time { return testNow })}, opts...)
	return NewManager(store, opts...)
}
