package cache

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lmsgate/internal/testing/mock"
)

func newClock() *mock.MockClock {
	return mock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
}

func coursesPayload() Payload {
	return Payload{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(`{"courses":[{"id":1}]}`),
	}
}

func TestCache_GetPut(t *testing.T) {
	clock := newClock()
	c := New(WithClock(clock.Now))
	key := Key{Endpoint: "courses", Identity: Anonymous}

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, coursesPayload(), time.Minute)

	entry, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, key, entry.Key)
	assert.Equal(t, clock.Now(), entry.StoredAt)
	assert.Equal(t, time.Minute, entry.TTL)
	assert.Equal(t, coursesPayload(), entry.Payload)
}

func TestCache_ZeroTTLNotStored(t *testing.T) {
	c := New()
	key := Key{Endpoint: "auth/me", Identity: Anonymous}

	c.Put(key, coursesPayload(), 0)

	_, ok := c.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_LazyExpiry(t *testing.T) {
	clock := newClock()
	c := New(WithClock(clock.Now))
	key := Key{Endpoint: "courses", Identity: Anonymous}

	c.Put(key, coursesPayload(), time.Minute)

	clock.Advance(time.Minute)
	_, ok := c.Get(key)
	assert.True(t, ok, "entry is fresh until now - storedAt exceeds ttl")

	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, c.Len(), "expired entries stay until looked up")

	_, ok = c.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_IdentityIsolation(t *testing.T) {
	c := New()
	alice := Key{Endpoint: "dashboard", Identity: Fingerprint("alice-token")}
	bob := Key{Endpoint: "dashboard", Identity: Fingerprint("bob-token")}

	c.Put(alice, coursesPayload(), time.Minute)

	_, ok := c.Get(bob)
	assert.False(t, ok)
	_, ok = c.Get(alice)
	assert.True(t, ok)
}

func TestCache_ReturnedPayloadIsACopy(t *testing.T) {
	c := New()
	key := Key{Endpoint: "courses", Identity: Anonymous}
	c.Put(key, coursesPayload(), time.Minute)

	first, ok := c.Get(key)
	require.True(t, ok)
	first.Payload.Header.Set("X-Cache", "HIT")
	first.Payload.Body[0] = 'X'

	second, ok := c.Get(key)
	require.True(t, ok)
	assert.Empty(t, second.Payload.Header.Get("X-Cache"))
	assert.Equal(t, coursesPayload().Body, second.Payload.Body)
}

func TestCache_LoadHitIdempotence(t *testing.T) {
	clock := newClock()
	c := New(WithClock(clock.Now))
	key := Key{Endpoint: "courses?page=1", Identity: Anonymous}

	var calls int32
	fetch := func(context.Context) (Payload, bool, error) {
		atomic.AddInt32(&calls, 1)
		return coursesPayload(), true, nil
	}

	first, hit, err := c.Load(context.Background(), key, time.Minute, fetch)
	require.NoError(t, err)
	assert.False(t, hit)

	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Second)
		got, hit, err := c.Load(context.Background(), key, time.Minute, fetch)
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, first, got)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	clock.Advance(11 * time.Second)
	_, hit, err = c.Load(context.Background(), key, time.Minute, fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCache_LoadNotCacheable(t *testing.T) {
	c := New()
	key := Key{Endpoint: "courses/404", Identity: Anonymous}

	var calls int32
	fetch := func(context.Context) (Payload, bool, error) {
		atomic.AddInt32(&calls, 1)
		return Payload{Status: http.StatusNotFound, Body: []byte(`{"message":"not found"}`)}, false, nil
	}

	for i := 0; i < 3; i++ {
		got, hit, err := c.Load(context.Background(), key, time.Minute, fetch)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, http.StatusNotFound, got.Status)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, c.Len())
}

func TestCache_LoadErrorNotStored(t *testing.T) {
	c := New()
	key := Key{Endpoint: "courses", Identity: Anonymous}
	fetchErr := errors.New("connection refused")

	_, _, err := c.Load(context.Background(), key, time.Minute, func(context.Context) (Payload, bool, error) {
		return Payload{Status: http.StatusBadGateway}, true, fetchErr
	})
	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, 0, c.Len())
}

func TestCache_LoadConcurrentMissFetchesOnce(t *testing.T) {
	c := New()
	key := Key{Endpoint: "courses", Identity: Anonymous}

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var calls int32
	fetch := func(context.Context) (Payload, bool, error) {
		atomic.AddInt32(&calls, 1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return coursesPayload(), true, nil
	}

	const callers = 2
	var wg sync.WaitGroup
	results := make([]Payload, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, _, err := c.Load(context.Background(), key, time.Minute, fetch)
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}

	<-started
	// Give the second caller time to join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, results[0], results[1])
}

func TestCache_Invalidate(t *testing.T) {
	c := New()
	c.Put(Key{Endpoint: "courses", Identity: "a"}, coursesPayload(), time.Minute)
	c.Put(Key{Endpoint: "courses/1", Identity: "b"}, coursesPayload(), time.Minute)
	c.Put(Key{Endpoint: "categories", Identity: "a"}, coursesPayload(), time.Minute)

	removed := c.Invalidate("courses")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get(Key{Endpoint: "categories", Identity: "a"})
	assert.True(t, ok)
}

func TestCache_LoadLeaderCancelDoesNotFailFollowers(t *testing.T) {
	c := New()
	key := Key{Endpoint: "courses", Identity: Anonymous}

	release := make(chan struct{})
	started := make(chan struct{})
	var calls int32
	fetch := func(ctx context.Context) (Payload, bool, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		select {
		case <-release:
			return coursesPayload(), true, nil
		case <-ctx.Done():
			return Payload{}, false, ctx.Err()
		}
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := c.Load(leaderCtx, key, time.Minute, fetch)
		leaderErr <- err
	}()
	<-started

	type outcome struct {
		payload Payload
		err     error
	}
	follower := make(chan outcome, 1)
	go func() {
		p, _, err := c.Load(context.Background(), key, time.Minute, fetch)
		follower <- outcome{payload: p, err: err}
	}()
	// Give the follower time to join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)

	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, coursesPayload(), got.payload)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, c.Len())
}

func TestCache_InvalidateMatchesWholeSegments(t *testing.T) {
	c := New()
	c.Put(Key{Endpoint: "courses", Identity: "a"}, coursesPayload(), time.Minute)
	c.Put(Key{Endpoint: "courses?page=2", Identity: "a"}, coursesPayload(), time.Minute)
	c.Put(Key{Endpoint: "courses/1/lessons", Identity: "a"}, coursesPayload(), time.Minute)
	c.Put(Key{Endpoint: "courses-archive/1", Identity: "a"}, coursesPayload(), time.Minute)
	c.Put(Key{Endpoint: "coursesx", Identity: "a"}, coursesPayload(), time.Minute)

	assert.Equal(t, 3, c.Invalidate("courses"))

	_, ok := c.Get(Key{Endpoint: "courses-archive/1", Identity: "a"})
	assert.True(t, ok)
	_, ok = c.Get(Key{Endpoint: "coursesx", Identity: "a"})
	assert.True(t, ok)

	assert.Equal(t, 2, c.Invalidate(""))
}

func TestCache_Purge(t *testing.T) {
	c := New()
	c.Put(Key{Endpoint: "courses", Identity: "a"}, coursesPayload(), time.Minute)
	c.Put(Key{Endpoint: "categories", Identity: "a"}, coursesPayload(), time.Minute)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Anonymous, Fingerprint(""))

	fp := Fingerprint("token-1")
	assert.Len(t, fp, 32)
	assert.Equal(t, fp, Fingerprint("token-1"))
	assert.NotEqual(t, fp, Fingerprint("token-2"))
	assert.NotContains(t, fp, "token")
}
