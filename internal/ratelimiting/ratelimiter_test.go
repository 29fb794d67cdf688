package ratelimiting

import (
	"net/http"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockedRateLimiter struct {
	consumeFunc func(key string) bool
}

func (m *mockedRateLimiter) Consume(key string) bool {
	return m.consumeFunc(key)
}

func TestTokenBucketRateLimiter(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping test in short mode")
	}
	rateLimiter, stop := NewTokenBucketRateLimiter(1, 2)
	defer stop()

	assert.True(t, rateLimiter.Consume("ip: 10.0.0.2"))

	// Burst of 2
	assert.True(t, rateLimiter.Consume("ip: 10.0.0.1"))
	assert.True(t, rateLimiter.Consume("ip: 10.0.0.1"))
	assert.False(t, rateLimiter.Consume("ip: 10.0.0.1"))

	time.Sleep(1000 * time.Millisecond)
	runtime.Gosched()

	// Refill rate of 1
	assert.True(t, rateLimiter.Consume("ip: 10.0.0.1"))
	assert.False(t, rateLimiter.Consume("ip: 10.0.0.1"))

	// One client draining its bucket does not touch anyone else's
	assert.True(t, rateLimiter.Consume("ip: 10.0.0.3"))
	assert.True(t, rateLimiter.Consume("ip: 10.0.0.3"))
	assert.False(t, rateLimiter.Consume("ip: 10.0.0.3"))

	assert.True(t, rateLimiter.Consume("ip: 10.0.0.2"))
	assert.True(t, rateLimiter.Consume("ip: 10.0.0.2"))
	assert.False(t, rateLimiter.Consume("ip: 10.0.0.2"))
}

func TestIPKeyFunc(t *testing.T) {
	t.Run("bare address", func(t *testing.T) {
		assert.Equal(t, "ip: 123.123.123.123", IPKeyFunc(&http.Request{RemoteAddr: "123.123.123.123"}))
	})

	t.Run("address with port", func(t *testing.T) {
		assert.Equal(t, "ip: 1.2.3.4", IPKeyFunc(&http.Request{RemoteAddr: "1.2.3.4:8080"}))
	})

	t.Run("ipv6 with port", func(t *testing.T) {
		assert.Equal(t, "ip: ::1", IPKeyFunc(&http.Request{RemoteAddr: "[::1]:443"}))
	})
}

func TestRequestBasedRateLimiter(t *testing.T) {
	var expectedKey string
	var allowed bool
	rateLimiter := &mockedRateLimiter{
		consumeFunc: func(key string) bool {
			t.Helper()
			assert.Equal(t, expectedKey, key)
			return allowed
		},
	}
	requestRateLimiter := NewRequestBasedRateLimiter(rateLimiter, IPKeyFunc)

	expectedKey = "ip: 1.1.1.1"
	allowed = true
	assert.True(t, requestRateLimiter.Consume(&http.Request{RemoteAddr: "1.1.1.1:50000"}))
	assert.Equal(t, "ip: 1.1.1.1", requestRateLimiter.KeyFor(&http.Request{RemoteAddr: "1.1.1.1:50000"}))
	allowed = false
	assert.False(t, requestRateLimiter.Consume(&http.Request{RemoteAddr: "1.1.1.1:50000"}))

	expectedKey = "ip: 2.1.1.1"
	allowed = true
	assert.True(t, requestRateLimiter.Consume(&http.Request{RemoteAddr: "2.1.1.1:50000"}))
}
