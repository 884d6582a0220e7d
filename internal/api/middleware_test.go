package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(2)
	now := time.Now()

	assert.True(t, rl.Allow("1.1.1.1", now))
	assert.True(t, rl.Allow("1.1.1.1", now))
	assert.False(t, rl.Allow("1.1.1.1", now))
	assert.True(t, rl.Allow("2.2.2.2", now))

	// one token refills every 30s
	assert.True(t, rl.Allow("1.1.1.1", now.Add(31*time.Second)))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("1.1.1.1", time.Now()))
	}

	var nilLimiter *RateLimiter
	assert.True(t, nilLimiter.Allow("1.1.1.1", time.Now()))
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(10)
	now := time.Now()
	rl.Allow("old", now.Add(-2*time.Minute))
	rl.Allow("new", now)

	assert.Equal(t, 1, rl.sweep(now))
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "new")
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "10.0.0.7", clientIP(r))

	r.RemoteAddr = "10.0.0.8"
	assert.Equal(t, "10.0.0.8", clientIP(r))
}
