package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnRateLimiterBurstThenThrottle(t *testing.T) {
	l := NewConnRateLimiter(1, 2, time.Minute)

	assert.True(t, l.Allow("10.0.0.1"), "first token from the burst")
	assert.True(t, l.Allow("10.0.0.1"), "second token from the burst")
	assert.False(t, l.Allow("10.0.0.1"), "burst exhausted, rate too slow to refill yet")
}

func TestConnRateLimiterPerAddress(t *testing.T) {
	l := NewConnRateLimiter(1, 1, time.Minute)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "a different address has its own bucket")
}
