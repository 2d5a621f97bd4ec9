package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSupportedAlgorithm(t *testing.T) {
	assert.True(t, supportedAlgorithm("HS256"))
	// Every other value must be rejected at startup; the codec pins HS256.
	for _, alg := range []string{"HS512", "RS256", "none", ""} {
		assert.False(t, supportedAlgorithm(alg), alg)
	}
}

func TestSanitizeRateLimit(t *testing.T) {
	got := sanitizeRateLimit(RateLimitConfig{
		Capacity:       0,
		RefillTokens:   -1,
		RefillInterval: 0,
		TTL:            time.Millisecond,
	})
	assert.Equal(t, 1, got.Capacity)
	assert.Equal(t, 1, got.RefillTokens)
	assert.Equal(t, time.Second, got.RefillInterval)
	// TTL is raised so an idle bucket outlives several refill intervals.
	assert.Equal(t, 5*time.Second, got.TTL)
}
