package config

import (
	"os"
	"time"
)

// RateLimitConfig drives the Redis token-bucket limiter middleware. One
// bucket holds Capacity tokens and refills RefillTokens every
// RefillInterval; TTL bounds how long idle buckets survive in Redis.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads the general API limiter settings. Defaults allow
// 60 requests with a refill of one per second.
func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("RATE_LIMITER_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:         getenv("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	return sanitizeRateLimit(def)
}

// LoadEmailRateLimitConfig reads the limiter settings for the send-verify
// and send-reset endpoints: 3 requests per hour per identifier, refilling
// one token every 20 minutes.
func LoadEmailRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("RATE_LIMITER_ENABLED", true),
		Capacity:       envInt("EMAIL_RATE_LIMIT_CAPACITY", 3),
		RefillTokens:   1,
		RefillInterval: envDur("EMAIL_RATE_LIMIT_REFILL_INTERVAL", 20*time.Minute),
		TTL:            envDur("EMAIL_RATE_LIMIT_TTL", 2*time.Hour),
		Prefix:         getenv("EMAIL_RATE_LIMIT_PREFIX", "rl:email"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	return sanitizeRateLimit(def)
}

func sanitizeRateLimit(c RateLimitConfig) RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	minTTL := 5 * c.RefillInterval
	if c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
