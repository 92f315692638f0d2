package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig drives the Redis token bucket in front of /v1. Booking
// writes draw from a second, smaller bucket so a single student cannot
// hammer the confirm endpoint.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig returns the general API bucket.
func LoadRateLimitConfig() RateLimitConfig {
	return loadBucket("RATE_LIMIT", RateLimitConfig{
		Enabled:        true,
		Capacity:       60,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_user_route",
		Prefix:         "exams:rl",
	})
}

// LoadBookingRateLimitConfig returns the bucket for booking writes
// (confirm, cancel, reschedule), keyed per user.
func LoadBookingRateLimitConfig() RateLimitConfig {
	return loadBucket("BOOKING_RATE_LIMIT", RateLimitConfig{
		Enabled:        true,
		Capacity:       10,
		RefillTokens:   1,
		RefillInterval: 6 * time.Second,
		TTL:            10 * time.Minute,
		KeyStrategy:    "user",
		Prefix:         "exams:rl:booking",
	})
}

func loadBucket(envPrefix string, def RateLimitConfig) RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool(envPrefix+"_ENABLED", def.Enabled),
		Capacity:       envInt(envPrefix+"_CAPACITY", def.Capacity),
		RefillTokens:   envInt(envPrefix+"_REFILL_TOKENS", def.RefillTokens),
		RefillInterval: envDur(envPrefix+"_REFILL_INTERVAL", def.RefillInterval),
		TTL:            envDur(envPrefix+"_TTL", def.TTL),
		KeyStrategy:    envStr(envPrefix+"_KEY_STRATEGY", def.KeyStrategy),
		Prefix:         envStr(envPrefix+"_PREFIX", def.Prefix),
		Debug:          envBool(envPrefix+"_DEBUG", false),
	}
	if b := envInt(envPrefix+"_BURST", -1); b > 0 {
		cfg.Capacity = b
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
