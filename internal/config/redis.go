package config

import (
	"context"
	"crypto/tls"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client for rate limiting and the
// listing cache. Supported variables:
//
//	REDIS_ADDR                 host:port (default localhost:6379)
//	REDIS_HOST and REDIS_PORT  take precedence over REDIS_ADDR
//	REDIS_PASSWORD             optional password
//	REDIS_DB                   database number (default 0)
//	REDIS_TLS                  "true" or "1" enables TLS
//	REDIS_DISABLED             skip Redis entirely
//
// It returns nil when Redis is disabled or unreachable; callers then run
// without caching and rate limiting.
func NewRedisClient() *redis.Client {
	log := slog.Default().With("component", "redis")
	if envBool("REDIS_DISABLED", false) {
		log.Info("redis disabled")
		return nil
	}
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	var tlsConf *tls.Config
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, caching and rate limiting disabled", "addr", addr, "err", err)
		_ = client.Close()
		return nil
	}
	log.Info("redis connected", "addr", addr)
	return client
}
