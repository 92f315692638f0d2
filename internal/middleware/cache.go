package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/exam-registration/internal/config"
)

// bodyRecorder tees the response body so a 200 can be stored.
type bodyRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
	over   bool
}

func (w *bodyRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	if !w.over {
		if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
			w.over = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// ListingCache caches seat listings in Redis. Every write that changes
// seat usage calls Invalidate, which bumps a generation number that is
// part of each key.
type ListingCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log *slog.Logger
}

// NewListingCache returns a cache; rdb may be nil, in which case every
// method is a no-op.
func NewListingCache(cfg config.CacheConfig, rdb *redis.Client) *ListingCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Second
	}
	return &ListingCache{cfg: cfg, rdb: rdb, log: slog.Default().With("component", "cache")}
}

func (lc *ListingCache) enabled() bool { return lc != nil && lc.cfg.Enabled && lc.rdb != nil }

func (lc *ListingCache) genKey() string { return lc.cfg.Prefix + ":gen" }

// Invalidate makes every cached listing stale.
func (lc *ListingCache) Invalidate(ctx context.Context) {
	if !lc.enabled() {
		return
	}
	if err := lc.rdb.Incr(ctx, lc.genKey()).Err(); err != nil {
		lc.log.Warn("invalidate failed", "err", err)
	}
}

// InvalidateOnSuccess wraps a write route and invalidates the cache when
// the handler answered with a 2xx status.
func (lc *ListingCache) InvalidateOnSuccess() echo.MiddlewareFunc {
	if !lc.enabled() {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil && c.Response().Status/100 == 2 {
				lc.Invalidate(context.WithoutCancel(c.Request().Context()))
			}
			return err
		}
	}
}

// Middleware serves cached 200 responses for the configured methods and
// stores fresh ones.
func (lc *ListingCache) Middleware() echo.MiddlewareFunc {
	if !lc.enabled() {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !lc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			gen, err := lc.rdb.Get(ctx, lc.genKey()).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				lc.log.Warn("cache unavailable", "err", err)
				return next(c)
			}
			key := lc.key(c, gen)

			if bs, err := lc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: lc.cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.over {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			hdr.Del(echo.HeaderXRequestID)
			payload, err := encodePayload(rec.status, hdr, rec.buf.Bytes())
			if err == nil {
				err = lc.rdb.Set(context.WithoutCancel(ctx), key, payload, lc.cfg.TTL).Err()
			}
			if err != nil {
				lc.log.Warn("cache store failed", "key", key, "err", err)
			}
			return nil
		}
	}
}

// key hashes the request shape chosen by KeyStrategy.
func (lc *ListingCache) key(c echo.Context, gen int64) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(lc.cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "method_route":
		parts = []string{"method", r.Method, "route", c.Path()}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
	default:
		parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%d:%x", lc.cfg.Prefix, gen, sum)
}

// encodePayload packs [status u32][header length u32][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hj, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8, 8+len(hj)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hj)))
	out = append(out, hj...)
	return append(out, body...), nil
}

func decodePayload(bs []byte) (int, http.Header, []byte, bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	hdr := http.Header{}
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, bs[8+hlen:], true
}
