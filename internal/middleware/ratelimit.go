package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	KeyPrefix         string
}

// windowCounter counts requests per client in fixed windows stored in redis
// under "<prefix>:<client>"
type windowCounter struct {
	client *redis.Client
	cfg    RateLimitConfig
}

// hit records one request and returns the count in the current window and
// the time left until it resets
func (c windowCounter) hit(ctx context.Context, client string) (int64, time.Duration, error) {
	key := c.cfg.KeyPrefix + ":" + client

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	if _, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	}); err != nil {
		return 0, 0, err
	}

	reset := ttl.Val()
	if reset < 0 {
		// first hit of a window
		if err := c.client.Expire(ctx, key, c.cfg.Window).Err(); err != nil {
			return 0, 0, err
		}
		reset = c.cfg.Window
	}
	return incr.Val(), reset, nil
}

// RateLimitMiddleware caps requests per client IP. A nil client or a
// non-positive limit disables it; a redis failure lets the request through.
func RateLimitMiddleware(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if redisClient == nil || config.RequestsPerWindow <= 0 {
			return next
		}

		counter := windowCounter{client: redisClient, cfg: config}
		limit := strconv.Itoa(config.RequestsPerWindow)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			count, reset, err := counter.hit(r.Context(), ip)
			if err != nil {
				logger.Error("Rate limiter unavailable, allowing request",
					zap.Error(err),
					zap.String("client", ip),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(config.RequestsPerWindow-int(count), 0)))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))

			if count > int64(config.RequestsPerWindow) {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(reset.Seconds()))))
				logger.Warn("Rate limit exceeded",
					zap.String("client", ip),
					zap.String("path", r.URL.Path),
					zap.Int64("count", count),
				)
				RespondWithError(w, http.StatusTooManyRequests, "too many attempts, try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the host part of RemoteAddr, which RealIP has already
// rewritten when the server sits behind a proxy
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
