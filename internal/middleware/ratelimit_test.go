package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func limitedHandler(t *testing.T, limit int) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mw := RateLimitMiddleware(client, RateLimitConfig{
		RequestsPerWindow: limit,
		Window:            time.Minute,
		KeyPrefix:         "manager_login",
	}, zap.NewNop())

	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})), mr
}

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/manager/login", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Exactly the configured number of requests pass inside one window
func TestProperty_RateLimitingBlocksExcessiveRequests(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("excess requests get 429", prop.ForAll(
		func(limit int, excess int) bool {
			h, _ := limitedHandler(t, limit)

			passed, blocked := 0, 0
			for i := 0; i < limit+excess; i++ {
				switch hit(h, "10.0.0.7:5123").Code {
				case http.StatusOK:
					passed++
				case http.StatusTooManyRequests:
					blocked++
				}
			}
			return passed == limit && blocked == excess
		},
		gen.IntRange(1, 15),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRateLimit_KeyedByClientIP(t *testing.T) {
	h, mr := limitedHandler(t, 1)

	if w := hit(h, "10.0.0.1:1000"); w.Code != http.StatusOK {
		t.Fatalf("first client got %d", w.Code)
	}
	// another port from the same host shares the bucket
	if w := hit(h, "10.0.0.1:2000"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("same host second request got %d", w.Code)
	}
	if w := hit(h, "10.0.0.2:1000"); w.Code != http.StatusOK {
		t.Fatalf("second client got %d", w.Code)
	}

	if !mr.Exists("manager_login:10.0.0.1") {
		t.Error("expected counter keyed by host")
	}
}

func TestRateLimit_Headers(t *testing.T) {
	h, _ := limitedHandler(t, 2)

	w := hit(h, "10.0.0.3:1")
	if w.Header().Get("X-RateLimit-Limit") != "2" || w.Header().Get("X-RateLimit-Remaining") != "1" {
		t.Errorf("unexpected headers %v", w.Header())
	}

	hit(h, "10.0.0.3:1")
	w = hit(h, "10.0.0.3:1")
	if w.Header().Get("Retry-After") == "" || w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("blocked response missing retry headers: %v", w.Header())
	}
}

func TestRateLimit_WindowExpiry(t *testing.T) {
	h, mr := limitedHandler(t, 1)

	hit(h, "10.0.0.4:1")
	if w := hit(h, "10.0.0.4:1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected block, got %d", w.Code)
	}

	mr.FastForward(time.Minute + time.Second)
	if w := hit(h, "10.0.0.4:1"); w.Code != http.StatusOK {
		t.Errorf("expected new window to pass, got %d", w.Code)
	}
}

func TestRateLimit_NilClientPassesThrough(t *testing.T) {
	mw := RateLimitMiddleware(nil, RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute}, zap.NewNop())
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		if w := hit(h, "10.0.0.5:1"); w.Code != http.StatusOK {
			t.Fatalf("request %d got %d", i, w.Code)
		}
	}
}

func TestRateLimit_RedisDownFailsOpen(t *testing.T) {
	h, mr := limitedHandler(t, 1)
	mr.Close()

	if w := hit(h, "10.0.0.6:1"); w.Code != http.StatusOK {
		t.Errorf("expected fail-open 200, got %d", w.Code)
	}
}
