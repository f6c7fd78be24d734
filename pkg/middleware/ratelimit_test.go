package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/arborhq/arbor/pkg/auth"
	"github.com/arborhq/arbor/pkg/contextkeys"
)

// withAuthUser attaches an authenticated user to the request
func withAuthUser(r *http.Request, userID string) *http.Request {
	authCtx := &auth.AuthContext{User: &auth.User{ID: userID, Username: userID}}
	return r.WithContext(contextkeys.WithAuth(r.Context(), authCtx))
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("allows up to capacity then blocks", func(t *testing.T) {
		rl := NewRateLimiter(&RateLimitConfig{
			RequestsPerWindow: 3,
			WindowDuration:    time.Minute,
			BurstSize:         0,
		})

		for i := 0; i < 3; i++ {
			if !rl.Allow("k") {
				t.Fatalf("request %d unexpectedly blocked", i)
			}
		}
		if rl.Allow("k") {
			t.Error("request over capacity was allowed")
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl := NewRateLimiter(&RateLimitConfig{
			RequestsPerWindow: 1,
			WindowDuration:    time.Minute,
		})

		if !rl.Allow("a") {
			t.Error("first request for a blocked")
		}
		if !rl.Allow("b") {
			t.Error("first request for b blocked")
		}
		if rl.Allow("a") {
			t.Error("second request for a allowed")
		}
	})

	t.Run("burst extends capacity", func(t *testing.T) {
		rl := NewRateLimiter(&RateLimitConfig{
			RequestsPerWindow: 2,
			WindowDuration:    time.Minute,
			BurstSize:         2,
		})

		for i := 0; i < 4; i++ {
			if !rl.Allow("k") {
				t.Fatalf("request %d unexpectedly blocked within burst", i)
			}
		}
		if rl.Allow("k") {
			t.Error("request over burst capacity was allowed")
		}
	})
}

func TestRateLimiter_Remaining(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    time.Minute,
	})

	if got := rl.Remaining("fresh"); got != 5 {
		t.Errorf("Remaining(fresh) = %d, want 5", got)
	}

	rl.Allow("k")
	rl.Allow("k")
	if got := rl.Remaining("k"); got != 3 {
		t.Errorf("Remaining(k) = %d, want 3", got)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    10 * time.Millisecond,
	})

	rl.Allow("stale")
	time.Sleep(25 * time.Millisecond)
	rl.Cleanup()

	rl.mu.RLock()
	_, exists := rl.buckets["stale"]
	rl.mu.RUnlock()
	if exists {
		t.Error("stale bucket survived cleanup")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("sets rate limit headers", func(t *testing.T) {
		m := NewRateLimitMiddleware()
		req := withAuthUser(httptest.NewRequest(http.MethodGet, "/", nil), "u1")
		rec := httptest.NewRecorder()

		m.Handler(okHandler).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") == "" {
			t.Error("X-RateLimit-Limit header missing")
		}
		if rec.Header().Get("X-RateLimit-Remaining") == "" {
			t.Error("X-RateLimit-Remaining header missing")
		}
	})

	t.Run("returns 429 when exhausted", func(t *testing.T) {
		m := &RateLimitMiddleware{
			userLimiter:      NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}),
			anonymousLimiter: NewRateLimiter(DefaultRateLimitConfig()),
		}
		handler := m.Handler(okHandler)

		req := withAuthUser(httptest.NewRequest(http.MethodGet, "/", nil), "u1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("first request status = %d, want 200", rec.Code)
		}

		req = withAuthUser(httptest.NewRequest(http.MethodGet, "/", nil), "u1")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("second request status = %d, want 429", rec.Code)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Error("Retry-After header missing")
		}
	})

	t.Run("anonymous requests keyed by IP", func(t *testing.T) {
		m := &RateLimitMiddleware{
			userLimiter:      NewRateLimiter(PerUserRateLimitConfig()),
			anonymousLimiter: NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}),
		}
		handler := m.Handler(okHandler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("first request status = %d, want 200", rec.Code)
		}

		// Different IP has its own bucket
		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "10.0.0.2")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("request from second IP status = %d, want 200", rec.Code)
		}

		// First IP is now exhausted
		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "10.0.0.1")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("second request from first IP status = %d, want 429", rec.Code)
		}
	})
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "x-forwarded-for wins",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "5.6.7.8"},
			remote:  "9.9.9.9:1234",
			want:    "1.2.3.4",
		},
		{
			name:    "x-real-ip second",
			headers: map[string]string{"X-Real-IP": "5.6.7.8"},
			remote:  "9.9.9.9:1234",
			want:    "5.6.7.8",
		},
		{
			name:   "remote addr fallback",
			remote: "9.9.9.9:1234",
			want:   "9.9.9.9:1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func setupDistributedLimiter(t *testing.T, config *RateLimitConfig) (*DistributedRateLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewDistributedRateLimiter(client, config, "ratelimit:test"), mr
}

func TestDistributedRateLimiter_Allow(t *testing.T) {
	rl, _ := setupDistributedLimiter(t, &RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := rl.Allow(ctx, "u1")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("request %d unexpectedly blocked", i)
		}
	}

	allowed, err := rl.Allow(ctx, "u1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Error("request over limit was allowed")
	}

	remaining, err := rl.Remaining(ctx, "u1")
	if err != nil {
		t.Fatalf("Remaining() error = %v", err)
	}
	if remaining != 0 {
		t.Errorf("Remaining() = %d, want 0", remaining)
	}
}

func TestDistributedRateLimiter_WindowReset(t *testing.T) {
	rl, mr := setupDistributedLimiter(t, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	})
	ctx := context.Background()

	if allowed, _ := rl.Allow(ctx, "u1"); !allowed {
		t.Fatal("first request blocked")
	}
	if allowed, _ := rl.Allow(ctx, "u1"); allowed {
		t.Fatal("second request allowed")
	}

	// Advancing past the window expires the counter
	mr.FastForward(2 * time.Minute)

	if allowed, _ := rl.Allow(ctx, "u1"); !allowed {
		t.Error("request blocked after window reset")
	}
}

func TestDistributedRateLimiter_Reset(t *testing.T) {
	rl, _ := setupDistributedLimiter(t, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	})
	ctx := context.Background()

	rl.Allow(ctx, "u1")
	if err := rl.Reset(ctx, "u1"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	remaining, err := rl.Remaining(ctx, "u1")
	if err != nil {
		t.Fatalf("Remaining() error = %v", err)
	}
	if remaining != 1 {
		t.Errorf("Remaining() after reset = %d, want 1", remaining)
	}
}

func TestDistributedRateLimitMiddleware_FailOpen(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	m := NewDistributedRateLimitMiddleware(client)
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Kill Redis: fail-open serves the request anyway
	mr.Close()

	req := withAuthUser(httptest.NewRequest(http.MethodGet, "/", nil), "u1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("fail-open status = %d, want 200", rec.Code)
	}

	// Fail-closed returns 503 instead
	m.SetFallbackEnabled(false)
	req = withAuthUser(httptest.NewRequest(http.MethodGet, "/", nil), "u1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("fail-closed status = %d, want 503", rec.Code)
	}
}
