package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeRateLimiterStore struct {
	counts map[string]int64
	err    error
}

func (f *fakeRateLimiterStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	if f.counts == nil {
		f.counts = make(map[string]int64)
	}
	f.counts[scope]++
	count := f.counts[scope]
	return count <= limit, count, nil
}

func TestRateLimitAllowsWithinWindow(t *testing.T) {
	store := &fakeRateLimiterStore{}
	policy := NewRateLimitPolicy("webhook", time.Minute, 2)
	mw := RateLimit(policy, store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d expected 200 got %d", i+1, resp.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected 2 handler calls got %d", calls)
	}
}

func TestRateLimitBlocksOverLimit(t *testing.T) {
	store := &fakeRateLimiterStore{}
	policy := NewRateLimitPolicy("webhook", time.Minute, 1)
	mw := RateLimit(policy, store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", nil)
	first.RemoteAddr = "10.0.0.1:5000"
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", nil)
	second.RemoteAddr = "10.0.0.1:5001"
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, second)

	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
}

func TestRateLimitScopesByClientIP(t *testing.T) {
	store := &fakeRateLimiterStore{}
	policy := NewRateLimitPolicy("webhook", time.Minute, 1)
	mw := RateLimit(policy, store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", nil)
	first.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	other := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", nil)
	other.Header.Set("X-Forwarded-For", "203.0.113.8")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, other)

	if resp.Code != http.StatusOK {
		t.Fatalf("different IP must have its own window, got %d", resp.Code)
	}
	if _, ok := store.counts["webhook:ip:203.0.113.7"]; !ok {
		t.Fatalf("expected forwarded IP in scope, got %v", store.counts)
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := &fakeRateLimiterStore{}
	policy := NewRateLimitPolicy("webhook", 0, 0)
	mw := RateLimit(policy, store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))
	if calls != 1 {
		t.Fatal("disabled policy must not intercept")
	}
	if len(store.counts) != 0 {
		t.Fatalf("store must not be consulted, got %v", store.counts)
	}
}
