package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, requests int) (*Limiter, *time.Time) {
	t.Helper()
	l := NewLimiter(Config{Requests: requests, Window: time.Minute, CleanupInterval: time.Hour})
	t.Cleanup(l.Stop)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_Allow(t *testing.T) {
	l, now := newTestLimiter(t, 2)

	ok, _ := l.Allow("1.2.3.4")
	assert.True(t, ok)
	ok, _ = l.Allow("1.2.3.4")
	assert.True(t, ok)

	*now = now.Add(20 * time.Second)
	ok, reset := l.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, reset)

	ok, _ = l.Allow("5.6.7.8")
	assert.True(t, ok, "clients are counted separately")

	*now = now.Add(41 * time.Second)
	ok, _ = l.Allow("1.2.3.4")
	assert.True(t, ok, "new window")
}

func TestLimiter_EvictIdle(t *testing.T) {
	l, now := newTestLimiter(t, 5)
	l.Allow("a")
	*now = now.Add(30 * time.Second)
	l.Allow("b")

	*now = now.Add(40 * time.Second)
	l.evictIdle()
	assert.Equal(t, 1, l.ActiveClients())
}

func TestLimiter_Middleware(t *testing.T) {
	l, _ := newTestLimiter(t, 1)
	h := l.Middleware(func(r *http.Request) string { return r.RemoteAddr }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
