package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)

	if !rl.Allow("a") {
		t.Fatal("first request of a should pass")
	}
	if rl.Allow("a") {
		t.Error("second request of a should be limited")
	}
	if !rl.Allow("b") {
		t.Error("b has its own bucket")
	}
}

func TestClientID(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		key    string
		want   string
	}{
		{"api key wins", "10.0.0.1:5000", "secret", "key:secret"},
		{"ip without port", "10.0.0.1:5000", "", "ip:10.0.0.1"},
		{"bare ip", "10.0.0.2", "", "ip:10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/v1/engines", http.NoBody)
			r.RemoteAddr = tt.remote
			if tt.key != "" {
				r = r.WithContext(context.WithValue(r.Context(), apiKeyCtxKey{}, tt.key))
			}
			if got := clientID(r); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiter_KeysShareNoBucket(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	auth := APIKeyAuth([]string{"k1", "k2"})
	h := auth(rl.Middleware()(okHandler()))

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/engines", http.NoBody)
		req.Header.Set("Authorization", "Bearer "+key)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}
	if code := send("k1"); code != http.StatusOK {
		t.Fatalf("k1 first: got %d", code)
	}
	if code := send("k1"); code != http.StatusTooManyRequests {
		t.Errorf("k1 second: got %d", code)
	}
	if code := send("k2"); code != http.StatusOK {
		t.Errorf("k2 first: got %d", code)
	}
}
