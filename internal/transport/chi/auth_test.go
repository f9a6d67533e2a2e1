package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name    string
		keys    []string
		path    string
		headers map[string]string
		want    int
		wantMsg string
	}{
		{name: "no keys configured", path: "/v1/engines", want: http.StatusOK},
		{name: "only empty keys", keys: []string{"", ""}, path: "/v1/engines", want: http.StatusOK},
		{
			name: "missing key", keys: []string{"secret"}, path: "/v1/engines",
			want: http.StatusUnauthorized, wantMsg: "missing api key",
		},
		{
			name: "basic scheme", keys: []string{"secret"}, path: "/v1/engines",
			headers: map[string]string{"Authorization": "Basic c2VjcmV0"},
			want:    http.StatusUnauthorized, wantMsg: "authorization header must use Bearer scheme",
		},
		{
			name: "empty bearer", keys: []string{"secret"}, path: "/v1/engines",
			headers: map[string]string{"Authorization": "Bearer "},
			want:    http.StatusUnauthorized, wantMsg: "authorization header must use Bearer scheme",
		},
		{
			name: "wrong key", keys: []string{"secret"}, path: "/v1/engines",
			headers: map[string]string{"Authorization": "Bearer nope"},
			want:    http.StatusUnauthorized, wantMsg: "invalid api key",
		},
		{
			name: "bearer", keys: []string{"secret"}, path: "/v1/engines",
			headers: map[string]string{"Authorization": "Bearer secret"},
			want:    http.StatusOK,
		},
		{
			name: "lowercase scheme", keys: []string{"secret"}, path: "/v1/engines",
			headers: map[string]string{"Authorization": "bearer secret"},
			want:    http.StatusOK,
		},
		{
			name: "api key header", keys: []string{"k1", "k2"}, path: "/v1/engines",
			headers: map[string]string{APIKeyHeader: "k2"},
			want:    http.StatusOK,
		},
		{name: "health exempt", keys: []string{"secret"}, path: "/health", want: http.StatusOK},
		{name: "metrics exempt", keys: []string{"secret"}, path: "/metrics", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			APIKeyAuth(tt.keys)(okHandler()).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.want)
			}
			if tt.wantMsg == "" {
				return
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Code != CodeUnauthorized || resp.Message != tt.wantMsg {
				t.Errorf("error: got %s %q, want %s %q", resp.Code, resp.Message, CodeUnauthorized, tt.wantMsg)
			}
		})
	}
}

func TestAPIKeyAuth_StoresFingerprint(t *testing.T) {
	var got string
	h := APIKeyAuth([]string{"secret"})(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Value(apiKeyCtxKey{}).(string)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/engines", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == "" || got == "secret" || got != keyFingerprint("secret") {
		t.Errorf("context key = %q, want fingerprint %q", got, keyFingerprint("secret"))
	}
}
