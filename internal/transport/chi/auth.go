package chi

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// APIKeyHeader is accepted as an alternative to a Bearer token.
const APIKeyHeader = "X-API-Key"

type apiKeyCtxKey struct{}

// isExempt reports whether path bypasses auth and rate limiting.
func isExempt(path string) bool {
	return path == "/health" || path == "/metrics"
}

// keyFingerprint identifies a key without keeping it in memory maps or logs.
func keyFingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// APIKeyAuth rejects requests that carry no known API key. Keys arrive as
// "Authorization: Bearer <key>" or in the X-API-Key header. With no keys
// configured the middleware is a pass-through. The key fingerprint is
// stored in the request context for per-client rate limiting.
func APIKeyAuth(apiKeys []string) func(http.Handler) http.Handler {
	digests := make([][sha256.Size]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}

	known := func(key string) bool {
		d := sha256.Sum256([]byte(key))
		match := 0
		for i := range digests {
			match |= subtle.ConstantTimeCompare(d[:], digests[i][:])
		}
		return match == 1
	}

	return func(next http.Handler) http.Handler {
		if len(digests) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			key, msg := presentedKey(r)
			if msg != "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
				return
			}
			if !known(key) {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}
			ctx := context.WithValue(r.Context(), apiKeyCtxKey{}, keyFingerprint(key))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// presentedKey extracts the key, or returns a rejection message.
func presentedKey(r *http.Request) (key, msg string) {
	if k := r.Header.Get(APIKeyHeader); k != "" {
		return k, ""
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", "missing api key"
	}
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", "authorization header must use Bearer scheme"
	}
	return token, ""
}
