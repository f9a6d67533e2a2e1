package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/querydsl/internal/catalog"
	compileuc "github.com/kailas-cloud/querydsl/internal/usecase/compile"
	healthuc "github.com/kailas-cloud/querydsl/internal/usecase/health"
)

const testCatalog = `
engines:
  - name: Jobs
    mapper:
      city: {fields: [city], values: [match_params.city]}
      stack: {values_map: {min: match_params.min}}
    directives:
      - {attr: city, type: const}
      - attr: stack
        type: script
        script: "doc['x'].value > params.min"
        mandatory_params: [min]
  - name: Ranking
    kind: function_score
    functions:
      - {attr: boost, type: weight, weight: 2}
`

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("redis down") }

func newTestRouter(t *testing.T, cfg RouterConfig, cache healthuc.CachePinger) http.Handler {
	t.Helper()
	c, err := catalog.Parse([]byte(testCatalog), t.TempDir(), nil)
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	reg := catalog.NewRegistry(c)
	srv := NewServer(compileuc.New(reg, nil), healthuc.New(reg, cache), 1<<16, zap.NewNop())
	return NewRouter(srv, cfg, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return e
}

func TestListEngines(t *testing.T) {
	h := newTestRouter(t, RouterConfig{}, nil)

	rr := do(t, h, http.MethodGet, "/v1/engines", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body)
	}
	var got []EngineResponse
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "Jobs" || got[1].Kind != catalog.KindFunctionScore {
		t.Errorf("unexpected engines: %+v", got)
	}
}

func TestGetEngine(t *testing.T) {
	h := newTestRouter(t, RouterConfig{}, nil)

	rr := do(t, h, http.MethodGet, "/v1/engines/Jobs", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var got EngineResponse
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if strings.Join(got.Attributes, ",") != "city,stack" {
		t.Errorf("attributes: got %v", got.Attributes)
	}

	rr = do(t, h, http.MethodGet, "/v1/engines/Nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeEngineNotFound {
		t.Errorf("code: got %s", e.Code)
	}
}

func TestCompileEngine(t *testing.T) {
	h := newTestRouter(t, RouterConfig{}, nil)

	rr := do(t, h, http.MethodPost, "/v1/engines/Jobs/compile", `{"params":{"city":"Oslo","min":3}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body)
	}
	if !strings.Contains(rr.Body.String(), "doc['x'].value > params.min") {
		t.Errorf("script source escaped in body: %s", rr.Body)
	}
	var got CompileResponse
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Engine != "Jobs" || got.Kind != catalog.KindBool || got.Revision != 1 {
		t.Errorf("unexpected meta: %+v", got)
	}
	want := `{"bool":{"filter":[{"term":{"city":{"value":"Oslo"}}},` +
		`{"script":{"script":{"lang":"painless","params":{"min":3},"source":"doc['x'].value > params.min"}}}]}}`
	var buf bytes.Buffer
	if err := json.Compact(&buf, got.Query); err != nil {
		t.Fatal(err)
	}
	if buf.String() != want {
		t.Errorf("query:\n got %s\nwant %s", buf.String(), want)
	}
}

func TestCompileEngine_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   ErrorCode
	}{
		{"malformed body", "/v1/engines/Jobs/compile", `{"params":`, http.StatusBadRequest, CodeBadRequest},
		{"unknown field", "/v1/engines/Jobs/compile", `{"parms":{}}`, http.StatusBadRequest, CodeBadRequest},
		{"unknown engine", "/v1/engines/Nope/compile", `{}`, http.StatusNotFound, CodeEngineNotFound},
		{"missing value", "/v1/engines/Jobs/compile", `{"params":{"min":1}}`, http.StatusUnprocessableEntity, CodeValidationFailed},
		{"missing script param", "/v1/engines/Jobs/compile", `{"params":{"city":"Oslo"}}`, http.StatusUnprocessableEntity, CodeValidationFailed},
		{"base on bool engine", "/v1/engines/Jobs/compile", `{"params":{"city":"Oslo","min":1},"query":{"match_all":{}}}`, http.StatusBadRequest, CodeInvalidBaseQuery},
		{"base not an object", "/v1/engines/Ranking/compile", `{"query":[1]}`, http.StatusBadRequest, CodeBadRequest},
	}
	h := newTestRouter(t, RouterConfig{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, tt.path, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body)
			}
			if e := decodeError(t, rr); e.Code != tt.wantCode {
				t.Errorf("code: got %s, want %s", e.Code, tt.wantCode)
			}
		})
	}
}

func TestCompileEngine_BodyLimit(t *testing.T) {
	h := newTestRouter(t, RouterConfig{}, nil)
	body := `{"params":{"city":"` + strings.Repeat("x", 1<<16) + `"}}`

	rr := do(t, h, http.MethodPost, "/v1/engines/Jobs/compile", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", rr.Code)
	}
}

func TestCompileEngine_FunctionScore(t *testing.T) {
	h := newTestRouter(t, RouterConfig{}, nil)

	rr := do(t, h, http.MethodPost, "/v1/engines/Ranking/compile", `{"query":{"match_all":{}}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body)
	}
	var got CompileResponse
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	_ = json.Compact(&buf, got.Query)
	if want := `{"function_score":{"functions":[{"weight":2}],"query":{"match_all":{}}}}`; buf.String() != want {
		t.Errorf("query:\n got %s\nwant %s", buf.String(), want)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		cache      healthuc.CachePinger
		wantStatus int
		wantBody   string
	}{
		{"no cache", nil, http.StatusOK, "ok"},
		{"cache down", failingPinger{}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, RouterConfig{APIKeys: []string{"secret"}}, tt.cache)
			rr := do(t, h, http.MethodGet, "/health", "")
			if rr.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.wantStatus)
			}
			var got HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got.Status != tt.wantBody || got.Checks["catalog"] != "ok" {
				t.Errorf("unexpected health: %+v", got)
			}
		})
	}
}

func TestRouter_AuthAndNotFound(t *testing.T) {
	h := newTestRouter(t, RouterConfig{APIKeys: []string{"secret"}}, nil)

	if rr := do(t, h, http.MethodGet, "/v1/engines", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated: got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/engines", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("authenticated: got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	req = httptest.NewRequest(http.MethodGet, "/v2/nothing", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown route: got %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeNotFound {
		t.Errorf("code: got %s", e.Code)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	h := newTestRouter(t, RouterConfig{RPS: 0.001, Burst: 2}, nil)

	for i := range 2 {
		if rr := do(t, h, http.MethodGet, "/v1/engines", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i, rr.Code)
		}
	}
	rr := do(t, h, http.MethodGet, "/v1/engines", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("over limit: got %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeRateLimited {
		t.Errorf("code: got %s", e.Code)
	}
	// health stays reachable
	if rr := do(t, h, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("health while limited: got %d", rr.Code)
	}
}
