package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func requests(method, route, code string) float64 {
	return testutil.ToFloat64(httpRequestsTotal.With(prometheus.Labels{
		"method": method, "route": route, "code": code,
	}))
}

func TestMiddleware_Codes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/implicit", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/silent", func(http.ResponseWriter, *http.Request) {})

	tests := []struct {
		path string
		code string
	}{
		{"/implicit", "200"},
		{"/missing", "404"},
		{"/silent", "200"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			before := requests("GET", tt.path, tt.code)
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tt.path, http.NoBody))
			if got := requests("GET", tt.path, tt.code) - before; got != 1 {
				t.Errorf("requests_total delta = %v, want 1", got)
			}
		})
	}
	if testutil.ToFloat64(httpInFlight) != 0 {
		t.Error("in-flight gauge not released")
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("no latency observations")
	}
}

func TestMiddleware_RoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/v1/engines/{name}/compile", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	route := "/v1/engines/{name}/compile"
	before := requests("POST", route, "422")
	for _, name := range []string{"jobs", "products", "stores"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/v1/engines/"+name+"/compile", http.NoBody))
	}
	if got := requests("POST", route, "422") - before; got != 3 {
		t.Errorf("requests under route pattern = %v, want 3", got)
	}
}

func TestRouteLabel(t *testing.T) {
	if got := routeLabel(httptest.NewRequest("GET", "/x", http.NoBody)); got != "unmatched" {
		t.Errorf("no route context: got %q", got)
	}

	var seen string
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Get("/", func(_ http.ResponseWriter, req *http.Request) { seen = routeLabel(req) })
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/v1/", http.NoBody))
	if seen != "/v1" {
		t.Errorf("trailing slash: got %q, want /v1", seen)
	}
}

func TestRegister_Exposed(t *testing.T) {
	Register()
	Register()

	CompileTotal.WithLabelValues("jobs", "ok").Inc()
	CacheTotal.WithLabelValues("l1", "hit").Inc()
	httpRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()

	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body, err := io.ReadAll(rr.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`querydsl_compile_total{engine="jobs",status="ok"}`,
		`querydsl_query_cache_total{layer="l1",result="hit"}`,
		`querydsl_http_requests_total{code="200",method="GET",route="/health"}`,
		"querydsl_http_requests_in_flight",
		"querydsl_catalog_revision",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
