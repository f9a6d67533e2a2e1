package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/querydsl/internal/catalog"
	compileuc "github.com/kailas-cloud/querydsl/internal/usecase/compile"
	healthuc "github.com/kailas-cloud/querydsl/internal/usecase/health"
	"github.com/kailas-cloud/querydsl/pkg/directive"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error response codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeNotFound         ErrorCode = "not_found"
	CodeMethodNotAllowed ErrorCode = "method_not_allowed"
	CodeEngineNotFound   ErrorCode = "engine_not_found"
	CodeInvalidBaseQuery ErrorCode = "invalid_base_query"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeBindingFailed    ErrorCode = "binding_failed"
	CodeRateLimited      ErrorCode = "rate_limited"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CompileRequest is the body of POST /v1/engines/{name}/compile. Query is
// the base query of a function_score engine.
type CompileRequest struct {
	Params map[string]any  `json:"params"`
	Query  json.RawMessage `json:"query,omitempty"`
}

// CompileResponse carries the compiled query.
type CompileResponse struct {
	Engine   string          `json:"engine"`
	Kind     string          `json:"kind"`
	Revision uint64          `json:"revision"`
	Cached   bool            `json:"cached"`
	Query    json.RawMessage `json:"query"`
}

// EngineResponse describes one engine.
type EngineResponse struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Attributes []string `json:"attributes"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the compile API.
type Server struct {
	compile       *compileuc.Service
	health        *healthuc.Service
	maxBodyBytes  int64
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. maxBodyBytes <= 0 leaves request
// bodies unbounded.
func NewServer(
	compile *compileuc.Service,
	health *healthuc.Service,
	maxBodyBytes int64,
	logger *zap.Logger,
) *Server {
	s := &Server{
		compile:      compile,
		health:       health,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(catalog.ErrEngineNotFound, http.StatusNotFound, CodeEngineNotFound),
		sentinelHandler(compileuc.ErrInvalidRequest, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(catalog.ErrBaseQuery, http.StatusBadRequest, CodeInvalidBaseQuery),
		sentinelHandler(directive.ErrValidation, http.StatusUnprocessableEntity, CodeValidationFailed),
		sentinelHandler(directive.ErrBinding, http.StatusUnprocessableEntity, CodeBindingFailed),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1/engines", func(r chi.Router) {
		r.Get("/", s.ListEngines)
		r.Get("/{name}", s.GetEngine)
		r.Post("/{name}/compile", s.CompileEngine)
	})
}

// ListEngines handles GET /v1/engines.
func (s *Server) ListEngines(w http.ResponseWriter, _ *http.Request) {
	engines := s.compile.Engines()
	items := make([]EngineResponse, len(engines))
	for i, e := range engines {
		items[i] = engineToResponse(e)
	}
	writeJSON(w, http.StatusOK, items)
}

// GetEngine handles GET /v1/engines/{name}.
func (s *Server) GetEngine(w http.ResponseWriter, r *http.Request) {
	e, err := s.compile.Engine(chi.URLParam(r, "name"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engineToResponse(e))
}

// CompileEngine handles POST /v1/engines/{name}/compile.
func (s *Server) CompileEngine(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if s.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	var req CompileRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}

	res, err := s.compile.Compile(r.Context(), compileuc.Request{
		Engine: chi.URLParam(r, "name"),
		Params: req.Params,
		Base:   req.Query,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CompileResponse{
		Engine:   res.Engine,
		Kind:     res.Kind,
		Revision: res.Revision,
		Cached:   res.Cached,
		Query:    res.Query,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func engineToResponse(e compileuc.EngineInfo) EngineResponse {
	attrs := e.Attributes
	if attrs == nil {
		attrs = []string{}
	}
	return EngineResponse{Name: e.Name, Kind: e.Kind, Attributes: attrs}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel
// error and reports the full error text to the client.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			s.logger.Debug("request rejected", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
