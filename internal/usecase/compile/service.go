package compile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/querydsl/internal/catalog"
	"github.com/kailas-cloud/querydsl/internal/logger"
	"github.com/kailas-cloud/querydsl/internal/metrics"
	"github.com/kailas-cloud/querydsl/pkg/directive"
	"github.com/kailas-cloud/querydsl/pkg/dsl"
)

// ErrInvalidRequest marks a request the service could not decode.
var ErrInvalidRequest = errors.New("invalid compile request")

// Request asks for the query of one engine.
type Request struct {
	Engine string
	Params map[string]any
	// Base is the query wrapped by a function_score engine, as JSON.
	Base json.RawMessage
}

// Result is a compiled, serialized query.
type Result struct {
	Engine   string
	Kind     string
	Revision uint64
	Query    json.RawMessage
	Cached   bool
}

// EngineInfo describes a catalog engine.
type EngineInfo struct {
	Name       string
	Kind       string
	Attributes []string
}

// Service compiles catalog engines, memoizing results in a cache.
type Service struct {
	catalogs Catalogs
	cache    Cache
}

// New creates a compile service. cache may be nil.
func New(catalogs Catalogs, cache Cache) *Service {
	return &Service{catalogs: catalogs, cache: cache}
}

// Engines lists the active engines.
func (s *Service) Engines() []EngineInfo {
	engines := s.catalogs.Engines()
	out := make([]EngineInfo, 0, len(engines))
	for _, e := range engines {
		out = append(out, info(e))
	}
	return out
}

// Engine describes one engine.
func (s *Service) Engine(name string) (EngineInfo, error) {
	e, _, err := s.catalogs.Engine(name)
	if err != nil {
		return EngineInfo{}, err
	}
	return info(e), nil
}

func info(e *catalog.Engine) EngineInfo {
	return EngineInfo{Name: e.Name, Kind: e.Kind, Attributes: e.Attributes}
}

// Compile returns the serialized query of req.Engine for req.Params.
// Identical requests against the same catalog content are served from the
// cache.
func (s *Service) Compile(ctx context.Context, req Request) (Result, error) {
	log := logger.FromContext(ctx).With(zap.String("engine", req.Engine))

	c, rev := s.catalogs.Snapshot()
	e, err := c.Engine(req.Engine)
	if err != nil {
		return Result{}, err
	}
	base, err := dsl.RawJSON(req.Base)
	if err != nil {
		return Result{}, fmt.Errorf("%w: base: %w", ErrInvalidRequest, err)
	}

	start := time.Now()
	defer func() {
		metrics.CompileDuration.WithLabelValues(e.Name).Observe(time.Since(start).Seconds())
	}()
	res := Result{Engine: e.Name, Kind: e.Kind, Revision: rev}

	key, err := cacheKey(e.Name, c.Digest(), req.Params, base)
	if err != nil {
		metrics.CompileTotal.WithLabelValues(e.Name, "invalid").Inc()
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if s.cache != nil {
		if data, ok := s.cache.Get(ctx, key); ok {
			metrics.CompileTotal.WithLabelValues(e.Name, "ok").Inc()
			res.Query, res.Cached = data, true
			return res, nil
		}
	}

	q, err := e.Compile(req.Params, base)
	if err != nil {
		status := compileStatus(err)
		metrics.CompileTotal.WithLabelValues(e.Name, status).Inc()
		if status == "error" {
			log.Error("compile failed", zap.Error(err))
		} else {
			log.Debug("compile rejected", zap.Error(err))
		}
		return Result{}, err
	}
	data, err := dsl.Marshal(q)
	if err != nil {
		metrics.CompileTotal.WithLabelValues(e.Name, "error").Inc()
		log.Error("serialize compiled query", zap.Error(err))
		return Result{}, fmt.Errorf("serialize %s: %w", e.Name, err)
	}

	if s.cache != nil {
		s.cache.Put(ctx, key, data)
	}
	metrics.CompileTotal.WithLabelValues(e.Name, "ok").Inc()
	res.Query = data
	return res, nil
}

// compileStatus separates caller mistakes from catalog defects.
func compileStatus(err error) string {
	switch {
	case errors.Is(err, directive.ErrValidation),
		errors.Is(err, directive.ErrBinding),
		errors.Is(err, catalog.ErrBaseQuery):
		return "invalid"
	default:
		return "error"
	}
}

// cacheKey hashes everything a compilation depends on. The catalog digest
// separates edits of an engine; replicas running the same catalog share keys.
func cacheKey(engine, digest string, params map[string]any, base dsl.Query) (string, error) {
	p, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("params: %w", err)
	}
	b, err := dsl.Marshal(base)
	if err != nil {
		return "", fmt.Errorf("base: %w", err)
	}
	h := sha256.New()
	for _, part := range [][]byte{[]byte(engine), []byte(digest), p, b} {
		h.Write(part)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
