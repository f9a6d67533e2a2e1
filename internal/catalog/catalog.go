// Package catalog loads engine declarations from YAML and serves them to
// the compile service.
package catalog

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/querydsl/pkg/dsl"
	"github.com/kailas-cloud/querydsl/pkg/engine"
)

// Sentinel errors.
var (
	ErrEngineNotFound = errors.New("engine not found")
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrBaseQuery: a base query was passed to a bool engine.
	ErrBaseQuery = errors.New("base query is only accepted by function_score engines")
)

// Engine is one compiled catalog entry.
type Engine struct {
	Name       string
	Kind       string
	Attributes []string

	match *engine.DirectiveEngine
	score *engine.FunctionScoreEngine
}

// Compile compiles the engine for params. base is the wrapped query of a
// function_score engine and must be nil for a bool engine.
func (e *Engine) Compile(params map[string]any, base dsl.Query) (dsl.Query, error) {
	if e.score != nil {
		q, err := e.score.Compile(params, base)
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	if base != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, ErrBaseQuery)
	}
	q, err := e.match.Compile(params)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Catalog is an immutable set of engines.
type Catalog struct {
	engines map[string]*Engine
	names   []string
	scripts []string
	digest  string
}

// Engine returns the named engine.
func (c *Catalog) Engine(name string) (*Engine, error) {
	e, ok := c.engines[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrEngineNotFound)
	}
	return e, nil
}

// Engines returns every engine sorted by name.
func (c *Catalog) Engines() []*Engine {
	out := make([]*Engine, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.engines[n])
	}
	return out
}

// Digest is the sha256 of the source document and of every script file it
// references.
func (c *Catalog) Digest() string { return c.digest }

// ScriptFiles lists the script files the catalog loaded, sorted.
func (c *Catalog) ScriptFiles() []string { return slices.Clone(c.scripts) }

// Load reads and builds the catalog at path. Script files are resolved
// relative to the catalog directory.
func Load(path string, logger *zap.Logger) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data, filepath.Dir(path), logger)
}

// Parse builds a catalog from a YAML document.
func Parse(data []byte, baseDir string, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var spec fileSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	c := &Catalog{engines: make(map[string]*Engine, len(spec.Engines))}
	scripts := make(map[string]string)
	for i, es := range spec.Engines {
		if es.Name == "" {
			return nil, fmt.Errorf("%w: engines[%d]: name is required", ErrInvalidCatalog, i)
		}
		if _, dup := c.engines[es.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate engine %q", ErrInvalidCatalog, es.Name)
		}
		e, err := buildEngine(es, baseDir, scripts, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: engine %s: %v", ErrInvalidCatalog, es.Name, err)
		}
		c.engines[es.Name] = e
		c.names = append(c.names, es.Name)
	}
	slices.Sort(c.names)

	h := sha256.New()
	h.Write(data)
	for path := range scripts {
		c.scripts = append(c.scripts, path)
	}
	slices.Sort(c.scripts)
	// Paths are left out so the digest does not depend on where the
	// catalog lives.
	for _, path := range c.scripts {
		h.Write([]byte{0})
		h.Write([]byte(scripts[path]))
	}
	c.digest = hex.EncodeToString(h.Sum(nil))
	return c, nil
}

func buildEngine(es engineSpec, baseDir string, scripts map[string]string, logger *zap.Logger) (*Engine, error) {
	b := builder{engine: es.Name, baseDir: baseDir, scripts: scripts}
	cfg, err := b.config(es.Config)
	if err != nil {
		return nil, err
	}
	mapper := b.mapper(es.Mapper)
	opt := engine.WithLogger(logger)

	switch es.Kind {
	case KindBool, "":
		if len(es.Functions) > 0 {
			return nil, fmt.Errorf("functions are only allowed in function_score engines")
		}
		attrs := make([]engine.Attribute, 0, len(es.Directives))
		for i, ds := range es.Directives {
			d, err := b.match(ds)
			if err != nil {
				return nil, fmt.Errorf("directives[%d] %s: %w", i, ds.Attr, err)
			}
			attrs = append(attrs, engine.Attribute{Name: ds.Attr, Directive: d})
		}
		de, err := engine.NewDirectiveEngine(engine.Definition{Name: es.Name, Mapper: mapper, Config: cfg, Attributes: attrs}, opt)
		if err != nil {
			return nil, err
		}
		return &Engine{Name: es.Name, Kind: KindBool, Attributes: de.Attributes(), match: de}, nil

	case KindFunctionScore:
		if len(es.Directives) > 0 {
			return nil, fmt.Errorf("directives are only allowed in bool engines")
		}
		attrs := make([]engine.ScoreAttribute, 0, len(es.Functions))
		for i, fs := range es.Functions {
			d, err := b.function(fs)
			if err != nil {
				return nil, fmt.Errorf("functions[%d] %s: %w", i, fs.Attr, err)
			}
			attrs = append(attrs, engine.ScoreAttribute{Name: fs.Attr, Directive: d})
		}
		fe, err := engine.NewFunctionScoreEngine(engine.ScoreDefinition{
			Name:       es.Name,
			Mapper:     mapper,
			Config:     cfg,
			Attributes: attrs,
			ScoreMode:  es.ScoreMode,
			BoostMode:  es.BoostMode,
			MaxBoost:   es.MaxBoost,
			MinScore:   es.MinScore,
		}, opt)
		if err != nil {
			return nil, err
		}
		return &Engine{Name: es.Name, Kind: KindFunctionScore, Attributes: fe.Attributes(), score: fe}, nil
	}
	return nil, fmt.Errorf("unknown kind %q", es.Kind)
}
