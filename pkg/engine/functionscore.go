package engine

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/querydsl/pkg/directive"
	"github.com/kailas-cloud/querydsl/pkg/dsl"
	"github.com/kailas-cloud/querydsl/pkg/score"
)

var (
	scoreModes = []string{"multiply", "sum", "avg", "first", "max", "min"}
	boostModes = []string{"multiply", "replace", "sum", "avg", "max", "min"}
)

// ScoreAttribute registers a score directive under a value-mapper attribute.
type ScoreAttribute struct {
	Name      string
	Directive *score.Directive
}

// ScoreDefinition declares a FunctionScoreEngine. Empty modes and nil
// bounds are left to the backend.
type ScoreDefinition struct {
	Name   string
	Mapper directive.ValueMapper
	// Config applies to filter directives and to value resolution.
	Config     directive.Config
	Attributes []ScoreAttribute

	ScoreMode string
	BoostMode string
	MaxBoost  *float64
	MinScore  *float64
}

// FunctionScoreEngine compiles its attributes into a function_score query
// around a caller-supplied base query.
type FunctionScoreEngine struct {
	def    ScoreDefinition
	logger *zap.Logger
}

// NewFunctionScoreEngine validates def and returns an engine.
func NewFunctionScoreEngine(def ScoreDefinition, opts ...Option) (*FunctionScoreEngine, error) {
	names := make([]string, len(def.Attributes))
	for i, a := range def.Attributes {
		names[i] = a.Name
		if a.Directive == nil {
			return nil, fmt.Errorf("%w: %s: attribute %q has no directive", ErrInvalidDefinition, def.Name, a.Name)
		}
	}
	if err := validateNames(def.Name, names); err != nil {
		return nil, err
	}
	if def.ScoreMode != "" && !slices.Contains(scoreModes, def.ScoreMode) {
		return nil, fmt.Errorf("%w: %s: unknown score_mode %q", ErrInvalidDefinition, def.Name, def.ScoreMode)
	}
	if def.BoostMode != "" && !slices.Contains(boostModes, def.BoostMode) {
		return nil, fmt.Errorf("%w: %s: unknown boost_mode %q", ErrInvalidDefinition, def.Name, def.BoostMode)
	}
	def.Attributes = append([]ScoreAttribute(nil), def.Attributes...)
	o := buildOptions(opts)
	return &FunctionScoreEngine{def: def, logger: o.logger.With(zap.String("engine", def.Name))}, nil
}

// Name returns the engine name.
func (e *FunctionScoreEngine) Name() string { return e.def.Name }

// Attributes returns the registered attribute names in order.
func (e *FunctionScoreEngine) Attributes() []string {
	names := make([]string, len(e.def.Attributes))
	for i, a := range e.def.Attributes {
		names[i] = a.Name
	}
	return names
}

// Compile generates every score function for params and wraps base. A nil
// base is valid and serializes as a null query.
func (e *FunctionScoreEngine) Compile(params map[string]any, base dsl.Query) (*dsl.FunctionScoreQuery, error) {
	if params == nil {
		params = map[string]any{}
	}
	var fns []dsl.ScoreFunction
	for _, a := range e.def.Attributes {
		w, err := score.Bind(a.Directive, score.Binding{
			Attr:   a.Name,
			Mapper: e.def.Mapper,
			Params: params,
			Engine: e.def.Name,
			Config: e.def.Config,
		})
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", e.def.Name, a.Name, err)
		}
		fn, err := w.Generate()
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", e.def.Name, a.Name, err)
		}
		if fn != nil {
			fns = append(fns, fn)
		}
	}
	e.logger.Debug("compiled",
		zap.Int("attributes", len(e.def.Attributes)),
		zap.Int("functions", len(fns)),
	)
	return &dsl.FunctionScoreQuery{
		Query:     base,
		Functions: fns,
		ScoreMode: e.def.ScoreMode,
		BoostMode: e.def.BoostMode,
		MaxBoost:  e.def.MaxBoost,
		MinScore:  e.def.MinScore,
	}, nil
}
