// Package engine compiles registered directives into a single query.
//
// An engine is declared once with an ordered attribute list and compiled
// many times with different runtime params. Engines are safe for
// concurrent use: every compilation works on bound copies of the
// registered prototypes.
package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/querydsl/pkg/directive"
	"github.com/kailas-cloud/querydsl/pkg/dsl"
)

// ErrInvalidDefinition is returned when an engine definition is malformed.
var ErrInvalidDefinition = errors.New("engine: invalid definition")

// Option configures an engine.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for compile traces. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if l != nil {
			o.logger = l
		}
	})
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt.apply(&o)
	}
	return o
}

// Attribute registers a match directive under a value-mapper attribute.
type Attribute struct {
	Name      string
	Directive *directive.MatchDirective
}

// Definition declares a DirectiveEngine.
type Definition struct {
	// Name identifies the engine; custom directives check it.
	Name   string
	Mapper directive.ValueMapper
	// Config is applied to every directive on top of its own.
	Config     directive.Config
	Attributes []Attribute
}

// DirectiveEngine compiles its attributes into one bool query.
type DirectiveEngine struct {
	def    Definition
	logger *zap.Logger
}

// NewDirectiveEngine validates def and returns an engine.
func NewDirectiveEngine(def Definition, opts ...Option) (*DirectiveEngine, error) {
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
	def.Attributes = append([]Attribute(nil), def.Attributes...)
	o := buildOptions(opts)
	return &DirectiveEngine{def: def, logger: o.logger.With(zap.String("engine", def.Name))}, nil
}

// Name returns the engine name.
func (e *DirectiveEngine) Name() string { return e.def.Name }

// Attributes returns the registered attribute names in order.
func (e *DirectiveEngine) Attributes() []string {
	names := make([]string, len(e.def.Attributes))
	for i, a := range e.def.Attributes {
		names[i] = a.Name
	}
	return names
}

// Compile binds every attribute to params and returns the combined bool
// query. An engine producing no clauses returns an empty bool query.
func (e *DirectiveEngine) Compile(params map[string]any) (*dsl.BoolQuery, error) {
	if params == nil {
		params = map[string]any{}
	}
	b := dsl.NewBoolBuilder()
	for _, a := range e.def.Attributes {
		w, err := directive.Bind(a.Directive, directive.Binding{
			Attr:   a.Name,
			Mapper: e.def.Mapper,
			Params: params,
			Engine: e.def.Name,
			Config: e.def.Config,
		})
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", e.def.Name, a.Name, err)
		}
		if err := w.Execute(b); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", e.def.Name, a.Name, err)
		}
	}
	e.logger.Debug("compiled",
		zap.Int("attributes", len(e.def.Attributes)),
		zap.Int("clauses", b.Len()),
	)
	return b.Build(), nil
}

func validateNames(engine string, names []string) error {
	if engine == "" {
		return fmt.Errorf("%w: engine name is empty", ErrInvalidDefinition)
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("%w: %s: attribute name is empty", ErrInvalidDefinition, engine)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("%w: %s: duplicate attribute %q", ErrInvalidDefinition, engine, n)
		}
		seen[n] = struct{}{}
	}
	return nil
}
