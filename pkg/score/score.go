// Package score compiles score-function directives into function_score
// entries, each optionally gated by a match directive filter.
package score

import (
	"fmt"
	"maps"

	"github.com/kailas-cloud/querydsl/pkg/directive"
	"github.com/kailas-cloud/querydsl/pkg/dsl"
	"github.com/kailas-cloud/querydsl/pkg/value"
)

// NullFilterAction decides what happens when a declared filter compiles
// to nothing.
type NullFilterAction string

// Null filter actions.
const (
	RaiseExc        NullFilterAction = "raise_exc"
	Allow           NullFilterAction = "allow"
	DisableFunction NullFilterAction = "disable_function"
)

// ParseNullFilterAction parses a textual null filter action. Empty means RaiseExc.
func ParseNullFilterAction(s string) (NullFilterAction, error) {
	switch a := NullFilterAction(s); a {
	case RaiseExc, Allow, DisableFunction:
		return a, nil
	case "":
		return RaiseExc, nil
	}
	return "", fmt.Errorf("unknown null filter action %q", s)
}

type shape interface {
	kind() string
	function(x *execution, filter dsl.Query, weight *float64) (dsl.ScoreFunction, error)
}

// Directive produces one score function. Like match directives it is
// immutable: With* methods and Bind return copies.
type Directive struct {
	shape      shape
	filter     *directive.MatchDirective
	weight     *float64
	nullAction NullFilterAction
	nullable   bool
	config     directive.Config

	params    map[string]any
	hasParams bool

	filterDSL      dsl.Query
	filterResolved bool

	// Custom directives only. Scoped to one working copy.
	delegate     *Directive
	delegateDone bool
}

// Option configures a Directive at declaration.
type Option func(*Directive)

// WithFilter gates the function with a match directive.
func WithFilter(f *directive.MatchDirective) Option {
	return func(d *Directive) { d.filter = f }
}

// WithWeight sets the function weight.
func WithWeight(w float64) Option {
	return func(d *Directive) { d.weight = &w }
}

// OnNullFilter sets the action for a filter compiling to nothing.
func OnNullFilter(a NullFilterAction) Option {
	return func(d *Directive) { d.nullAction = a }
}

// Nullable makes missing mandatory script params omit the function.
func Nullable() Option {
	return func(d *Directive) { d.nullable = true }
}

func newDirective(s shape, defaultAction NullFilterAction, opts []Option) *Directive {
	d := &Directive{shape: s, nullAction: defaultAction}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Kind names the function kind, e.g. "ScriptScore".
func (d *Directive) Kind() string { return d.shape.kind() }

// Weight returns the declared weight, or nil.
func (d *Directive) Weight() *float64 { return d.weight }

// NullFilterAction returns the declared null filter action.
func (d *Directive) NullFilterAction() NullFilterAction { return d.nullAction }

func (d *Directive) clone() *Directive {
	c := *d
	return &c
}

// WithParams returns a copy bound to runtime params. Resolved filters and
// custom delegates of the receiver are discarded.
func (d *Directive) WithParams(params map[string]any) *Directive {
	c := d.clone()
	if params == nil {
		params = map[string]any{}
	}
	c.params, c.hasParams = params, true
	c.filterDSL, c.filterResolved = nil, false
	c.delegate, c.delegateDone = nil, false
	return c
}

// WithConfig returns a copy with the set fields of cfg applied. Only the
// resolver affects score functions.
func (d *Directive) WithConfig(cfg directive.Config) *Directive {
	c := d.clone()
	c.config = c.config.Merge(cfg)
	return c
}

// WithFilterDSL returns a copy carrying the compiled filter. A nil q marks
// the filter as resolved to nothing.
func (d *Directive) WithFilterDSL(q dsl.Query) *Directive {
	c := d.clone()
	c.filterDSL, c.filterResolved = q, true
	return c
}

// FilterDirective returns the declared filter. For custom directives it is
// the filter of the delegated directive.
func (d *Directive) FilterDirective() *directive.MatchDirective {
	if _, ok := d.shape.(customShape); ok {
		if delegate := d.currentDelegate(); delegate != nil {
			return delegate.filter
		}
		return nil
	}
	return d.filter
}

// FilterDSL returns the compiled filter. Reading it before the filter has
// been compiled is a binding error.
func (d *Directive) FilterDSL() (dsl.Query, error) {
	if d.FilterDirective() == nil {
		return nil, nil
	}
	if !d.filterResolved {
		return nil, directive.NewBindingError(d.Kind(), "filter: match directive must be resolved externally and set with WithFilterDSL")
	}
	return d.filterDSL, nil
}

func (d *Directive) runtimeParams() map[string]any {
	if !d.hasParams || d.params == nil {
		return map[string]any{}
	}
	return d.params
}

// Generate returns the score function, or nil when the function is omitted.
func (d *Directive) Generate() (dsl.ScoreFunction, error) {
	s, weight, nullable := d.shape, d.weight, d.nullable
	if _, ok := d.shape.(customShape); ok {
		delegate := d.currentDelegate()
		if delegate == nil {
			return nil, nil
		}
		if _, nested := delegate.shape.(customShape); nested {
			return nil, directive.NewConfigurationError(d.Kind(), "a custom score directive cannot delegate to another custom score directive")
		}
		s, weight, nullable = delegate.shape, delegate.weight, delegate.nullable
	}

	filter, err := d.FilterDSL()
	if err != nil {
		return nil, err
	}
	if filter == nil && d.FilterDirective() != nil {
		switch d.nullAction {
		case DisableFunction:
			return nil, nil
		case Allow:
		default:
			return nil, directive.NewValidationError(d.Kind(), "filter resolved to nothing")
		}
	}

	x := &execution{
		label:    d.Kind(),
		resolver: directive.DefaultConfig().Merge(d.config).Resolver(d.runtimeParams()),
		nullable: nullable,
	}
	return s.function(x, filter, weight)
}

type execution struct {
	label    string
	resolver value.Resolver
	nullable bool
}

func (x *execution) resolve(raw any) any {
	return x.resolver.Resolve(raw)
}

func (x *execution) resolveMap(m map[string]any) map[string]any {
	if len(m) == 0 {
		return map[string]any{}
	}
	out, _ := x.resolver.Resolve(maps.Clone(m)).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return out
}
