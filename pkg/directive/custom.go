package directive

import (
	"fmt"
	"reflect"

	"github.com/kailas-cloud/querydsl/pkg/dsl"
)

// CustomMatcher builds the bool directive tree of a custom directive.
type CustomMatcher interface {
	// AllowedEngine names the only engine the directive may compile under.
	AllowedEngine() string
	// Directive returns the tree for params, or nil to produce no clause.
	Directive(params map[string]any) *BoolDirective
}

// Namer computes the _name of the produced bool query from the params.
type Namer interface {
	DirectiveName(params map[string]any) string
}

// StaticNamer supplies a fixed fallback _name.
type StaticNamer interface {
	StaticName() string
}

type customShape struct {
	impl CustomMatcher
}

func (s customShape) kind() string {
	t := reflect.TypeOf(s.impl)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "CustomMatch"
	}
	return t.Name()
}

func (customShape) supports(m Mode) bool { return includeOrExclude(m) }

func (s customShape) checkEngine(engine string) error {
	allowed := s.impl.AllowedEngine()
	if engine != allowed {
		return newError(ErrEngineMismatch, s.kind(),
			"can only be used in instance of DirectiveEngine: %s (compiled under %q)", allowed, engine)
	}
	return nil
}

func (s customShape) name(d *MatchDirective, params map[string]any) string {
	if n, ok := s.impl.(Namer); ok {
		return n.DirectiveName(params)
	}
	if d.name != "" {
		return d.name
	}
	if n, ok := s.impl.(StaticNamer); ok {
		return n.StaticName()
	}
	return ""
}

func (s customShape) generate(x *execution) (dsl.Query, error) {
	params, err := x.params()
	if err != nil {
		return nil, err
	}
	tree := s.impl.Directive(params)
	if tree == nil {
		return nil, nil
	}
	if name := s.name(x.d, params); name != "" {
		tree = tree.Named(name)
	}
	q, err := tree.ToDSL(Scope{
		Mapper: x.d.mapper,
		Params: params,
		Config: Config{Resolver: x.cfg.Resolver, AndOp: x.cfg.AndOp},
		Engine: x.d.engine,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.kind(), err)
	}
	return q, nil
}

// NewCustom wraps impl into a directive. Only WithMode and WithName apply.
func NewCustom(impl CustomMatcher, opts ...MatchOption) (*MatchDirective, error) {
	if impl == nil {
		return nil, newError(ErrConfiguration, "CustomMatch", "matcher is nil")
	}
	s := customShape{impl: impl}
	if impl.AllowedEngine() == "" {
		return nil, newError(ErrConfiguration, s.kind(), "allowed engine must be declared")
	}
	return newMatch(s, opts), nil
}

// MustCustom is NewCustom that panics on error.
func MustCustom(impl CustomMatcher, opts ...MatchOption) *MatchDirective {
	d, err := NewCustom(impl, opts...)
	if err != nil {
		panic(err)
	}
	return d
}
