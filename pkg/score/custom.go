package score

import (
	"reflect"

	"github.com/kailas-cloud/querydsl/pkg/directive"
	"github.com/kailas-cloud/querydsl/pkg/dsl"
)

// ScoreContext is what a custom scorer sees when building its delegate.
type ScoreContext struct {
	Params           map[string]any
	Weight           *float64
	NullFilterAction NullFilterAction
	Nullable         bool
}

// CustomScorer builds the score directive of a custom score directive.
type CustomScorer interface {
	// AllowedEngine names the only engine the directive may compile under.
	AllowedEngine() string
	// ScoreDirective returns the delegate for ctx, or nil to omit the function.
	ScoreDirective(ctx ScoreContext) *Directive
}

type customShape struct {
	impl CustomScorer
}

func (s customShape) kind() string {
	t := reflect.TypeOf(s.impl)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "CustomScore"
	}
	return t.Name()
}

// function is never reached: Generate swaps in the delegate's shape.
func (s customShape) function(*execution, dsl.Query, *float64) (dsl.ScoreFunction, error) {
	return nil, directive.NewConfigurationError(s.kind(), "custom score directive generated without a delegate")
}

func (s customShape) checkEngine(engine string) error {
	if engine != s.impl.AllowedEngine() {
		return directive.NewEngineMismatchError(s.kind(),
			"FunctionScore Engine: %s is not allowed for %s", engine, s.kind())
	}
	return nil
}

// currentDelegate returns the memoized delegate of a bound copy, or builds
// one from the current params.
func (d *Directive) currentDelegate() *Directive {
	if d.delegateDone {
		return d.delegate
	}
	cs := d.shape.(customShape)
	return cs.impl.ScoreDirective(ScoreContext{
		Params:           d.runtimeParams(),
		Weight:           d.weight,
		NullFilterAction: d.nullAction,
		Nullable:         d.nullable,
	})
}

// NewCustom wraps impl into a score directive. The null filter action
// defaults to Allow; WithFilter has no effect since the delegate supplies
// the filter.
func NewCustom(impl CustomScorer, opts ...Option) (*Directive, error) {
	if impl == nil {
		return nil, directive.NewConfigurationError("CustomScore", "scorer is nil")
	}
	s := customShape{impl: impl}
	if impl.AllowedEngine() == "" {
		return nil, directive.NewConfigurationError(s.kind(), "allowed engine must be declared")
	}
	d := newDirective(s, Allow, opts)
	d.filter = nil
	return d, nil
}

// MustCustom is NewCustom that panics on error.
func MustCustom(impl CustomScorer, opts ...Option) *Directive {
	d, err := NewCustom(impl, opts...)
	if err != nil {
		panic(err)
	}
	return d
}
