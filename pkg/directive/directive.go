// Package directive compiles declarative match directives into boolean
// query clauses.
//
// A *MatchDirective is an immutable value: every With* method and Copy
// return a new directive and never modify the receiver, so directives
// declared once can be shared by concurrent compilations.
package directive

import (
	"maps"
	"slices"

	"github.com/kailas-cloud/querydsl/pkg/dsl"
	"github.com/kailas-cloud/querydsl/pkg/value"
)

// shape is the clause-generation strategy of one directive kind.
type shape interface {
	kind() string
	supports(m Mode) bool
	generate(x *execution) (dsl.Query, error)
}

// MatchDirective turns bound fields, values and params into a clause placed
// in one bucket of a boolean query.
type MatchDirective struct {
	shape     shape
	mode      Mode
	nullable  bool
	name      string
	config    Config
	queryOpts QueryOptions

	fields    []Field
	hasFields bool
	values    []any
	named     map[string]any
	hasValues bool
	params    map[string]any
	hasParams bool

	// Set by Bind on custom directives only.
	mapper ValueMapper
	engine string
}

// MatchOption configures a MatchDirective at declaration.
type MatchOption func(*MatchDirective)

// WithMode sets the match mode. The default is Include.
func WithMode(m Mode) MatchOption {
	return func(d *MatchDirective) { d.mode = m }
}

// Nullable makes missing values produce no clause instead of an error.
func Nullable() MatchOption {
	return func(d *MatchDirective) { d.nullable = true }
}

// WithName sets the _name tag of produced clauses.
func WithName(name string) MatchOption {
	return func(d *MatchDirective) { d.name = name }
}

func newMatch(s shape, opts []MatchOption) *MatchDirective {
	d := &MatchDirective{shape: s, mode: Include}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CopyOptions selects which bindings survive Copy.
type CopyOptions struct {
	Fields bool
	Values bool
	Params bool
}

// Kind names the directive kind, e.g. "ConstMatch".
func (d *MatchDirective) Kind() string { return d.shape.kind() }

// Mode returns the match mode.
func (d *MatchDirective) Mode() Mode { return d.mode }

// Name returns the declared _name tag.
func (d *MatchDirective) Name() string { return d.name }

// IsNullable reports whether missing values are tolerated.
func (d *MatchDirective) IsNullable() bool { return d.nullable }

// IsCustom reports whether the directive delegates to a CustomMatcher.
func (d *MatchDirective) IsCustom() bool {
	_, ok := d.shape.(customShape)
	return ok
}

func (d *MatchDirective) label() string {
	if d.name == "" {
		return d.shape.kind()
	}
	return d.shape.kind() + "(" + d.name + ")"
}

func (d *MatchDirective) clone() *MatchDirective {
	c := *d
	return &c
}

// WithFields returns a copy bound to fields.
func (d *MatchDirective) WithFields(fields ...Field) *MatchDirective {
	c := d.clone()
	c.fields = slices.Clone(fields)
	c.hasFields = true
	return c
}

// WithValues returns a copy bound to positional raw values.
func (d *MatchDirective) WithValues(values ...any) *MatchDirective {
	c := d.clone()
	c.values = slices.Clone(values)
	c.hasValues = true
	return c
}

// WithNamedValues returns a copy bound to named raw values.
func (d *MatchDirective) WithNamedValues(named map[string]any) *MatchDirective {
	c := d.clone()
	c.named = maps.Clone(named)
	c.hasValues = true
	return c
}

// WithParams returns a copy bound to runtime params. A nil map binds an
// empty parameter set.
func (d *MatchDirective) WithParams(params map[string]any) *MatchDirective {
	c := d.clone()
	if params == nil {
		params = map[string]any{}
	}
	c.params = params
	c.hasParams = true
	return c
}

// WithConfig returns a copy with the set fields of cfg applied.
func (d *MatchDirective) WithConfig(cfg Config) *MatchDirective {
	c := d.clone()
	c.config = c.config.Merge(cfg)
	return c
}

// WithQueryOptions returns a copy with the set options of o applied.
// Only text and query-string directives emit them.
func (d *MatchDirective) WithQueryOptions(o QueryOptions) *MatchDirective {
	c := d.clone()
	c.queryOpts = c.queryOpts.Merge(o)
	return c
}

// Copy returns a copy keeping the declaration and the bindings selected by o.
func (d *MatchDirective) Copy(o CopyOptions) *MatchDirective {
	c := d.clone()
	if !o.Fields {
		c.fields, c.hasFields = nil, false
	}
	if !o.Values {
		c.values, c.named, c.hasValues = nil, nil, false
	}
	if !o.Params {
		c.params, c.hasParams = nil, false
	}
	c.mapper, c.engine = nil, ""
	return c
}

func (d *MatchDirective) effectiveConfig() Config {
	return DefaultConfig().Merge(d.config)
}

// Execute generates the directive's clause and adds it to the bucket chosen
// by the mode and config. A directive producing nothing adds nothing.
func (d *MatchDirective) Execute(b *dsl.BoolBuilder) error {
	cfg := d.effectiveConfig()
	q, err := d.generate(cfg)
	if err != nil || q == nil {
		return err
	}
	switch {
	case d.mode == Exclude:
		b.MustNot(q)
	case cfg.BaseOp == BaseOr:
		b.Should(q)
	case cfg.AndOp == Must:
		b.Must(q)
	default:
		b.Filter(q)
	}
	return nil
}

// ToDSL executes the directive into a fresh boolean query. With nullable
// set, an empty result is returned as nil.
func (d *MatchDirective) ToDSL(nullable bool) (dsl.Query, error) {
	b := dsl.NewBoolBuilder()
	if err := d.Execute(b); err != nil {
		return nil, err
	}
	if nullable && b.IsEmpty() {
		return nil, nil
	}
	return b.Build(), nil
}

func (d *MatchDirective) generate(cfg Config) (dsl.Query, error) {
	if !d.shape.supports(d.mode) {
		return nil, newError(ErrValidation, d.label(), "match mode %q is not supported", d.mode)
	}
	return d.shape.generate(&execution{d: d, cfg: cfg})
}

// execution holds the state of one Execute call. Resolved values are
// memoized here, never on the directive.
type execution struct {
	d        *MatchDirective
	cfg      Config
	resolver value.Resolver

	values     []any
	valuesDone bool
	named      map[string]any
	namedDone  bool
}

func (x *execution) bindingError(what string) error {
	return newError(ErrBinding, x.d.label(), "%s not set", what)
}

func (x *execution) validationError(format string, args ...any) error {
	return newError(ErrValidation, x.d.label(), format, args...)
}

func (x *execution) params() (map[string]any, error) {
	if !x.d.hasParams {
		return nil, x.bindingError("match params are")
	}
	return x.d.params, nil
}

func (x *execution) fields() ([]string, []NestedField, error) {
	if !x.d.hasFields {
		return nil, nil, x.bindingError("fields are")
	}
	plain, nested := splitFields(x.d.fields)
	return plain, nested, nil
}

func (x *execution) resolve(raw any) (any, error) {
	if x.resolver == nil {
		params, err := x.params()
		if err != nil {
			return nil, err
		}
		x.resolver = x.cfg.Resolver(params)
	}
	return x.resolver.Resolve(raw), nil
}

// positional returns the resolved positional values. Unbound values are an
// error unless the directive is nullable.
func (x *execution) positional() ([]any, error) {
	if x.valuesDone {
		return x.values, nil
	}
	if !x.d.hasValues {
		if !x.d.nullable {
			return nil, x.bindingError("values are")
		}
		x.valuesDone = true
		return nil, nil
	}
	raw := x.d.values
	if raw == nil {
		raw = []any{}
	}
	resolved, err := x.resolve(raw)
	if err != nil {
		return nil, err
	}
	x.values = value.ToSlice(resolved)
	x.valuesDone = true
	return x.values, nil
}

// namedValues returns the resolved named values.
func (x *execution) namedValues() (map[string]any, error) {
	if x.namedDone {
		return x.named, nil
	}
	if !x.d.hasValues {
		if !x.d.nullable {
			return nil, x.bindingError("values are")
		}
		x.namedDone = true
		return map[string]any{}, nil
	}
	raw := x.d.named
	if raw == nil {
		raw = map[string]any{}
	}
	resolved, err := x.resolve(raw)
	if err != nil {
		return nil, err
	}
	m, _ := resolved.(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	x.named = m
	x.namedDone = true
	return m, nil
}
