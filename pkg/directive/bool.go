package directive

import (
	"slices"

	"github.com/kailas-cloud/querydsl/pkg/dsl"
)

type boolOp int

const (
	andOp boolOp = iota
	orOp
)

func (o boolOp) String() string {
	if o == orOp {
		return "OrDirective"
	}
	return "AndDirective"
}

// BoolItem is an entry of a BoolDirective: a nested *BoolDirective or a
// NamedDirective.
type BoolItem interface {
	addTo(b *BoolDirective)
}

// NamedDirective binds a match directive to a value-mapper attribute.
type NamedDirective struct {
	Attr      string
	Directive *MatchDirective
}

// Named returns a BoolItem compiling d with the binding of attr.
func Named(attr string, d *MatchDirective) NamedDirective {
	return NamedDirective{Attr: attr, Directive: d}
}

func (n NamedDirective) addTo(b *BoolDirective) { b.named = append(b.named, n) }

// BoolDirective combines nested bool directives and named match directives
// under AND or OR. Nested bool directives compile first, in order, then
// named directives in declaration order.
type BoolDirective struct {
	op       boolOp
	children []*BoolDirective
	named    []NamedDirective
	name     string
}

func (b *BoolDirective) addTo(p *BoolDirective) { p.children = append(p.children, b) }

// And returns a directive whose clauses all have to match.
func And(items ...BoolItem) *BoolDirective {
	return (&BoolDirective{op: andOp}).add(items)
}

// Or returns a directive of which at least one clause has to match.
func Or(items ...BoolItem) *BoolDirective {
	return (&BoolDirective{op: orOp}).add(items)
}

func (b *BoolDirective) clone() *BoolDirective {
	c := *b
	c.children = slices.Clone(b.children)
	c.named = slices.Clone(b.named)
	return &c
}

func (b *BoolDirective) add(items []BoolItem) *BoolDirective {
	for _, item := range items {
		if item != nil {
			item.addTo(b)
		}
	}
	return b
}

// Add returns a copy with items appended.
func (b *BoolDirective) Add(items ...BoolItem) *BoolDirective {
	return b.clone().add(items)
}

// Named returns a copy whose compiled bool query carries _name.
func (b *BoolDirective) Named(name string) *BoolDirective {
	c := b.clone()
	c.name = name
	return c
}

// Scope is the compilation context a bool directive tree inherits.
type Scope struct {
	Mapper ValueMapper
	Params map[string]any
	Config Config
	Engine string
}

// ToDSL compiles the tree. Custom directives are rejected among named
// entries; named entries producing nothing are skipped.
func (b *BoolDirective) ToDSL(scope Scope) (*dsl.BoolQuery, error) {
	cfg := DefaultConfig().Merge(scope.Config)

	queries := make([]dsl.Query, 0, len(b.children)+len(b.named))
	for _, child := range b.children {
		q, err := child.ToDSL(Scope{
			Mapper: scope.Mapper,
			Params: scope.Params,
			Config: cfg,
			Engine: scope.Engine,
		})
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}

	for _, n := range b.named {
		if n.Directive == nil {
			continue
		}
		if n.Directive.IsCustom() {
			return nil, newError(ErrComposition, b.op.String(), "%s cannot include a custom directive (attr %q)", b.op, n.Attr)
		}
		d, err := Bind(n.Directive, Binding{
			Attr:   n.Attr,
			Mapper: scope.Mapper,
			Params: scope.Params,
			Engine: b.op.String(),
			Config: Config{Resolver: cfg.Resolver, AndOp: cfg.AndOp},
		})
		if err != nil {
			return nil, err
		}
		q, err := d.ToDSL(true)
		if err != nil {
			return nil, err
		}
		if q != nil {
			queries = append(queries, q)
		}
	}

	bb := dsl.NewBoolBuilder()
	switch {
	case b.op == orOp:
		bb.Should(queries...)
	case cfg.AndOp == Must:
		bb.Must(queries...)
	default:
		bb.Filter(queries...)
	}
	return bb.Name(b.name).Build(), nil
}
