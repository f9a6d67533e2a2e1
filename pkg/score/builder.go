package score

import (
	"fmt"

	"github.com/kailas-cloud/querydsl/pkg/directive"
)

// Binding is what a function score engine applies to a score directive
// prototype before generating its function.
type Binding struct {
	// Attr is the value-mapper attribute, also used for the filter.
	Attr   string
	Mapper directive.ValueMapper
	Params map[string]any
	// Engine names the compiling engine, checked by custom directives.
	Engine string
	// Config applies to the filter directive and to value resolution.
	Config directive.Config
}

// Bind returns a working copy of d with params bound, its custom delegate
// resolved and its filter compiled.
func Bind(d *Directive, b Binding) (*Directive, error) {
	w := d.WithParams(b.Params).WithConfig(b.Config)

	if cs, ok := w.shape.(customShape); ok {
		if err := cs.checkEngine(b.Engine); err != nil {
			return nil, err
		}
		w.delegate, w.delegateDone = w.currentDelegate(), true
	}

	filter := w.FilterDirective()
	if filter == nil {
		return w, nil
	}
	bound, err := directive.Bind(filter, directive.Binding{
		Attr:   b.Attr,
		Mapper: b.Mapper,
		Params: w.runtimeParams(),
		Engine: b.Engine,
		Config: b.Config,
	})
	if err != nil {
		return nil, fmt.Errorf("%s filter: %w", w.Kind(), err)
	}
	q, err := bound.ToDSL(true)
	if err != nil {
		return nil, fmt.Errorf("%s filter: %w", w.Kind(), err)
	}
	return w.WithFilterDSL(q), nil
}
