package directive

import (
	"slices"

	"github.com/kailas-cloud/querydsl/pkg/dsl"
)

func includeOrExclude(m Mode) bool {
	return m == Include || m == Exclude
}

// rangeShape bounds one field with the gt/gte/lt/lte named values.
type rangeShape struct{}

func (rangeShape) kind() string          { return "RangeMatch" }
func (rangeShape) supports(m Mode) bool { return includeOrExclude(m) }

// Range compiles the named values gt, gte, lt and lte into a range clause
// on exactly one field.
func Range(opts ...MatchOption) *MatchDirective {
	return newMatch(rangeShape{}, opts)
}

func (rangeShape) generate(x *execution) (dsl.Query, error) {
	named, err := x.namedValues()
	if err != nil {
		return nil, err
	}
	if named["gt"] == nil && named["gte"] == nil && named["lt"] == nil && named["lte"] == nil {
		if x.d.nullable {
			return nil, nil
		}
		return nil, x.validationError("no compare value provided")
	}
	plain, nested, err := x.fields()
	if err != nil {
		return nil, err
	}
	if n := len(plain) + len(nested); n != 1 {
		return nil, x.validationError("exactly 1 field needed, got %d", n)
	}

	r := &dsl.RangeQuery{
		GT:   named["gt"],
		GTE:  named["gte"],
		LT:   named["lt"],
		LTE:  named["lte"],
		Name: x.d.name,
	}
	if len(plain) == 1 {
		r.Field = plain[0]
		return r, nil
	}
	r.Field = nested[0].Name
	return &dsl.NestedQuery{Path: nested[0].Path, Query: r, Name: x.d.name}, nil
}

// scriptShape emits a painless script clause with the named values as params.
type scriptShape struct {
	source    string
	mandatory []string
}

func (scriptShape) kind() string          { return "ScriptMatch" }
func (scriptShape) supports(m Mode) bool { return includeOrExclude(m) }

// MandatoryParams lists script params that must resolve to non-nil values.
// It only affects script directives.
func MandatoryParams(keys ...string) MatchOption {
	return func(d *MatchDirective) {
		if s, ok := d.shape.(scriptShape); ok {
			s.mandatory = slices.Clone(keys)
			d.shape = s
		}
	}
}

// Script compiles source into a script clause.
func Script(source string, opts ...MatchOption) *MatchDirective {
	return newMatch(scriptShape{source: source}, opts)
}

func (s scriptShape) generate(x *execution) (dsl.Query, error) {
	var params map[string]any
	if x.d.hasValues {
		var err error
		if params, err = x.namedValues(); err != nil {
			return nil, err
		}
	}

	var missing []string
	for _, key := range s.mandatory {
		if params[key] == nil {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		if x.d.nullable {
			return nil, nil
		}
		return nil, x.validationError("missing mandatory script parameters %v, they must be present and non-null", missing)
	}

	if len(params) == 0 {
		params = nil
	}
	return &dsl.ScriptQuery{
		Script: dsl.Script{Source: s.source, Params: params, Lang: dsl.DefaultScriptLang},
		Name:   x.d.name,
	}, nil
}

// existsShape requires the bound fields to exist.
type existsShape struct {
	rule Rule
}

func (existsShape) kind() string          { return "FieldExists" }
func (existsShape) supports(m Mode) bool { return includeOrExclude(m) }

// Exists matches documents where the bound fields exist. With several
// fields, ANY needs one of them and ALL needs every one.
func Exists(rule Rule, opts ...MatchOption) *MatchDirective {
	return newMatch(existsShape{rule: rule}, opts)
}

func (s existsShape) generate(x *execution) (dsl.Query, error) {
	if !x.d.hasFields && x.d.nullable {
		return nil, nil
	}
	plain, nested, err := x.fields()
	if err != nil {
		return nil, err
	}
	if len(plain) == 0 && len(nested) == 0 {
		if x.d.nullable {
			return nil, nil
		}
		return nil, x.validationError("no field provided")
	}

	queries := make([]dsl.Query, 0, len(plain)+len(nested))
	for _, f := range plain {
		queries = append(queries, &dsl.ExistsQuery{Field: f, Name: x.d.name})
	}
	for _, f := range nested {
		queries = append(queries, &dsl.NestedQuery{
			Path:  f.Path,
			Query: &dsl.ExistsQuery{Field: f.Name, Name: x.d.name},
		})
	}
	if len(queries) == 1 {
		return queries[0], nil
	}
	b := dsl.NewBoolBuilder()
	if s.rule == All {
		b.Filter(queries...)
	} else {
		b.Should(queries...)
	}
	return b.Build(), nil
}
