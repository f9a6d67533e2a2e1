package directive

import (
	"github.com/kailas-cloud/querydsl/pkg/dsl"
	"github.com/kailas-cloud/querydsl/pkg/value"
)

type clauseStyle int

const (
	termStyle clauseStyle = iota
	textStyle
	queryStringStyle
)

func (s clauseStyle) kind() string {
	switch s {
	case textStyle:
		return "TextMatch"
	case queryStringStyle:
		return "QueryStringMatch"
	default:
		return "ConstMatch"
	}
}

// matchShape generates equality and free-text clauses over resolved values.
type matchShape struct {
	style clauseStyle
	rule  Rule
}

func (s matchShape) kind() string        { return s.style.kind() }
func (s matchShape) supports(_ Mode) bool { return true }

func (s matchShape) generate(x *execution) (dsl.Query, error) {
	values, err := x.positional()
	if err != nil {
		return nil, err
	}
	return buildMatch(x, s.style, s.rule, values)
}

// Const matches fields against exact values. ANY with several values on a
// single field compiles to one terms clause; ALL to one term per value.
func Const(rule Rule, opts ...MatchOption) *MatchDirective {
	return newMatch(matchShape{style: termStyle, rule: rule}, opts)
}

// Text matches analyzed fields with match and multi_match clauses.
func Text(rule Rule, opts ...MatchOption) *MatchDirective {
	return newMatch(matchShape{style: textStyle, rule: rule}, opts)
}

// QueryString matches fields with query_string clauses.
func QueryString(rule Rule, opts ...MatchOption) *MatchDirective {
	return newMatch(matchShape{style: queryStringStyle, rule: rule}, opts)
}

func buildMatch(x *execution, style clauseStyle, rule Rule, values []any) (dsl.Query, error) {
	if len(values) == 0 && !x.d.nullable {
		return nil, x.validationError("no match value set")
	}
	plain, nested, err := x.fields()
	if err != nil {
		return nil, err
	}
	if len(plain) == 0 && len(nested) == 0 {
		return nil, x.validationError("no match field set")
	}
	if len(values) == 0 {
		return nil, nil
	}

	name := x.d.name
	opts := x.d.queryOpts.Params()

	var queries []dsl.Query
	switch {
	case len(plain) == 1:
		queries = singleFieldQueries(style, rule, plain[0], values, opts, name)
	case len(plain) > 1:
		queries = multiFieldQueries(style, plain, values, opts, name)
	}
	for _, f := range nested {
		for _, v := range values {
			queries = append(queries, &dsl.NestedQuery{
				Path:  f.Path,
				Query: nestedLeaf(style, f.Name, v, opts, name),
			})
		}
	}

	var notExists dsl.Query
	if x.d.mode == IncludeIfExistAny {
		notExists = notExistsQuery(plain, nested)
	}
	if len(queries) == 1 && notExists == nil {
		return queries[0], nil
	}

	b := dsl.NewBoolBuilder()
	if rule == All {
		b.Filter(queries...)
	} else {
		b.Should(queries...)
	}
	matched := b.Build()
	if notExists == nil {
		return matched, nil
	}
	return dsl.NewBoolBuilder().Should(notExists, matched).Build(), nil
}

func singleFieldQueries(style clauseStyle, rule Rule, field string, values []any, opts map[string]any, name string) []dsl.Query {
	out := make([]dsl.Query, 0, len(values))
	switch style {
	case textStyle:
		for _, v := range values {
			out = append(out, &dsl.MatchQuery{Field: field, Query: v, Options: opts, Name: name})
		}
	case queryStringStyle:
		for _, v := range values {
			out = append(out, &dsl.QueryStringQuery{Query: v, Fields: []string{field}, Options: opts, Name: name})
		}
	default:
		if len(values) > 1 && rule != All {
			return []dsl.Query{&dsl.TermsQuery{Field: field, Values: values, Name: name}}
		}
		for _, v := range values {
			out = append(out, &dsl.TermQuery{Field: field, Value: v, Name: name})
		}
	}
	return out
}

func multiFieldQueries(style clauseStyle, fields []string, values []any, opts map[string]any, name string) []dsl.Query {
	out := make([]dsl.Query, 0, len(values))
	for _, v := range values {
		switch style {
		case textStyle:
			out = append(out, &dsl.MultiMatchQuery{Query: v, Fields: fields, Options: opts, Name: name})
		case queryStringStyle:
			out = append(out, &dsl.QueryStringQuery{Query: v, Fields: fields, Options: opts, Name: name})
		default:
			out = append(out, &dsl.MultiMatchQuery{Query: v, Fields: fields, Name: name})
		}
	}
	return out
}

// nestedLeaf builds the clause wrapped by a nested query. Nested match
// clauses carry no _name; the tag goes on term and query_string leaves.
func nestedLeaf(style clauseStyle, field string, v any, opts map[string]any, name string) dsl.Query {
	switch style {
	case textStyle:
		return &dsl.MatchQuery{Field: field, Query: v, Options: opts}
	case queryStringStyle:
		return &dsl.QueryStringQuery{Query: v, Fields: []string{field}, Options: opts, Name: name}
	default:
		return &dsl.TermQuery{Field: field, Value: v, Name: name}
	}
}

// notExistsQuery matches documents where none of the fields exist.
func notExistsQuery(plain []string, nested []NestedField) dsl.Query {
	b := dsl.NewBoolBuilder()
	for _, f := range plain {
		b.MustNot(&dsl.ExistsQuery{Field: f})
	}
	for _, f := range nested {
		b.MustNot(&dsl.NestedQuery{Path: f.Path, Query: &dsl.ExistsQuery{Field: f.Name}})
	}
	return b.Build()
}

// waterfallShape matches every value of an ordering on one side of a pivot.
type waterfallShape struct {
	rule  Rule
	order []any
	op    WaterfallOp
}

func (waterfallShape) kind() string          { return "WaterfallMatch" }
func (waterfallShape) supports(_ Mode) bool { return true }

// Waterfall derives its match values from order: the single bound value is
// the pivot and op picks the part of order before or after it.
func Waterfall(rule Rule, order []any, op WaterfallOp, opts ...MatchOption) *MatchDirective {
	return newMatch(waterfallShape{rule: rule, order: append([]any(nil), order...), op: op}, opts)
}

func (s waterfallShape) generate(x *execution) (dsl.Query, error) {
	if !x.valuesDone {
		if err := s.derive(x); err != nil {
			return nil, err
		}
	}
	plain, nested, err := x.fields()
	if err != nil {
		return nil, err
	}
	if n := len(plain) + len(nested); n > 1 {
		return nil, x.validationError("exactly 1 field needed, got %d", n)
	}
	return buildMatch(x, termStyle, s.rule, x.values)
}

func (s waterfallShape) derive(x *execution) error {
	if !x.d.hasValues {
		if !x.d.nullable {
			return x.bindingError("values are")
		}
		x.valuesDone = true
		return nil
	}
	if len(x.d.values) != 1 {
		return x.validationError("requires exactly 1 value, got %d", len(x.d.values))
	}
	pivot, err := x.resolve(x.d.values[0])
	if err != nil {
		return err
	}
	x.valuesDone = true
	x.values = []any{}
	if pivot == nil {
		return nil
	}
	idx := value.IndexOf(s.order, pivot)
	if idx < 0 {
		return x.validationError("value %v is not in the waterfall order", pivot)
	}
	start, end := 0, len(s.order)
	switch s.op {
	case GT:
		start = idx + 1
	case GTE:
		start = idx
	case LT:
		end = idx
	case LTE:
		end = idx + 1
	}
	x.values = append(x.values, s.order[start:end]...)
	return nil
}
