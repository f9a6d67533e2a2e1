package directive_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/querydsl/pkg/directive"
	"github.com/kailas-cloud/querydsl/pkg/dsl"
	"github.com/kailas-cloud/querydsl/pkg/dsl/dsltest"
)

type matchCase struct {
	name   string
	d      *directive.MatchDirective
	fields []directive.Field
	values []any
	named  map[string]any
	params map[string]any
	want   string // empty means no clause
}

func bind(c matchCase) *directive.MatchDirective {
	d := c.d.WithParams(c.params)
	if c.fields != nil {
		d = d.WithFields(c.fields...)
	}
	if c.values != nil {
		d = d.WithValues(c.values...)
	}
	if c.named != nil {
		d = d.WithNamedValues(c.named)
	}
	return d
}

func runMatchCases(t *testing.T, cases []matchCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := bind(tc).ToDSL(true)
			if err != nil {
				t.Fatalf("ToDSL: %v", err)
			}
			if tc.want == "" {
				if q != nil {
					out, _ := dsl.Marshal(q)
					t.Fatalf("expected no clause, got %s", out)
				}
				return
			}
			dsltest.AssertJSON(t, q, tc.want)
		})
	}
}

var twoValues = []any{"match_params.value1", "match_params.value2"}
var twoParams = map[string]any{"value1": "test1", "value2": "test2"}

func TestConstMatch(t *testing.T) {
	runMatchCases(t, []matchCase{
		{
			name:   "single field all",
			d:      directive.Const(directive.All, directive.WithName("test_const")),
			fields: directive.Fields("field1"),
			values: twoValues,
			params: twoParams,
			want: `{"bool":{"filter":[{"bool":{"filter":[
				{"term":{"field1":{"value":"test1","_name":"test_const"}}},
				{"term":{"field1":{"value":"test2","_name":"test_const"}}}]}}]}}`,
		},
		{
			name:   "multi field all",
			d:      directive.Const(directive.All, directive.WithName("test_const")),
			fields: directive.Fields("field1", "field2"),
			values: twoValues,
			params: twoParams,
			want: `{"bool":{"filter":[{"bool":{"filter":[
				{"multi_match":{"query":"test1","fields":["field1","field2"],"_name":"test_const"}},
				{"multi_match":{"query":"test2","fields":["field1","field2"],"_name":"test_const"}}]}}]}}`,
		},
		{
			name:   "single field any",
			d:      directive.Const(directive.Any, directive.WithName("test_const")),
			fields: directive.Fields("field1"),
			values: twoValues,
			params: twoParams,
			want:   `{"bool":{"filter":[{"terms":{"field1":["test1","test2"],"_name":"test_const"}}]}}`,
		},
		{
			name:   "single value",
			d:      directive.Const(directive.Any),
			fields: directive.Fields("field"),
			values: []any{"match_params.value1"},
			params: twoParams,
			want:   `{"bool":{"filter":[{"term":{"field":{"value":"test1"}}}]}}`,
		},
		{
			name:   "multi field any",
			d:      directive.Const(directive.Any, directive.WithName("test_const")),
			fields: directive.Fields("field1", "field2"),
			values: twoValues,
			params: twoParams,
			want: `{"bool":{"filter":[{"bool":{"should":[
				{"multi_match":{"query":"test1","fields":["field1","field2"],"_name":"test_const"}},
				{"multi_match":{"query":"test2","fields":["field1","field2"],"_name":"test_const"}}]}}]}}`,
		},
		{
			name:   "nested field any",
			d:      directive.Const(directive.Any, directive.WithName("test_const")),
			fields: []directive.Field{directive.Nested("nested_path.nested_field", "nested_path")},
			values: twoValues,
			params: twoParams,
			want: `{"bool":{"filter":[{"bool":{"should":[
				{"nested":{"path":"nested_path","query":{"term":{"nested_path.nested_field":{"value":"test1","_name":"test_const"}}}}},
				{"nested":{"path":"nested_path","query":{"term":{"nested_path.nested_field":{"value":"test2","_name":"test_const"}}}}}]}}]}}`,
		},
		{
			name: "mixed fields all",
			d:    directive.Const(directive.All, directive.WithName("c")),
			fields: []directive.Field{
				directive.FieldName("normal_field"),
				directive.Nested("path1.nested1", "path1"),
			},
			values: twoValues,
			params: twoParams,
			want: `{"bool":{"filter":[{"bool":{"filter":[
				{"term":{"normal_field":{"value":"test1","_name":"c"}}},
				{"term":{"normal_field":{"value":"test2","_name":"c"}}},
				{"nested":{"path":"path1","query":{"term":{"path1.nested1":{"value":"test1","_name":"c"}}}}},
				{"nested":{"path":"path1","query":{"term":{"path1.nested1":{"value":"test2","_name":"c"}}}}}]}}]}}`,
		},
		{
			name:   "exclude",
			d:      directive.Const(directive.Any, directive.WithMode(directive.Exclude)),
			fields: directive.Fields("status"),
			values: []any{"deleted"},
			params: map[string]any{},
			want:   `{"bool":{"must_not":[{"term":{"status":{"value":"deleted"}}}]}}`,
		},
		{
			name:   "include if exist any",
			d:      directive.Const(directive.Any, directive.WithMode(directive.IncludeIfExistAny)),
			fields: directive.Fields("city"),
			values: []any{"match_params.city"},
			params: map[string]any{"city": "berlin"},
			want: `{"bool":{"filter":[{"bool":{"should":[
				{"bool":{"must_not":[{"exists":{"field":"city"}}]}},
				{"bool":{"should":[{"term":{"city":{"value":"berlin"}}}]}}]}}]}}`,
		},
		{
			name:   "nullable without values",
			d:      directive.Const(directive.Any, directive.Nullable()),
			fields: directive.Fields("city"),
			values: []any{"match_params.city"},
			params: map[string]any{},
		},
		{
			name:   "star unpacks a list param",
			d:      directive.Const(directive.Any),
			fields: directive.Fields("skills"),
			values: []any{"*match_params.skills", "rust"},
			params: map[string]any{"skills": []any{"go", "sql"}},
			want:   `{"bool":{"filter":[{"terms":{"skills":["go","sql","rust"]}}]}}`,
		},
	})
}

func TestConstMatch_MustBucket(t *testing.T) {
	d := directive.Const(directive.Any, directive.WithName("test_const")).
		WithConfig(directive.Config{AndOp: directive.Must}).
		WithFields(directive.Fields("field1")...).
		WithValues(twoValues...).
		WithParams(twoParams)

	q, err := d.ToDSL(false)
	if err != nil {
		t.Fatalf("ToDSL: %v", err)
	}
	dsltest.AssertJSON(t, q, `{"bool":{"must":[{"terms":{"field1":["test1","test2"],"_name":"test_const"}}]}}`)
}

func TestConstMatch_OrBase(t *testing.T) {
	d := directive.Const(directive.Any).
		WithConfig(directive.Config{BaseOp: directive.BaseOr}).
		WithFields(directive.Fields("a")...).
		WithValues("x").
		WithParams(nil)

	q, err := d.ToDSL(false)
	if err != nil {
		t.Fatalf("ToDSL: %v", err)
	}
	dsltest.AssertJSON(t, q, `{"bool":{"should":[{"term":{"a":{"value":"x"}}}]}}`)
}

func TestTextMatch(t *testing.T) {
	opts := directive.QueryOptions{
		Fuzziness: directive.Some[any]("auto"),
		Operator:  directive.Some[any]("and"),
	}
	runMatchCases(t, []matchCase{
		{
			name:   "single field all",
			d:      directive.Text(directive.All, directive.WithName("test_text")).WithQueryOptions(opts),
			fields: directive.Fields("field1"),
			values: twoValues,
			params: twoParams,
			want: `{"bool":{"filter":[{"bool":{"filter":[
				{"match":{"field1":{"query":"test1","fuzziness":"auto","operator":"and","_name":"test_text"}}},
				{"match":{"field1":{"query":"test2","fuzziness":"auto","operator":"and","_name":"test_text"}}}]}}]}}`,
		},
		{
			name:   "multi field any",
			d:      directive.Text(directive.Any, directive.WithName("test_text")).WithQueryOptions(opts),
			fields: directive.Fields("field1", "field2"),
			values: twoValues,
			params: twoParams,
			want: `{"bool":{"filter":[{"bool":{"should":[
				{"multi_match":{"query":"test1","fields":["field1","field2"],"fuzziness":"auto","operator":"and","_name":"test_text"}},
				{"multi_match":{"query":"test2","fields":["field1","field2"],"fuzziness":"auto","operator":"and","_name":"test_text"}}]}}]}}`,
		},
		{
			name:   "nested match has no name",
			d:      directive.Text(directive.Any, directive.WithName("test_text")).WithQueryOptions(opts),
			fields: []directive.Field{directive.Nested("nested_path.nested_field", "nested_path")},
			values: []any{"match_params.value1"},
			params: twoParams,
			want: `{"bool":{"filter":[{"nested":{"path":"nested_path","query":
				{"match":{"nested_path.nested_field":{"query":"test1","fuzziness":"auto","operator":"and"}}}}}]}}`,
		},
		{
			name: "option explicitly nil is dropped",
			d: directive.Text(directive.Any).WithQueryOptions(directive.QueryOptions{
				Operator:  directive.Some[any]("or"),
				Fuzziness: directive.Some[any](nil),
			}),
			fields: directive.Fields("title"),
			values: []any{"go"},
			params: map[string]any{},
			want:   `{"bool":{"filter":[{"match":{"title":{"query":"go","operator":"or"}}}]}}`,
		},
	})
}

func TestQueryStringMatch(t *testing.T) {
	opts := directive.QueryOptions{Extra: map[string]any{
		"default_operator":       "OR",
		"allow_leading_wildcard": false,
	}}
	runMatchCases(t, []matchCase{
		{
			name:   "single field",
			d:      directive.QueryString(directive.All, directive.WithName("qs")).WithQueryOptions(opts),
			fields: directive.Fields("body"),
			values: []any{"match_params.value1"},
			params: twoParams,
			want: `{"bool":{"filter":[{"query_string":{"query":"test1","fields":["body"],
				"default_operator":"OR","allow_leading_wildcard":false,"_name":"qs"}}]}}`,
		},
		{
			name:   "multi field",
			d:      directive.QueryString(directive.Any, directive.WithName("qs")),
			fields: directive.Fields("a", "b"),
			values: []any{"go AND sql"},
			params: map[string]any{},
			want:   `{"bool":{"filter":[{"query_string":{"query":"go AND sql","fields":["a","b"],"_name":"qs"}}]}}`,
		},
		{
			name:   "nested keeps name",
			d:      directive.QueryString(directive.Any, directive.WithName("test_query_string")).WithQueryOptions(opts),
			fields: []directive.Field{directive.Nested("nested_path.nested_field", "nested_path")},
			values: twoValues,
			params: twoParams,
			want: `{"bool":{"filter":[{"bool":{"should":[
				{"nested":{"path":"nested_path","query":{"query_string":{"query":"test1","fields":["nested_path.nested_field"],
					"default_operator":"OR","allow_leading_wildcard":false,"_name":"test_query_string"}}}},
				{"nested":{"path":"nested_path","query":{"query_string":{"query":"test2","fields":["nested_path.nested_field"],
					"default_operator":"OR","allow_leading_wildcard":false,"_name":"test_query_string"}}}}]}}]}}`,
		},
	})
}

func TestWaterfallMatch(t *testing.T) {
	order := []any{"level1", "level2", "level3", "level4"}
	runMatchCases(t, []matchCase{
		{
			name:   "gt",
			d:      directive.Waterfall(directive.Any, order, directive.GT, directive.WithName("test_waterfall")),
			fields: directive.Fields("field1"),
			values: []any{"match_params.value"},
			params: map[string]any{"value": "level2"},
			want:   `{"bool":{"filter":[{"terms":{"field1":["level3","level4"],"_name":"test_waterfall"}}]}}`,
		},
		{
			name:   "lte",
			d:      directive.Waterfall(directive.Any, order, directive.LTE, directive.WithName("test_waterfall")),
			fields: directive.Fields("field1"),
			values: []any{"match_params.value"},
			params: map[string]any{"value": "level2"},
			want:   `{"bool":{"filter":[{"terms":{"field1":["level1","level2"],"_name":"test_waterfall"}}]}}`,
		},
		{
			name:   "gte at last level",
			d:      directive.Waterfall(directive.Any, order, directive.GTE),
			fields: directive.Fields("field1"),
			values: []any{"level4"},
			params: map[string]any{},
			want:   `{"bool":{"filter":[{"term":{"field1":{"value":"level4"}}}]}}`,
		},
		{
			name:   "numeric pivot from json",
			d:      directive.Waterfall(directive.Any, []any{1, 2, 3}, directive.LT),
			fields: directive.Fields("seniority"),
			values: []any{"match_params.level"},
			params: map[string]any{"level": float64(3)},
			want:   `{"bool":{"filter":[{"terms":{"seniority":[1,2]}}]}}`,
		},
		{
			name:   "nil pivot nullable",
			d:      directive.Waterfall(directive.Any, order, directive.GT, directive.Nullable()),
			fields: directive.Fields("field1"),
			values: []any{"match_params.missing"},
			params: map[string]any{},
		},
	})
}

func TestWaterfallMatch_Errors(t *testing.T) {
	order := []any{"low", "medium", "high"}
	tests := []struct {
		name   string
		d      *directive.MatchDirective
		want   error
		substr string
	}{
		{
			"two values",
			directive.Waterfall(directive.Any, order, directive.GT).
				WithFields(directive.Fields("f")...).WithValues("low", "high").WithParams(nil),
			directive.ErrValidation, "exactly 1 value",
		},
		{
			"pivot outside order",
			directive.Waterfall(directive.Any, order, directive.GT).
				WithFields(directive.Fields("f")...).WithValues("extreme").WithParams(nil),
			directive.ErrValidation, "not in the waterfall order",
		},
		{
			"two fields",
			directive.Waterfall(directive.Any, order, directive.GT).
				WithFields(directive.Fields("f", "g")...).WithValues("low").WithParams(nil),
			directive.ErrValidation, "exactly 1 field",
		},
		{
			"nil pivot not nullable",
			directive.Waterfall(directive.Any, order, directive.GT).
				WithFields(directive.Fields("f")...).WithValues("match_params.x").WithParams(nil),
			directive.ErrValidation, "no match value set",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.d.ToDSL(false)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error: got %v, want %v", err, tt.want)
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q does not mention %q", err, tt.substr)
			}
		})
	}
}

func TestMatch_Errors(t *testing.T) {
	tests := []struct {
		name string
		d    *directive.MatchDirective
		want error
	}{
		{
			"values not bound",
			directive.Const(directive.Any).WithFields(directive.Fields("f")...).WithParams(nil),
			directive.ErrBinding,
		},
		{
			"fields not bound",
			directive.Const(directive.Any).WithValues("x").WithParams(nil),
			directive.ErrBinding,
		},
		{
			"params not bound",
			directive.Const(directive.Any).WithFields(directive.Fields("f")...).WithValues("x"),
			directive.ErrBinding,
		},
		{
			"empty field list",
			directive.Const(directive.Any).WithFields().WithValues("x").WithParams(nil),
			directive.ErrValidation,
		},
		{
			"values resolve to nothing",
			directive.Const(directive.Any).WithFields(directive.Fields("f")...).
				WithValues("match_params.missing").WithParams(nil),
			directive.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.d.ToDSL(false)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error: got %v, want %v", err, tt.want)
			}
			var derr *directive.Error
			if !errors.As(err, &derr) || derr.Directive == "" {
				t.Errorf("expected *directive.Error naming the directive, got %#v", err)
			}
		})
	}
}
