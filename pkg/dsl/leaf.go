package dsl

import (
	"errors"
	"maps"
)

var errEmptyField = errors.New("dsl: field is required")

func named(body map[string]any, name string) map[string]any {
	if name != "" {
		body["_name"] = name
	}
	return body
}

// TermQuery matches an exact value.
type TermQuery struct {
	Field string
	Value any
	Name  string
}

// Source implements Query.
func (q *TermQuery) Source() (any, error) {
	if q.Field == "" {
		return nil, errEmptyField
	}
	inner := named(map[string]any{"value": q.Value}, q.Name)
	return map[string]any{"term": map[string]any{q.Field: inner}}, nil
}

// TermsQuery matches any of several exact values.
type TermsQuery struct {
	Field  string
	Values []any
	Name   string
}

// Source implements Query.
func (q *TermsQuery) Source() (any, error) {
	if q.Field == "" {
		return nil, errEmptyField
	}
	values := q.Values
	if values == nil {
		values = []any{}
	}
	body := named(map[string]any{q.Field: values}, q.Name)
	return map[string]any{"terms": body}, nil
}

// MatchQuery is a full-text match on a single field.
type MatchQuery struct {
	Field   string
	Query   any
	Options map[string]any
	Name    string
}

// Source implements Query.
func (q *MatchQuery) Source() (any, error) {
	if q.Field == "" {
		return nil, errEmptyField
	}
	inner := make(map[string]any, len(q.Options)+2)
	maps.Copy(inner, q.Options)
	inner["query"] = q.Query
	return map[string]any{"match": map[string]any{q.Field: named(inner, q.Name)}}, nil
}

// MultiMatchQuery runs a match over several fields.
type MultiMatchQuery struct {
	Query   any
	Fields  []string
	Options map[string]any
	Name    string
}

// Source implements Query.
func (q *MultiMatchQuery) Source() (any, error) {
	body := make(map[string]any, len(q.Options)+3)
	maps.Copy(body, q.Options)
	body["query"] = q.Query
	body["fields"] = stringsOrEmpty(q.Fields)
	return map[string]any{"multi_match": named(body, q.Name)}, nil
}

// QueryStringQuery parses its query with the backend query-string syntax.
type QueryStringQuery struct {
	Query   any
	Fields  []string
	Options map[string]any
	Name    string
}

// Source implements Query.
func (q *QueryStringQuery) Source() (any, error) {
	body := make(map[string]any, len(q.Options)+3)
	maps.Copy(body, q.Options)
	body["query"] = q.Query
	if len(q.Fields) > 0 {
		body["fields"] = q.Fields
	}
	return map[string]any{"query_string": named(body, q.Name)}, nil
}

// RangeQuery bounds a field. Nil bounds are omitted.
type RangeQuery struct {
	Field string
	GT    any
	GTE   any
	LT    any
	LTE   any
	Name  string
}

// Source implements Query.
func (q *RangeQuery) Source() (any, error) {
	if q.Field == "" {
		return nil, errEmptyField
	}
	inner := make(map[string]any, 5)
	for key, v := range map[string]any{"gt": q.GT, "gte": q.GTE, "lt": q.LT, "lte": q.LTE} {
		if v != nil {
			inner[key] = v
		}
	}
	return map[string]any{"range": map[string]any{q.Field: named(inner, q.Name)}}, nil
}

// Script is an inline script with optional parameters.
type Script struct {
	Source string
	Params map[string]any
	Lang   string
}

func (s Script) body() map[string]any {
	body := map[string]any{"source": s.Source}
	if len(s.Params) > 0 {
		body["params"] = s.Params
	}
	if s.Lang != "" {
		body["lang"] = s.Lang
	}
	return body
}

// DefaultScriptLang is the language of script queries without an explicit one.
const DefaultScriptLang = "painless"

// ScriptQuery filters documents with a script.
type ScriptQuery struct {
	Script Script
	Name   string
}

// Source implements Query.
func (q *ScriptQuery) Source() (any, error) {
	s := q.Script
	if s.Lang == "" {
		s.Lang = DefaultScriptLang
	}
	body := named(map[string]any{"script": s.body()}, q.Name)
	return map[string]any{"script": body}, nil
}

// ExistsQuery matches documents that have a value for Field.
type ExistsQuery struct {
	Field string
	Name  string
}

// Source implements Query.
func (q *ExistsQuery) Source() (any, error) {
	if q.Field == "" {
		return nil, errEmptyField
	}
	return map[string]any{"exists": named(map[string]any{"field": q.Field}, q.Name)}, nil
}

// NestedQuery runs Query inside the nested document context at Path.
type NestedQuery struct {
	Path  string
	Query Query
	Name  string
}

// Source implements Query.
func (q *NestedQuery) Source() (any, error) {
	if q.Path == "" {
		return nil, errors.New("dsl: nested path is required")
	}
	if q.Query == nil {
		return nil, errors.New("dsl: nested query is required")
	}
	inner, err := q.Query.Source()
	if err != nil {
		return nil, err
	}
	body := named(map[string]any{"path": q.Path, "query": inner}, q.Name)
	return map[string]any{"nested": body}, nil
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
