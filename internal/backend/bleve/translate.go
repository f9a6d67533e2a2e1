// Package bleve runs compiled queries against an embedded bleve index.
//
// The compiled documents target an Elasticsearch-style backend; this
// package maps the subset bleve can express onto its query types so
// catalogs can be tried locally without a cluster. Scripts have no bleve
// counterpart and are rejected. function_score keeps its base query and
// drops the score functions.
package bleve

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/querydsl/pkg/dsl"
)

// ErrUnsupported is returned for query nodes bleve cannot run.
var ErrUnsupported = errors.New("unsupported by bleve backend")

// Translate converts a compiled query into a bleve query. A nil query
// matches every document.
func Translate(q dsl.Query) (query.Query, error) {
	if q == nil {
		return bleve.NewMatchAllQuery(), nil
	}
	data, err := dsl.Marshal(q)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode compiled query: %w", err)
	}
	return translate(doc)
}

func translate(node any) (query.Query, error) {
	if node == nil {
		return bleve.NewMatchAllQuery(), nil
	}
	m, ok := node.(map[string]any)
	if !ok || len(m) != 1 {
		return nil, fmt.Errorf("query node must be an object with one key, got %T", node)
	}
	var kind string
	var body any
	for k, b := range m {
		kind, body = k, b
	}
	switch kind {
	case "bool":
		return translateBool(body)
	case "term":
		return translateTerm(body)
	case "terms":
		return translateTerms(body)
	case "match":
		return translateMatch(body)
	case "multi_match":
		return translateMultiMatch(body)
	case "query_string":
		return translateQueryString(body)
	case "range":
		return translateRange(body)
	case "exists":
		return translateExists(body)
	case "nested":
		return translateNested(body)
	case "function_score":
		return translateFunctionScore(body)
	case "match_all":
		return bleve.NewMatchAllQuery(), nil
	case "match_none":
		return bleve.NewMatchNoneQuery(), nil
	default:
		return nil, fmt.Errorf("%w: %s query", ErrUnsupported, kind)
	}
}

func object(v any, kind string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected object, got %T", kind, v)
	}
	return m, nil
}

// fieldBody splits {"field": body} forms, skipping the _name tag.
func fieldBody(v any, kind string) (string, any, error) {
	m, err := object(v, kind)
	if err != nil {
		return "", nil, err
	}
	var field string
	var body any
	for k, b := range m {
		if k == "_name" || k == "boost" {
			continue
		}
		if field != "" {
			return "", nil, fmt.Errorf("%s: more than one field", kind)
		}
		field, body = k, b
	}
	if field == "" {
		return "", nil, fmt.Errorf("%s: missing field", kind)
	}
	return field, body, nil
}

func clauses(v any) ([]any, error) {
	switch c := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return c, nil
	case map[string]any:
		return []any{c}, nil
	default:
		return nil, fmt.Errorf("bool: clause list has type %T", v)
	}
}

func translateBool(v any) (query.Query, error) {
	m, err := object(v, "bool")
	if err != nil {
		return nil, err
	}
	bq := bleve.NewBooleanQuery()
	var required, optional int
	add := func(key string, fn func(...query.Query)) error {
		list, err := clauses(m[key])
		if err != nil {
			return err
		}
		for _, c := range list {
			q, err := translate(c)
			if err != nil {
				return fmt.Errorf("bool.%s: %w", key, err)
			}
			fn(q)
		}
		switch key {
		case "must", "filter":
			required += len(list)
		case "should":
			optional += len(list)
		}
		return nil
	}
	// filter clauses run as must; bleve has no non-scoring bucket.
	for _, key := range []string{"must", "filter"} {
		if err := add(key, bq.AddMust); err != nil {
			return nil, err
		}
	}
	if err := add("should", bq.AddShould); err != nil {
		return nil, err
	}
	if err := add("must_not", bq.AddMustNot); err != nil {
		return nil, err
	}
	if msm, ok := m["minimum_should_match"].(float64); ok {
		bq.SetMinShould(msm)
	} else if required == 0 && optional > 0 {
		bq.SetMinShould(1)
	}
	if required == 0 && optional == 0 {
		// only must_not: everything else matches
		bq.AddMust(bleve.NewMatchAllQuery())
	}
	return bq, nil
}

func translateTerm(v any) (query.Query, error) {
	field, body, err := fieldBody(v, "term")
	if err != nil {
		return nil, err
	}
	value := body
	if inner, ok := body.(map[string]any); ok {
		value = inner["value"]
	}
	return exact(field, value)
}

// exact matches one value of a field with the query type of the value.
func exact(field string, value any) (query.Query, error) {
	switch val := value.(type) {
	case string:
		q := bleve.NewTermQuery(val)
		q.SetField(field)
		return q, nil
	case bool:
		q := bleve.NewBoolFieldQuery(val)
		q.SetField(field)
		return q, nil
	case float64:
		inclusive := true
		q := bleve.NewNumericRangeInclusiveQuery(&val, &val, &inclusive, &inclusive)
		q.SetField(field)
		return q, nil
	default:
		return nil, fmt.Errorf("%w: term value of type %T on %q", ErrUnsupported, value, field)
	}
}

func translateTerms(v any) (query.Query, error) {
	field, body, err := fieldBody(v, "terms")
	if err != nil {
		return nil, err
	}
	values, ok := body.([]any)
	if !ok {
		return nil, fmt.Errorf("terms: values of %q must be a list", field)
	}
	if len(values) == 0 {
		return bleve.NewMatchNoneQuery(), nil
	}
	dq := bleve.NewDisjunctionQuery()
	for _, val := range values {
		q, err := exact(field, val)
		if err != nil {
			return nil, err
		}
		dq.AddQuery(q)
	}
	return dq, nil
}

func matchQuery(field string, text any, opts map[string]any) (query.Query, error) {
	mq := bleve.NewMatchQuery(fmt.Sprint(text))
	mq.SetField(field)
	if op, ok := opts["operator"].(string); ok {
		switch op {
		case "and", "AND":
			mq.SetOperator(query.MatchQueryOperatorAnd)
		case "or", "OR":
			mq.SetOperator(query.MatchQueryOperatorOr)
		default:
			return nil, fmt.Errorf("match: unknown operator %q", op)
		}
	}
	if fz, ok := opts["fuzziness"].(float64); ok {
		mq.SetFuzziness(int(fz))
	}
	if boost, ok := opts["boost"].(float64); ok {
		mq.SetBoost(boost)
	}
	return mq, nil
}

func translateMatch(v any) (query.Query, error) {
	field, body, err := fieldBody(v, "match")
	if err != nil {
		return nil, err
	}
	if inner, ok := body.(map[string]any); ok {
		return matchQuery(field, inner["query"], inner)
	}
	return matchQuery(field, body, nil)
}

func translateMultiMatch(v any) (query.Query, error) {
	m, err := object(v, "multi_match")
	if err != nil {
		return nil, err
	}
	fields, _ := m["fields"].([]any)
	if len(fields) == 0 {
		return nil, errors.New("multi_match: no fields")
	}
	dq := bleve.NewDisjunctionQuery()
	for _, f := range fields {
		name, ok := f.(string)
		if !ok {
			return nil, fmt.Errorf("multi_match: field of type %T", f)
		}
		q, err := matchQuery(name, m["query"], m)
		if err != nil {
			return nil, err
		}
		dq.AddQuery(q)
	}
	return dq, nil
}

func translateQueryString(v any) (query.Query, error) {
	m, err := object(v, "query_string")
	if err != nil {
		return nil, err
	}
	text, ok := m["query"].(string)
	if !ok {
		return nil, errors.New("query_string: query must be a string")
	}
	return bleve.NewQueryStringQuery(text), nil
}

type bounds struct {
	lower, upper         any
	lowerIncl, upperIncl bool
}

func rangeBounds(body map[string]any) bounds {
	var b bounds
	if v, ok := body["gte"]; ok {
		b.lower, b.lowerIncl = v, true
	} else if v, ok := body["gt"]; ok {
		b.lower = v
	}
	if v, ok := body["lte"]; ok {
		b.upper, b.upperIncl = v, true
	} else if v, ok := body["lt"]; ok {
		b.upper = v
	}
	return b
}

func translateRange(v any) (query.Query, error) {
	field, body, err := fieldBody(v, "range")
	if err != nil {
		return nil, err
	}
	m, err := object(body, "range")
	if err != nil {
		return nil, err
	}
	b := rangeBounds(m)
	if b.lower == nil && b.upper == nil {
		return nil, fmt.Errorf("range: no bounds on %q", field)
	}
	var q interface {
		query.Query
		SetField(string)
	}
	switch {
	case isNumber(b.lower) && isNumber(b.upper):
		q = bleve.NewNumericRangeInclusiveQuery(numberPtr(b.lower), numberPtr(b.upper), &b.lowerIncl, &b.upperIncl)
	case isString(b.lower) && isString(b.upper):
		lo, _ := b.lower.(string)
		hi, _ := b.upper.(string)
		start, startOK := parseTime(lo)
		end, endOK := parseTime(hi)
		if startOK && endOK {
			q = bleve.NewDateRangeInclusiveQuery(start, end, &b.lowerIncl, &b.upperIncl)
		} else {
			q = bleve.NewTermRangeInclusiveQuery(lo, hi, &b.lowerIncl, &b.upperIncl)
		}
	default:
		return nil, fmt.Errorf("%w: mixed range bounds on %q", ErrUnsupported, field)
	}
	q.SetField(field)
	return q, nil
}

func isNumber(v any) bool {
	_, ok := v.(float64)
	return ok || v == nil
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok || v == nil
}

func numberPtr(v any) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}

// parseTime accepts RFC 3339 timestamps and plain dates. An empty bound
// parses as the zero time, which bleve treats as open.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// translateExists matches any indexed term of the field. Numeric-only
// fields have no terms and never match.
func translateExists(v any) (query.Query, error) {
	m, err := object(v, "exists")
	if err != nil {
		return nil, err
	}
	field, ok := m["field"].(string)
	if !ok || field == "" {
		return nil, errors.New("exists: field is required")
	}
	q := bleve.NewWildcardQuery("*")
	q.SetField(field)
	return q, nil
}

// translateNested runs the inner query directly: bleve flattens object
// paths, so nested field names already address the indexed fields.
func translateNested(v any) (query.Query, error) {
	m, err := object(v, "nested")
	if err != nil {
		return nil, err
	}
	inner, ok := m["query"]
	if !ok {
		return nil, errors.New("nested: query is required")
	}
	return translate(inner)
}

func translateFunctionScore(v any) (query.Query, error) {
	m, err := object(v, "function_score")
	if err != nil {
		return nil, err
	}
	return translate(m["query"])
}
