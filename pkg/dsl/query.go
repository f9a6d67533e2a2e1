// Package dsl holds the query tree nodes produced by directive compilation
// and their serialization to the search backend wire format.
package dsl

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Query is a node of the boolean query tree.
type Query interface {
	// Source returns a JSON-serializable representation of the node.
	Source() (any, error)
}

// Marshal serializes a query node to JSON. Map keys are emitted in sorted
// order, so identical trees always produce identical bytes. Script sources
// keep their <, > and & characters unescaped.
func Marshal(q Query) ([]byte, error) {
	if q == nil {
		return []byte("null"), nil
	}
	src, err := q.Source()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(src); err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func sourceAll(qs []Query) ([]any, error) {
	out := make([]any, 0, len(qs))
	for _, q := range qs {
		src, err := q.Source()
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// Raw is a caller-supplied query document passed through verbatim.
type Raw map[string]any

// Source implements Query.
func (r Raw) Source() (any, error) {
	return map[string]any(r), nil
}

// RawJSON decodes a JSON document into a Raw query. Empty input and the
// literal null decode to a nil Query.
func RawJSON(data []byte) (Query, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode raw query: %w", err)
	}
	if m == nil {
		return nil, nil
	}
	return Raw(m), nil
}

// MatchAllQuery matches every document.
type MatchAllQuery struct{}

// Source implements Query.
func (MatchAllQuery) Source() (any, error) {
	return map[string]any{"match_all": map[string]any{}}, nil
}
