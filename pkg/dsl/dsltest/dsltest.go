// Package dsltest provides assertions for query tree tests.
package dsltest

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/kailas-cloud/querydsl/pkg/dsl"
)

// AssertJSON fails the test when q does not serialize to the same JSON
// document as want. Key order and whitespace are ignored.
func AssertJSON(t testing.TB, q dsl.Query, want string) {
	t.Helper()
	got, err := dsl.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	Equal(t, got, []byte(want))
}

// AssertFunctionJSON is AssertJSON for a single score function.
func AssertFunctionJSON(t testing.TB, fn dsl.ScoreFunction, want string) {
	t.Helper()
	src, err := fn.Source()
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	got, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	Equal(t, got, []byte(want))
}

// Equal fails the test when got and want are not the same JSON document.
func Equal(t testing.TB, got, want []byte) {
	t.Helper()
	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("decode got %s: %v", got, err)
	}
	if err := json.Unmarshal(want, &w); err != nil {
		t.Fatalf("decode want %s: %v", want, err)
	}
	if !reflect.DeepEqual(g, w) {
		t.Errorf("json mismatch\ngot:  %s\nwant: %s", got, compact(want))
	}
}

func compact(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return string(data)
	}
	return string(out)
}
