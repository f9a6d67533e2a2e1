// Package value resolves declared directive values against runtime parameters.
package value

import (
	"reflect"
	"strings"
)

// DefaultPrefix marks a string as a dotted key path into the runtime params.
const DefaultPrefix = "match_params"

const unpackMarker = "*"

// Func computes a value from the runtime params.
type Func func(params map[string]any) any

// UnpackFunc is a Func whose result is spliced into the surrounding sequence
// instead of being appended as a single element.
type UnpackFunc func(params map[string]any) any

// Unpacked flags fn as unpacking.
func Unpacked(fn Func) UnpackFunc {
	return UnpackFunc(fn)
}

// Resolver turns a raw declared value into its runtime value.
type Resolver interface {
	Resolve(raw any) any
}

// Factory builds a Resolver bound to one set of runtime params.
type Factory func(params map[string]any) Resolver

// Prefixed returns a Factory for RuntimeResolvers using prefix.
func Prefixed(prefix string) Factory {
	return func(params map[string]any) Resolver {
		return NewRuntimeResolver(params, prefix)
	}
}

// RuntimeResolver resolves key paths, functions, mappings and sequences.
//
// A string starting with "<prefix>." is a dotted key path into params and
// resolves to nil as soon as a segment is missing or not a mapping. Inside a
// sequence, elements prefixed with "*" and UnpackFuncs are spliced into the
// result, and elements resolving to nil are dropped.
type RuntimeResolver struct {
	params map[string]any
	prefix string
}

// NewRuntimeResolver returns a resolver over params. An empty prefix
// falls back to DefaultPrefix.
func NewRuntimeResolver(params map[string]any, prefix string) *RuntimeResolver {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RuntimeResolver{params: params, prefix: prefix}
}

// Resolve implements Resolver.
func (r *RuntimeResolver) Resolve(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return r.resolveString(v)
	case Func:
		return v(r.params)
	case UnpackFunc:
		return v(r.params)
	case func(map[string]any) any:
		return v(r.params)
	case map[string]any:
		return r.resolveMap(v)
	case []any:
		return r.resolveSequence(v)
	}
	return r.resolveReflect(raw)
}

func (r *RuntimeResolver) resolveReflect(raw any) any {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return raw
		}
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return r.resolveSequence(items)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return raw
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = r.Resolve(iter.Value().Interface())
		}
		return out
	}
	return raw
}

func (r *RuntimeResolver) resolveString(s string) any {
	if path, ok := strings.CutPrefix(s, r.prefix+"."); ok {
		return r.lookup(path)
	}
	if shouldUnpack(s) {
		return unpack(r.Resolve(s[len(unpackMarker):]))
	}
	return s
}

func (r *RuntimeResolver) resolveMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = r.Resolve(v)
	}
	return out
}

func (r *RuntimeResolver) resolveSequence(items []any) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		splice := shouldUnpack(item)
		raw := item
		if s, ok := item.(string); ok && splice {
			raw = s[len(unpackMarker):]
		}
		resolved := r.Resolve(raw)
		if resolved == nil {
			continue
		}
		if splice {
			out = append(out, unpack(resolved)...)
		} else {
			out = append(out, resolved)
		}
	}
	return out
}

func (r *RuntimeResolver) lookup(path string) any {
	var current any = r.params
	for _, key := range strings.Split(path, ".") {
		m, ok := asMap(current)
		if !ok {
			return nil
		}
		current = m[key]
		if current == nil {
			return nil
		}
	}
	return current
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func shouldUnpack(v any) bool {
	switch x := v.(type) {
	case string:
		return len(x) > len(unpackMarker) && strings.HasPrefix(x, unpackMarker)
	case UnpackFunc:
		return true
	}
	return false
}

// unpack spreads a sequence into its elements and wraps anything else,
// strings included, into a single-element slice.
func unpack(v any) []any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return []any{x}
	case []any:
		return x
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

// ToSlice normalizes a resolved value into a slice: sequences are spread,
// nil becomes an empty slice and any other value becomes a single element.
func ToSlice(v any) []any {
	if v == nil {
		return []any{}
	}
	return unpack(v)
}
