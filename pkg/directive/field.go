package directive

// Field is a plain field name or a NestedField.
type Field interface {
	fieldName() string
}

// FieldName is a plain document field.
type FieldName string

func (f FieldName) fieldName() string { return string(f) }

// NestedField is a field reachable only inside the nested context at Path.
type NestedField struct {
	Name string
	Path string
}

func (f NestedField) fieldName() string { return f.Name }

// Nested returns the nested field name inside path.
func Nested(name, path string) NestedField {
	return NestedField{Name: name, Path: path}
}

// Fields converts plain names into Fields.
func Fields(names ...string) []Field {
	out := make([]Field, len(names))
	for i, n := range names {
		out[i] = FieldName(n)
	}
	return out
}

func splitFields(fields []Field) ([]string, []NestedField) {
	var plain []string
	var nested []NestedField
	for _, f := range fields {
		switch v := f.(type) {
		case FieldName:
			plain = append(plain, string(v))
		case NestedField:
			nested = append(nested, v)
		}
	}
	return plain, nested
}

// FieldValue is the declared binding of one engine attribute.
type FieldValue struct {
	Fields []Field
	Values []any
	Named  map[string]any
}

// HasValues reports whether the binding declares positional or named values.
func (fv FieldValue) HasValues() bool {
	return len(fv.Values) > 0 || len(fv.Named) > 0
}

// ValueMapper looks up field/value bindings by attribute name.
type ValueMapper interface {
	FieldValue(attr string) (FieldValue, bool)
}

// MapValueMapper is a ValueMapper backed by a map.
type MapValueMapper map[string]FieldValue

// FieldValue implements ValueMapper.
func (m MapValueMapper) FieldValue(attr string) (FieldValue, bool) {
	fv, ok := m[attr]
	return fv, ok
}
