package directive

// Binding is what an engine or bool directive applies to a directive
// prototype before executing it.
type Binding struct {
	// Attr is the value-mapper attribute of the directive.
	Attr   string
	Mapper ValueMapper
	// Params are the runtime params. Nil leaves the prototype's params.
	Params map[string]any
	// Engine names the compiling engine, checked by custom directives.
	Engine string
	Config Config
}

// Bind returns a working copy of d bound for one compilation.
//
// Fields and values declared on the prototype survive unless the mapper
// supplies them for Attr. A nil mapper is treated as empty.
func Bind(d *MatchDirective, b Binding) (*MatchDirective, error) {
	var fv FieldValue
	if b.Attr != "" && b.Mapper != nil {
		fv, _ = b.Mapper.FieldValue(b.Attr)
	}
	mapped := fv.HasValues()

	w := d.Copy(CopyOptions{Fields: len(fv.Fields) == 0, Values: !mapped})
	if cs, ok := w.shape.(customShape); ok {
		if err := cs.checkEngine(b.Engine); err != nil {
			return nil, err
		}
		w.mapper = b.Mapper
		w.engine = b.Engine
	}

	w.config = w.config.Merge(b.Config)
	if b.Params != nil {
		w.params, w.hasParams = b.Params, true
	}
	if mapped {
		w.values = append([]any(nil), fv.Values...)
		w.named = fv.Named
		w.hasValues = true
	}
	if len(fv.Fields) > 0 {
		w.fields = append([]Field(nil), fv.Fields...)
		w.hasFields = true
	}
	return w, nil
}
