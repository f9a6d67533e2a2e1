package directive

// Option holds a value that may be unset. An Option set to a zero or nil
// value is distinct from an unset one.
type Option[T any] struct {
	value T
	set   bool
}

// Some returns a set Option.
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, set: true}
}

// None returns an unset Option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the value and whether it is set.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether the option carries a value.
func (o Option[T]) IsSet() bool {
	return o.set
}

// Or returns the value when set, otherwise other.
func (o Option[T]) Or(other Option[T]) Option[T] {
	if o.set {
		return o
	}
	return other
}

// QueryOptions are pass-through parameters for free-text clauses.
// Options explicitly set to nil are dropped from the generated clause.
type QueryOptions struct {
	Operator                        Option[any]
	MinimumShouldMatch              Option[any]
	Fuzziness                       Option[any]
	PrefixLength                    Option[any]
	MaxExpansions                   Option[any]
	Analyzer                        Option[any]
	AutoGenerateSynonymsPhraseQuery Option[any]
	// Extra carries backend options without a dedicated field.
	Extra map[string]any
}

// Merge returns o with every option set in other overriding it.
func (o QueryOptions) Merge(other QueryOptions) QueryOptions {
	out := QueryOptions{
		Operator:                        other.Operator.Or(o.Operator),
		MinimumShouldMatch:              other.MinimumShouldMatch.Or(o.MinimumShouldMatch),
		Fuzziness:                       other.Fuzziness.Or(o.Fuzziness),
		PrefixLength:                    other.PrefixLength.Or(o.PrefixLength),
		MaxExpansions:                   other.MaxExpansions.Or(o.MaxExpansions),
		Analyzer:                        other.Analyzer.Or(o.Analyzer),
		AutoGenerateSynonymsPhraseQuery: other.AutoGenerateSynonymsPhraseQuery.Or(o.AutoGenerateSynonymsPhraseQuery),
	}
	if len(o.Extra)+len(other.Extra) > 0 {
		out.Extra = make(map[string]any, len(o.Extra)+len(other.Extra))
		for k, v := range o.Extra {
			out.Extra[k] = v
		}
		for k, v := range other.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Params returns the set, non-nil options keyed by their wire name.
func (o QueryOptions) Params() map[string]any {
	out := make(map[string]any)
	for k, v := range o.Extra {
		if v != nil {
			out[k] = v
		}
	}
	named := []struct {
		key string
		opt Option[any]
	}{
		{"operator", o.Operator},
		{"minimum_should_match", o.MinimumShouldMatch},
		{"fuzziness", o.Fuzziness},
		{"prefix_length", o.PrefixLength},
		{"max_expansions", o.MaxExpansions},
		{"analyzer", o.Analyzer},
		{"auto_generate_synonyms_phrase_query", o.AutoGenerateSynonymsPhraseQuery},
	}
	for _, n := range named {
		if v, ok := n.opt.Get(); ok && v != nil {
			out[n.key] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
