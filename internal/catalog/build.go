package catalog

import (
	"fmt"
	"path/filepath"

	"github.com/kailas-cloud/querydsl/pkg/directive"
	"github.com/kailas-cloud/querydsl/pkg/painless"
	"github.com/kailas-cloud/querydsl/pkg/score"
	"github.com/kailas-cloud/querydsl/pkg/value"
)

// Group is a declarative AND/OR group compiled as a custom directive of
// its engine.
type Group struct {
	engine string
	tree   *directive.BoolDirective
}

// AllowedEngine implements directive.CustomMatcher.
func (g Group) AllowedEngine() string { return g.engine }

// Directive implements directive.CustomMatcher.
func (g Group) Directive(map[string]any) *directive.BoolDirective { return g.tree }

// builder turns the specs of one engine into directives. Script files it
// loads are recorded in scripts by path.
type builder struct {
	engine  string
	baseDir string
	scripts map[string]string
}

func (b builder) config(s configSpec) (directive.Config, error) {
	andOp, err := directive.ParseAndOp(s.AndQueryOp)
	if err != nil {
		return directive.Config{}, err
	}
	baseOp, err := directive.ParseBaseOp(s.BaseMatchOp)
	if err != nil {
		return directive.Config{}, err
	}
	cfg := directive.Config{AndOp: andOp, BaseOp: baseOp}
	if s.ValuePrefix != "" {
		cfg.Resolver = value.Prefixed(s.ValuePrefix)
	}
	return cfg, nil
}

func fields(specs []fieldSpec) []directive.Field {
	out := make([]directive.Field, 0, len(specs))
	for _, f := range specs {
		if f.Path != "" {
			out = append(out, directive.Nested(f.Name, f.Path))
		} else {
			out = append(out, directive.FieldName(f.Name))
		}
	}
	return out
}

func (b builder) mapper(specs map[string]bindingSpec) directive.MapValueMapper {
	m := make(directive.MapValueMapper, len(specs))
	for attr, s := range specs {
		m[attr] = directive.FieldValue{Fields: fields(s.Fields), Values: s.Values, Named: s.ValuesMap}
	}
	return m
}

func (b builder) script(inline, file string) (string, error) {
	switch {
	case inline != "" && file != "":
		return "", fmt.Errorf("script and script_file are mutually exclusive")
	case file != "":
		if !filepath.IsAbs(file) {
			file = filepath.Join(b.baseDir, file)
		}
		file = filepath.Clean(file)
		src, err := painless.LoadScript(file)
		if err != nil {
			return "", err
		}
		b.scripts[file] = src
		return src, nil
	case inline == "":
		return "", fmt.Errorf("script or script_file is required")
	}
	return inline, nil
}

func (b builder) matchOptions(s directiveSpec) ([]directive.MatchOption, error) {
	mode, err := directive.ParseMode(s.Mode)
	if err != nil {
		return nil, err
	}
	opts := []directive.MatchOption{directive.WithMode(mode)}
	if s.Nullable {
		opts = append(opts, directive.Nullable())
	}
	if s.Name != "" {
		opts = append(opts, directive.WithName(s.Name))
	}
	return opts, nil
}

// match builds the directive declared by s.
func (b builder) match(s directiveSpec) (*directive.MatchDirective, error) {
	opts, err := b.matchOptions(s)
	if err != nil {
		return nil, err
	}

	var d *directive.MatchDirective
	switch s.Type {
	case "const", "text", "query_string", "exists", "waterfall":
		rule, err := directive.ParseRule(s.Rule)
		if err != nil {
			return nil, err
		}
		switch s.Type {
		case "const":
			d = directive.Const(rule, opts...)
		case "text":
			d = directive.Text(rule, opts...).WithQueryOptions(queryOptions(s.Options))
		case "query_string":
			d = directive.QueryString(rule, opts...).WithQueryOptions(queryOptions(s.Options))
		case "exists":
			d = directive.Exists(rule, opts...)
		case "waterfall":
			op, err := directive.ParseWaterfallOp(s.Op)
			if err != nil {
				return nil, err
			}
			if len(s.Order) == 0 {
				return nil, fmt.Errorf("waterfall order is required")
			}
			d = directive.Waterfall(rule, s.Order, op, opts...)
		}
	case "range":
		d = directive.Range(opts...)
	case "script":
		src, err := b.script(s.Script, s.ScriptFile)
		if err != nil {
			return nil, err
		}
		if len(s.MandatoryParams) > 0 {
			opts = append(opts, directive.MandatoryParams(s.MandatoryParams...))
		}
		d = directive.Script(src, opts...)
	case "group":
		tree, err := b.tree(s)
		if err != nil {
			return nil, err
		}
		d, err = directive.NewCustom(Group{engine: b.engine, tree: tree}, opts...)
		if err != nil {
			return nil, err
		}
	case "":
		return nil, fmt.Errorf("directive type is required")
	default:
		return nil, fmt.Errorf("unknown directive type %q", s.Type)
	}

	if len(s.Fields) > 0 {
		d = d.WithFields(fields(s.Fields)...)
	}
	if len(s.Values) > 0 {
		d = d.WithValues(s.Values...)
	}
	if len(s.ValuesMap) > 0 {
		d = d.WithNamedValues(s.ValuesMap)
	}
	return d, nil
}

// tree builds the bool directive of a group. Nested groups become bool
// children; every other child is bound through its attr.
func (b builder) tree(s directiveSpec) (*directive.BoolDirective, error) {
	var items []directive.BoolItem
	for i, c := range s.Children {
		if c.Type == "group" {
			sub, err := b.tree(c)
			if err != nil {
				return nil, fmt.Errorf("children[%d]: %w", i, err)
			}
			if c.Name != "" {
				sub = sub.Named(c.Name)
			}
			items = append(items, sub)
			continue
		}
		if c.Attr == "" {
			return nil, fmt.Errorf("children[%d]: attr is required", i)
		}
		d, err := b.match(c)
		if err != nil {
			return nil, fmt.Errorf("children[%d] %s: %w", i, c.Attr, err)
		}
		items = append(items, directive.Named(c.Attr, d))
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("group has no children")
	}
	switch s.Group {
	case "and", "":
		return directive.And(items...), nil
	case "or":
		return directive.Or(items...), nil
	}
	return nil, fmt.Errorf("unknown group %q", s.Group)
}

func queryOptions(m map[string]any) directive.QueryOptions {
	var o directive.QueryOptions
	for k, v := range m {
		opt := directive.Some(v)
		switch k {
		case "operator":
			o.Operator = opt
		case "minimum_should_match":
			o.MinimumShouldMatch = opt
		case "fuzziness":
			o.Fuzziness = opt
		case "prefix_length":
			o.PrefixLength = opt
		case "max_expansions":
			o.MaxExpansions = opt
		case "analyzer":
			o.Analyzer = opt
		case "auto_generate_synonyms_phrase_query":
			o.AutoGenerateSynonymsPhraseQuery = opt
		default:
			if o.Extra == nil {
				o.Extra = make(map[string]any)
			}
			o.Extra[k] = v
		}
	}
	return o
}

// function builds the score directive declared by s.
func (b builder) function(s functionSpec) (*score.Directive, error) {
	action, err := score.ParseNullFilterAction(s.NullFilterAction)
	if err != nil {
		return nil, err
	}
	opts := []score.Option{score.OnNullFilter(action)}
	if s.Weight != nil {
		opts = append(opts, score.WithWeight(*s.Weight))
	}
	if s.Nullable {
		opts = append(opts, score.Nullable())
	}
	if s.Filter != nil {
		f, err := b.match(*s.Filter)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		opts = append(opts, score.WithFilter(f))
	}

	switch s.Type {
	case "script":
		src, err := b.script(s.Script, s.ScriptFile)
		if err != nil {
			return nil, err
		}
		if len(s.Params) > 0 {
			opts = append(opts, score.ScriptParams(s.Params))
		}
		if s.Lang != "" {
			opts = append(opts, score.Lang(s.Lang))
		}
		if len(s.MandatoryParams) > 0 {
			opts = append(opts, score.MandatoryParams(s.MandatoryParams...))
		}
		return score.Script(src, opts...), nil
	case "random":
		return score.Random(s.Seed, s.Field, opts...), nil
	case "field_value_factor":
		if s.Field == "" {
			return nil, fmt.Errorf("field is required")
		}
		if s.Factor != nil {
			opts = append(opts, score.Factor(*s.Factor))
		}
		if s.Modifier != "" {
			opts = append(opts, score.Modifier(s.Modifier))
		}
		if s.Missing != nil {
			opts = append(opts, score.Missing(*s.Missing))
		}
		return score.FieldValueFactor(s.Field, opts...), nil
	case "decay":
		if s.Field == "" || s.Origin == nil || s.Scale == nil {
			return nil, fmt.Errorf("field, origin and scale are required")
		}
		switch s.Decay {
		case "", "gauss", "exp", "linear":
		default:
			return nil, fmt.Errorf("unknown decay %q", s.Decay)
		}
		if s.Decay != "" {
			opts = append(opts, score.DecayType(s.Decay))
		}
		if s.Offset != nil {
			opts = append(opts, score.Offset(s.Offset))
		}
		if s.Rate != nil {
			opts = append(opts, score.DecayRate(*s.Rate))
		}
		return score.Decay(s.Field, s.Origin, s.Scale, opts...), nil
	case "weight":
		if s.Weight == nil {
			return nil, fmt.Errorf("weight is required")
		}
		return score.Weight(*s.Weight, opts...), nil
	case "":
		return nil, fmt.Errorf("function type is required")
	}
	return nil, fmt.Errorf("unknown function type %q", s.Type)
}
