package score

import (
	"maps"
	"slices"

	"github.com/kailas-cloud/querydsl/pkg/directive"
	"github.com/kailas-cloud/querydsl/pkg/dsl"
)

type scriptShape struct {
	source    string
	params    map[string]any
	lang      string
	mandatory []string
}

func (scriptShape) kind() string { return "ScriptScore" }

func (s scriptShape) function(x *execution, filter dsl.Query, weight *float64) (dsl.ScoreFunction, error) {
	params := x.resolveMap(s.params)
	var missing []string
	for _, key := range s.mandatory {
		if params[key] == nil {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		if x.nullable {
			return nil, nil
		}
		return nil, directive.NewValidationError(x.label,
			"missing mandatory script parameters %v, they must be present and non-null", missing)
	}
	if len(params) == 0 {
		params = nil
	}
	return &dsl.ScriptScoreFunction{
		Script: dsl.Script{Source: s.source, Params: params, Lang: s.lang},
		Filter: filter,
		Weight: weight,
	}, nil
}

func withScript(fn func(*scriptShape)) Option {
	return func(d *Directive) {
		if s, ok := d.shape.(scriptShape); ok {
			fn(&s)
			d.shape = s
		}
	}
}

// ScriptParams sets the raw script params, resolved against the runtime
// params at generation.
func ScriptParams(params map[string]any) Option {
	return withScript(func(s *scriptShape) { s.params = maps.Clone(params) })
}

// Lang sets the script language. Unset, the backend default applies.
func Lang(lang string) Option {
	return withScript(func(s *scriptShape) { s.lang = lang })
}

// MandatoryParams lists script params that must resolve to non-nil values.
func MandatoryParams(keys ...string) Option {
	return withScript(func(s *scriptShape) { s.mandatory = slices.Clone(keys) })
}

// Script scores documents with a script.
func Script(source string, opts ...Option) *Directive {
	return newDirective(scriptShape{source: source}, RaiseExc, opts)
}

type randomShape struct {
	seed  any
	field string
}

func (randomShape) kind() string { return "RandomScore" }

func (s randomShape) function(x *execution, filter dsl.Query, weight *float64) (dsl.ScoreFunction, error) {
	return &dsl.RandomScoreFunction{Seed: x.resolve(s.seed), Field: s.field, Filter: filter, Weight: weight}, nil
}

// Random scores documents randomly. A nil seed leaves the order unstable
// across requests; seed may be a runtime key path.
func Random(seed any, field string, opts ...Option) *Directive {
	return newDirective(randomShape{seed: seed, field: field}, RaiseExc, opts)
}

type fieldValueFactorShape struct {
	field    string
	factor   *float64
	modifier string
	missing  *float64
}

func (fieldValueFactorShape) kind() string { return "FieldValueFactor" }

func (s fieldValueFactorShape) function(_ *execution, filter dsl.Query, weight *float64) (dsl.ScoreFunction, error) {
	return &dsl.FieldValueFactorFunction{
		Field:    s.field,
		Factor:   s.factor,
		Modifier: s.modifier,
		Missing:  s.missing,
		Filter:   filter,
		Weight:   weight,
	}, nil
}

func withFactor(fn func(*fieldValueFactorShape)) Option {
	return func(d *Directive) {
		if s, ok := d.shape.(fieldValueFactorShape); ok {
			fn(&s)
			d.shape = s
		}
	}
}

// Factor multiplies the field value.
func Factor(f float64) Option {
	return withFactor(func(s *fieldValueFactorShape) { s.factor = &f })
}

// Modifier applies a backend modifier such as "log1p" to the field value.
func Modifier(m string) Option {
	return withFactor(func(s *fieldValueFactorShape) { s.modifier = m })
}

// Missing is used for documents without the field.
func Missing(v float64) Option {
	return withFactor(func(s *fieldValueFactorShape) { s.missing = &v })
}

// FieldValueFactor scores documents by a numeric field.
func FieldValueFactor(field string, opts ...Option) *Directive {
	return newDirective(fieldValueFactorShape{field: field}, RaiseExc, opts)
}

type decayShape struct {
	typ    string
	field  string
	origin any
	scale  any
	offset any
	decay  *float64
}

func (decayShape) kind() string { return "DecayFunction" }

func (s decayShape) function(x *execution, filter dsl.Query, weight *float64) (dsl.ScoreFunction, error) {
	return &dsl.DecayFunction{
		Type:   s.typ,
		Field:  s.field,
		Origin: x.resolve(s.origin),
		Scale:  x.resolve(s.scale),
		Offset: x.resolve(s.offset),
		Decay:  s.decay,
		Filter: filter,
		Weight: weight,
	}, nil
}

func withDecay(fn func(*decayShape)) Option {
	return func(d *Directive) {
		if s, ok := d.shape.(decayShape); ok {
			fn(&s)
			d.shape = s
		}
	}
}

// DecayType selects gauss, exp or linear. The default is gauss.
func DecayType(t string) Option {
	return withDecay(func(s *decayShape) { s.typ = t })
}

// Offset sets the distance from origin before decay starts.
func Offset(v any) Option {
	return withDecay(func(s *decayShape) { s.offset = v })
}

// DecayRate sets the score at scale distance.
func DecayRate(v float64) Option {
	return withDecay(func(s *decayShape) { s.decay = &v })
}

// Decay scores documents by distance from origin. Origin, scale and offset
// may be runtime key paths.
func Decay(field string, origin, scale any, opts ...Option) *Directive {
	return newDirective(decayShape{typ: dsl.DecayGauss, field: field, origin: origin, scale: scale}, RaiseExc, opts)
}

type weightShape struct{}

func (weightShape) kind() string { return "Weight" }

func (weightShape) function(_ *execution, filter dsl.Query, weight *float64) (dsl.ScoreFunction, error) {
	w := 1.0
	if weight != nil {
		w = *weight
	}
	return &dsl.WeightFunction{Weight: w, Filter: filter}, nil
}

// Weight applies a static weight, usually gated by a filter.
func Weight(w float64, opts ...Option) *Directive {
	d := newDirective(weightShape{}, RaiseExc, opts)
	if d.weight == nil {
		d.weight = &w
	}
	return d
}
