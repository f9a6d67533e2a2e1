package score_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/querydsl/pkg/directive"
	"github.com/kailas-cloud/querydsl/pkg/dsl"
	"github.com/kailas-cloud/querydsl/pkg/dsl/dsltest"
	"github.com/kailas-cloud/querydsl/pkg/score"
)

const engineName = "ScoreTestEngine"

var scoreMapper = directive.MapValueMapper{
	"test_score": {Fields: directive.Fields("field"), Values: []any{"test"}},
	"experience": {Fields: directive.Fields("experience"), Values: []any{"senior"}},
	"skills":     {Fields: directive.Fields("skills"), Values: []any{"python", "elasticsearch"}},
	"optional":   {Fields: directive.Fields("field"), Values: []any{"*match_params.optional"}},
}

func generate(t *testing.T, d *score.Directive, attr string, params map[string]any) dsl.ScoreFunction {
	t.Helper()
	w, err := score.Bind(d, score.Binding{Attr: attr, Mapper: scoreMapper, Params: params, Engine: engineName})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	fn, err := w.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return fn
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name   string
		d      *score.Directive
		attr   string
		params map[string]any
		want   string
	}{
		{
			name: "script with mapped filter",
			d: score.Script("doc['field'].value * params.multiplier",
				score.ScriptParams(map[string]any{"multiplier": 2}),
				score.WithFilter(directive.Const(directive.Any)),
				score.WithWeight(2)),
			attr: "test_score",
			want: `{"filter":{"bool":{"filter":[{"term":{"field":{"value":"test"}}}]}},"weight":2,
				"script_score":{"script":{"source":"doc['field'].value * params.multiplier","params":{"multiplier":2}}}}`,
		},
		{
			name: "script without filter",
			d:    score.Script("doc['field'].value", score.WithWeight(1)),
			attr: "unmapped",
			want: `{"weight":1,"script_score":{"script":{"source":"doc['field'].value"}}}`,
		},
		{
			name: "script params resolved at runtime",
			d: score.Script("params.boost * _score", score.Lang("painless"),
				score.ScriptParams(map[string]any{"boost": "match_params.boost"})),
			params: map[string]any{"boost": 1.5},
			want:   `{"script_score":{"script":{"source":"params.boost * _score","params":{"boost":1.5},"lang":"painless"}}}`,
		},
		{
			name:   "nullable script with missing mandatory param",
			d:      score.Script("params.x", score.MandatoryParams("x"), score.Nullable(), score.ScriptParams(map[string]any{"x": "match_params.x"})),
			params: map[string]any{},
		},
		{
			name:   "random with seed from params",
			d:      score.Random("match_params.user_id", "_seq_no", score.WithWeight(0.5)),
			params: map[string]any{"user_id": 42},
			want:   `{"random_score":{"seed":42,"field":"_seq_no"},"weight":0.5}`,
		},
		{
			name: "field value factor",
			d:    score.FieldValueFactor("popularity", score.Factor(1.2), score.Modifier("log1p"), score.Missing(1)),
			want: `{"field_value_factor":{"field":"popularity","factor":1.2,"modifier":"log1p","missing":1}}`,
		},
		{
			name: "decay",
			d: score.Decay("published_at", "match_params.now", "10d",
				score.DecayType(dsl.DecayExp), score.Offset("1d"), score.DecayRate(0.5)),
			params: map[string]any{"now": "2024-01-01"},
			want:   `{"exp":{"published_at":{"origin":"2024-01-01","scale":"10d","offset":"1d","decay":0.5}}}`,
		},
		{
			name: "weight with filter",
			d:    score.Weight(3, score.WithFilter(directive.Const(directive.Any))),
			attr: "test_score",
			want: `{"filter":{"bool":{"filter":[{"term":{"field":{"value":"test"}}}]}},"weight":3}`,
		},
		{
			name:   "disabled by empty filter",
			d:      score.Weight(3, score.OnNullFilter(score.DisableFunction), score.WithFilter(directive.Const(directive.Any, directive.Nullable()))),
			attr:   "optional",
			params: map[string]any{},
		},
		{
			name:   "allowed without filter",
			d:      score.Weight(3, score.OnNullFilter(score.Allow), score.WithFilter(directive.Const(directive.Any, directive.Nullable()))),
			attr:   "optional",
			params: map[string]any{},
			want:   `{"weight":3}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := generate(t, tt.d, tt.attr, tt.params)
			if tt.want == "" {
				if fn != nil {
					t.Fatalf("expected no function, got %T", fn)
				}
				return
			}
			if fn == nil {
				t.Fatal("expected a function, got none")
			}
			dsltest.AssertFunctionJSON(t, fn, tt.want)
		})
	}
}

func TestGenerate_NullFilterRaises(t *testing.T) {
	d := score.Weight(3, score.WithFilter(directive.Const(directive.Any, directive.Nullable())))
	w, err := score.Bind(d, score.Binding{Attr: "optional", Mapper: scoreMapper, Engine: engineName})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, err := w.Generate(); !errors.Is(err, directive.ErrValidation) {
		t.Fatalf("error: got %v, want validation error", err)
	}
}

func TestGenerate_MissingMandatoryParam(t *testing.T) {
	d := score.Script("params.x", score.MandatoryParams("x"))
	w, err := score.Bind(d, score.Binding{Params: map[string]any{}, Engine: engineName})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	_, err = w.Generate()
	if !errors.Is(err, directive.ErrValidation) || !strings.Contains(err.Error(), "[x]") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFilterDSL_Unresolved(t *testing.T) {
	d := score.Script("doc['f'].value", score.WithFilter(directive.Const(directive.Any)))
	_, err := d.FilterDSL()
	if !errors.Is(err, directive.ErrBinding) {
		t.Fatalf("error: got %v, want binding error", err)
	}
	if !strings.Contains(err.Error(), "must be resolved externally") {
		t.Errorf("unexpected message: %v", err)
	}
	if _, err := d.Generate(); !errors.Is(err, directive.ErrBinding) {
		t.Errorf("Generate: got %v, want binding error", err)
	}
}

func TestParseNullFilterAction(t *testing.T) {
	tests := []struct {
		in      string
		want    score.NullFilterAction
		wantErr bool
	}{
		{"", score.RaiseExc, false},
		{"allow", score.Allow, false},
		{"disable_function", score.DisableFunction, false},
		{"ignore", "", true},
	}
	for _, tt := range tests {
		got, err := score.ParseNullFilterAction(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseNullFilterAction(%q) = %q, %v", tt.in, got, err)
		}
	}
}

// scorer is a CustomScorer built from a function.
type scorer struct {
	engine string
	build  func(ctx score.ScoreContext) *score.Directive
}

func (s scorer) AllowedEngine() string { return s.engine }

func (s scorer) ScoreDirective(ctx score.ScoreContext) *score.Directive { return s.build(ctx) }

type matcher struct {
	tree func(params map[string]any) *directive.BoolDirective
}

func (matcher) AllowedEngine() string { return engineName }

func (m matcher) Directive(params map[string]any) *directive.BoolDirective { return m.tree(params) }

func enabled(params map[string]any, key string) bool {
	v, _ := params[key].(bool)
	return v
}

func weighted(ctx score.ScoreContext, opts ...score.Option) []score.Option {
	if ctx.Weight != nil {
		opts = append(opts, score.WithWeight(*ctx.Weight))
	}
	return opts
}

var simpleScorer = scorer{engineName, func(ctx score.ScoreContext) *score.Directive {
	if !enabled(ctx.Params, "enable_score") {
		return nil
	}
	return score.Script("doc['field'].value", weighted(ctx, score.WithFilter(directive.Const(directive.Any)))...)
}}

var filteredScorer = scorer{engineName, func(ctx score.ScoreContext) *score.Directive {
	if !enabled(ctx.Params, "enable_score") {
		return nil
	}
	filter := directive.MustCustom(matcher{func(params map[string]any) *directive.BoolDirective {
		if !enabled(params, "enable_filter") {
			return nil
		}
		return directive.And(
			directive.Named("experience", directive.Const(directive.Any)),
			directive.Named("skills", directive.Const(directive.All)),
		)
	}})
	return score.Script("doc['field'].value", weighted(ctx, score.WithFilter(filter), score.OnNullFilter(ctx.NullFilterAction))...)
}}

func TestCustomScore(t *testing.T) {
	tests := []struct {
		name   string
		d      *score.Directive
		attr   string
		params map[string]any
		want   string
	}{
		{
			name:   "delegate with mapped filter",
			d:      score.MustCustom(simpleScorer, score.WithWeight(2)),
			attr:   "test_score",
			params: map[string]any{"enable_score": true},
			want: `{"filter":{"bool":{"filter":[{"term":{"field":{"value":"test"}}}]}},"weight":2,
				"script_score":{"script":{"source":"doc['field'].value"}}}`,
		},
		{
			name:   "no delegate",
			d:      score.MustCustom(simpleScorer, score.WithWeight(2)),
			attr:   "test_score",
			params: map[string]any{"enable_score": false},
		},
		{
			name:   "custom match filter",
			d:      score.MustCustom(filteredScorer, score.WithWeight(2)),
			attr:   "test_score",
			params: map[string]any{"enable_score": true, "enable_filter": true},
			want: `{"filter":{"bool":{"filter":[{"bool":{"filter":[
				{"bool":{"filter":[{"term":{"experience":{"value":"senior"}}}]}},
				{"bool":{"filter":[{"bool":{"filter":[
					{"term":{"skills":{"value":"python"}}},
					{"term":{"skills":{"value":"elasticsearch"}}}]}}]}}]}}]}},
				"weight":2,"script_score":{"script":{"source":"doc['field'].value"}}}`,
		},
		{
			name:   "custom match filter disabled, allow",
			d:      score.MustCustom(filteredScorer, score.WithWeight(2), score.OnNullFilter(score.Allow)),
			attr:   "test_score",
			params: map[string]any{"enable_score": true, "enable_filter": false},
			want:   `{"weight":2,"script_score":{"script":{"source":"doc['field'].value"}}}`,
		},
		{
			name:   "score disabled",
			d:      score.MustCustom(filteredScorer, score.WithWeight(2), score.OnNullFilter(score.Allow)),
			attr:   "test_score",
			params: map[string]any{"enable_score": false, "enable_filter": true},
		},
		{
			name:   "custom match filter disabled, disable function",
			d:      score.MustCustom(filteredScorer, score.WithWeight(2), score.OnNullFilter(score.DisableFunction)),
			attr:   "test_score",
			params: map[string]any{"enable_score": true, "enable_filter": false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := generate(t, tt.d, tt.attr, tt.params)
			if tt.want == "" {
				if fn != nil {
					t.Fatalf("expected no function, got %T", fn)
				}
				return
			}
			if fn == nil {
				t.Fatal("expected a function, got none")
			}
			dsltest.AssertFunctionJSON(t, fn, tt.want)
		})
	}
}

func TestCustomScore_WrongEngine(t *testing.T) {
	d := score.MustCustom(simpleScorer)
	_, err := score.Bind(d, score.Binding{Params: map[string]any{"enable_score": true}, Engine: "InvalidEngine"})
	if !errors.Is(err, directive.ErrEngineMismatch) {
		t.Fatalf("error: got %v, want engine mismatch", err)
	}
	if !strings.Contains(err.Error(), "is not allowed for") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestCustomScore_RequiresEngine(t *testing.T) {
	_, err := score.NewCustom(scorer{build: func(score.ScoreContext) *score.Directive { return nil }})
	if !errors.Is(err, directive.ErrConfiguration) {
		t.Fatalf("error: got %v, want configuration error", err)
	}
}

func TestCustomScore_UnresolvedFilter(t *testing.T) {
	d := score.MustCustom(simpleScorer, score.WithWeight(1)).WithParams(map[string]any{"enable_score": true})
	if _, err := d.FilterDSL(); !errors.Is(err, directive.ErrBinding) {
		t.Fatalf("error: got %v, want binding error", err)
	}
}

func TestCustomScore_DelegateRebuiltPerParams(t *testing.T) {
	calls := 0
	d := score.MustCustom(scorer{engineName, func(ctx score.ScoreContext) *score.Directive {
		calls++
		return score.Weight(ctx.Params["w"].(float64))
	}})

	for _, w := range []float64{1, 2} {
		fn := generate(t, d, "", map[string]any{"w": w})
		src, err := fn.Source()
		if err != nil {
			t.Fatalf("Source: %v", err)
		}
		if got := src.(map[string]any)["weight"]; got != w {
			t.Errorf("weight: got %v, want %v", got, w)
		}
	}
	if calls != 2 {
		t.Errorf("delegate built %d times, want 2", calls)
	}
}

func TestDirective_Immutable(t *testing.T) {
	proto := score.Script("doc['field'].value", score.WithFilter(directive.Const(directive.Any)))
	if _, err := score.Bind(proto, score.Binding{Attr: "test_score", Mapper: scoreMapper, Engine: engineName}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, err := proto.FilterDSL(); !errors.Is(err, directive.ErrBinding) {
		t.Errorf("prototype filter was resolved by Bind: %v", err)
	}
}
