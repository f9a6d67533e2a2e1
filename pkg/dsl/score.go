package dsl

import (
	"errors"
	"fmt"
)

// ScoreFunction is one entry of a function_score expression.
type ScoreFunction interface {
	Source() (any, error)
}

// Decay function shapes.
const (
	DecayGauss  = "gauss"
	DecayExp    = "exp"
	DecayLinear = "linear"
)

// functionBody returns the shared part of every score function: the optional
// filter and weight.
func functionBody(filter Query, weight *float64) (map[string]any, error) {
	body := make(map[string]any, 3)
	if filter != nil {
		src, err := filter.Source()
		if err != nil {
			return nil, fmt.Errorf("score function filter: %w", err)
		}
		body["filter"] = src
	}
	if weight != nil {
		body["weight"] = *weight
	}
	return body, nil
}

// ScriptScoreFunction scores documents with a script.
type ScriptScoreFunction struct {
	Script Script
	Filter Query
	Weight *float64
}

// Source implements ScoreFunction.
func (f *ScriptScoreFunction) Source() (any, error) {
	body, err := functionBody(f.Filter, f.Weight)
	if err != nil {
		return nil, err
	}
	body["script_score"] = map[string]any{"script": f.Script.body()}
	return body, nil
}

// RandomScoreFunction scores documents randomly, optionally reproducible by seed.
type RandomScoreFunction struct {
	Seed   any
	Field  string
	Filter Query
	Weight *float64
}

// Source implements ScoreFunction.
func (f *RandomScoreFunction) Source() (any, error) {
	body, err := functionBody(f.Filter, f.Weight)
	if err != nil {
		return nil, err
	}
	inner := make(map[string]any, 2)
	if f.Seed != nil {
		inner["seed"] = f.Seed
	}
	if f.Field != "" {
		inner["field"] = f.Field
	}
	body["random_score"] = inner
	return body, nil
}

// FieldValueFactorFunction scores documents by a numeric field value.
type FieldValueFactorFunction struct {
	Field    string
	Factor   *float64
	Modifier string
	Missing  *float64
	Filter   Query
	Weight   *float64
}

// Source implements ScoreFunction.
func (f *FieldValueFactorFunction) Source() (any, error) {
	if f.Field == "" {
		return nil, errEmptyField
	}
	body, err := functionBody(f.Filter, f.Weight)
	if err != nil {
		return nil, err
	}
	inner := map[string]any{"field": f.Field}
	if f.Factor != nil {
		inner["factor"] = *f.Factor
	}
	if f.Modifier != "" {
		inner["modifier"] = f.Modifier
	}
	if f.Missing != nil {
		inner["missing"] = *f.Missing
	}
	body["field_value_factor"] = inner
	return body, nil
}

// DecayFunction scores documents by distance from an origin.
type DecayFunction struct {
	Type   string
	Field  string
	Origin any
	Scale  any
	Offset any
	Decay  *float64
	Filter Query
	Weight *float64
}

// Source implements ScoreFunction.
func (f *DecayFunction) Source() (any, error) {
	if f.Field == "" {
		return nil, errEmptyField
	}
	kind := f.Type
	switch kind {
	case "":
		kind = DecayGauss
	case DecayGauss, DecayExp, DecayLinear:
	default:
		return nil, fmt.Errorf("dsl: unknown decay type %q", f.Type)
	}
	body, err := functionBody(f.Filter, f.Weight)
	if err != nil {
		return nil, err
	}
	params := make(map[string]any, 4)
	if f.Origin != nil {
		params["origin"] = f.Origin
	}
	if f.Scale != nil {
		params["scale"] = f.Scale
	}
	if f.Offset != nil {
		params["offset"] = f.Offset
	}
	if f.Decay != nil {
		params["decay"] = *f.Decay
	}
	body[kind] = map[string]any{f.Field: params}
	return body, nil
}

// WeightFunction multiplies the score by a constant.
type WeightFunction struct {
	Weight float64
	Filter Query
}

// Source implements ScoreFunction.
func (f *WeightFunction) Source() (any, error) {
	w := f.Weight
	return functionBody(f.Filter, &w)
}

// FunctionScoreQuery combines a base query with score functions.
// A nil Query serializes as null.
type FunctionScoreQuery struct {
	Query     Query
	Functions []ScoreFunction
	ScoreMode string
	BoostMode string
	MaxBoost  *float64
	MinScore  *float64
}

// Source implements Query.
func (q *FunctionScoreQuery) Source() (any, error) {
	body := make(map[string]any, 6)
	if q.Query != nil {
		src, err := q.Query.Source()
		if err != nil {
			return nil, err
		}
		body["query"] = src
	} else {
		body["query"] = nil
	}
	if len(q.Functions) > 0 {
		fns := make([]any, 0, len(q.Functions))
		for _, fn := range q.Functions {
			if fn == nil {
				return nil, errors.New("dsl: nil score function")
			}
			src, err := fn.Source()
			if err != nil {
				return nil, err
			}
			fns = append(fns, src)
		}
		body["functions"] = fns
	}
	if q.ScoreMode != "" {
		body["score_mode"] = q.ScoreMode
	}
	if q.BoostMode != "" {
		body["boost_mode"] = q.BoostMode
	}
	if q.MaxBoost != nil {
		body["max_boost"] = *q.MaxBoost
	}
	if q.MinScore != nil {
		body["min_score"] = *q.MinScore
	}
	return map[string]any{"function_score": body}, nil
}
