package directive

import "fmt"

// Mode decides which bucket a directive's clause lands in.
type Mode string

// Match modes.
const (
	Include Mode = "include"
	Exclude Mode = "exclude"
	// IncludeIfExistAny also matches documents where none of the fields exist.
	IncludeIfExistAny Mode = "include_if_exist_any"
)

// Rule decides how several values or fields combine.
type Rule string

// Field match rules.
const (
	Any Rule = "any"
	All Rule = "all"
)

// WaterfallOp selects the slice of a waterfall ordering relative to the pivot.
type WaterfallOp string

// Waterfall operators.
const (
	GT  WaterfallOp = "gt"
	GTE WaterfallOp = "gte"
	LT  WaterfallOp = "lt"
	LTE WaterfallOp = "lte"
)

// AndOp selects the bucket for AND-combined clauses.
type AndOp string

// AND bucket operators.
const (
	Must   AndOp = "must"
	Filter AndOp = "filter"
)

// BaseOp decides whether included clauses are required or optional.
type BaseOp string

// Base match operators.
const (
	BaseAnd BaseOp = "and"
	BaseOr  BaseOp = "or"
)

// ParseMode parses a textual match mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Include, Exclude, IncludeIfExistAny:
		return m, nil
	case "":
		return Include, nil
	}
	return "", fmt.Errorf("unknown match mode %q", s)
}

// ParseRule parses a textual field match rule.
func ParseRule(s string) (Rule, error) {
	switch r := Rule(s); r {
	case Any, All:
		return r, nil
	case "":
		return Any, nil
	}
	return "", fmt.Errorf("unknown match rule %q", s)
}

// ParseWaterfallOp parses a textual waterfall operator.
func ParseWaterfallOp(s string) (WaterfallOp, error) {
	switch op := WaterfallOp(s); op {
	case GT, GTE, LT, LTE:
		return op, nil
	}
	return "", fmt.Errorf("unknown waterfall op %q", s)
}

// ParseAndOp parses a textual AND bucket operator. Empty means unset.
func ParseAndOp(s string) (AndOp, error) {
	switch op := AndOp(s); op {
	case Must, Filter, "":
		return op, nil
	}
	return "", fmt.Errorf("unknown and_query_op %q", s)
}

// ParseBaseOp parses a textual base match operator. Empty means unset.
func ParseBaseOp(s string) (BaseOp, error) {
	switch op := BaseOp(s); op {
	case BaseAnd, BaseOr, "":
		return op, nil
	}
	return "", fmt.Errorf("unknown base_match_op %q", s)
}
