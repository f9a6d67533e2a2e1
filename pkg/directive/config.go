package directive

import "github.com/kailas-cloud/querydsl/pkg/value"

// Config is the composition and value-resolution policy of a directive.
// Zero fields are unset and leave the current setting untouched on Merge.
type Config struct {
	// Resolver builds the value resolver for one set of runtime params.
	Resolver value.Factory
	// AndOp is the bucket for AND-combined clauses.
	AndOp AndOp
	// BaseOp decides whether included clauses are required (BaseAnd) or optional (BaseOr).
	BaseOp BaseOp
}

// DefaultConfig resolves "match_params." key paths and places included
// clauses in the filter bucket.
func DefaultConfig() Config {
	return Config{
		Resolver: value.Prefixed(value.DefaultPrefix),
		AndOp:    Filter,
		BaseOp:   BaseAnd,
	}
}

// Merge returns c with every field set in other overriding it.
func (c Config) Merge(other Config) Config {
	if other.Resolver != nil {
		c.Resolver = other.Resolver
	}
	if other.AndOp != "" {
		c.AndOp = other.AndOp
	}
	if other.BaseOp != "" {
		c.BaseOp = other.BaseOp
	}
	return c
}
