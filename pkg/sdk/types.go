package querydsl

import "encoding/json"

// Engine kinds.
const (
	KindBool          = "bool"
	KindFunctionScore = "function_score"
)

// Engine describes one catalog engine.
type Engine struct {
	Name       string
	Kind       string
	Attributes []string
}

// Request asks for the query of one engine.
type Request struct {
	Engine string
	Params map[string]any
	// Base is the query wrapped by a function_score engine, as JSON.
	Base json.RawMessage
}

// Result is a compiled query.
type Result struct {
	Engine   string
	Kind     string
	Revision uint64 // catalog revision the query was compiled from
	Query    json.RawMessage
	Cached   bool
}
