package health

import "context"

// CachePinger checks the shared cache.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EngineLister reports the engines of the active catalog.
type EngineLister interface {
	EngineCount() int
}
