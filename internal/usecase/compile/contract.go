package compile

import (
	"context"

	"github.com/kailas-cloud/querydsl/internal/catalog"
)

// Catalogs serves the active engine catalog.
type Catalogs interface {
	Snapshot() (*catalog.Catalog, uint64)
	Engine(name string) (*catalog.Engine, uint64, error)
	Engines() []*catalog.Engine
}

// Cache stores serialized compiled queries. Implementations swallow their
// own failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, data []byte)
}
