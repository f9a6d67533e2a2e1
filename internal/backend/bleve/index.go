package bleve

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"

	"github.com/kailas-cloud/querydsl/pkg/dsl"
)

// Analyzer names registered by bleve.
const (
	KeywordAnalyzerName  = "keyword"
	StandardAnalyzerName = "standard"
)

// IDField is the document key used as the bleve document id.
const IDField = "id"

// DefaultSize is the hit limit when Search gets size <= 0.
const DefaultSize = 10

// Hit is one search result.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Index is an in-memory bleve index of sample documents.
type Index struct {
	index  bleve.Index
	logger *zap.Logger
}

// NewIndexMapping indexes string fields verbatim, the way term queries
// expect keyword fields. textFields get the standard analyzer for match
// queries.
func NewIndexMapping(textFields ...string) *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = KeywordAnalyzerName
	for _, f := range textFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = StandardAnalyzerName
		m.DefaultMapping.AddFieldMappingsAt(f, fm)
	}
	return m
}

// NewMemIndex creates an empty in-memory index.
func NewMemIndex(m mapping.IndexMapping, logger *zap.Logger) (*Index, error) {
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: idx, logger: logger}, nil
}

// Load indexes docs in one batch. A document's id comes from its IDField
// value, falling back to its position.
func (i *Index) Load(docs []map[string]any) error {
	batch := i.index.NewBatch()
	for n, doc := range docs {
		id := strconv.Itoa(n)
		if v, ok := doc[IDField]; ok {
			id = fmt.Sprint(v)
		}
		if err := batch.Index(id, doc); err != nil {
			return fmt.Errorf("index document %s: %w", id, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	i.logger.Debug("documents indexed", zap.Int("count", len(docs)))
	return nil
}

// Search runs a compiled query and returns the best size hits.
func (i *Index) Search(ctx context.Context, q dsl.Query, size int) ([]Hit, uint64, error) {
	bq, err := Translate(q)
	if err != nil {
		return nil, 0, err
	}
	if size <= 0 {
		size = DefaultSize
	}
	req := bleve.NewSearchRequest(bq)
	req.Size = size
	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("search failed: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score})
	}
	return hits, res.Total, nil
}

// Close releases the index.
func (i *Index) Close() error {
	return i.index.Close()
}
