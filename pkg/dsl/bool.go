package dsl

// BoolQuery combines clauses with must/should/must_not/filter semantics.
type BoolQuery struct {
	Must    []Query
	Should  []Query
	MustNot []Query
	Filter  []Query
	Name    string
}

// IsEmpty reports whether the query has no clauses.
func (q *BoolQuery) IsEmpty() bool {
	return len(q.Must) == 0 && len(q.Should) == 0 && len(q.MustNot) == 0 && len(q.Filter) == 0
}

// Source implements Query. Empty buckets are omitted.
func (q *BoolQuery) Source() (any, error) {
	body := make(map[string]any)
	buckets := []struct {
		key string
		qs  []Query
	}{
		{"must", q.Must},
		{"should", q.Should},
		{"must_not", q.MustNot},
		{"filter", q.Filter},
	}
	for _, b := range buckets {
		if len(b.qs) == 0 {
			continue
		}
		src, err := sourceAll(b.qs)
		if err != nil {
			return nil, err
		}
		body[b.key] = src
	}
	if q.Name != "" {
		body["_name"] = q.Name
	}
	return map[string]any{"bool": body}, nil
}

// BoolBuilder accumulates clauses into buckets and produces a BoolQuery.
// It is owned by a single compilation and is not safe for concurrent use.
type BoolBuilder struct {
	must    []Query
	should  []Query
	mustNot []Query
	filter  []Query
	name    string
}

// NewBoolBuilder returns an empty accumulator.
func NewBoolBuilder() *BoolBuilder {
	return &BoolBuilder{}
}

// Must appends clauses to the must bucket.
func (b *BoolBuilder) Must(qs ...Query) *BoolBuilder {
	b.must = append(b.must, qs...)
	return b
}

// Should appends clauses to the should bucket.
func (b *BoolBuilder) Should(qs ...Query) *BoolBuilder {
	b.should = append(b.should, qs...)
	return b
}

// MustNot appends clauses to the must_not bucket.
func (b *BoolBuilder) MustNot(qs ...Query) *BoolBuilder {
	b.mustNot = append(b.mustNot, qs...)
	return b
}

// Filter appends clauses to the filter bucket.
func (b *BoolBuilder) Filter(qs ...Query) *BoolBuilder {
	b.filter = append(b.filter, qs...)
	return b
}

// Name sets the _name tag of the built query.
func (b *BoolBuilder) Name(name string) *BoolBuilder {
	b.name = name
	return b
}

// Len returns the number of accumulated clauses across all buckets.
func (b *BoolBuilder) Len() int {
	return len(b.must) + len(b.should) + len(b.mustNot) + len(b.filter)
}

// IsEmpty reports whether no clause has been added.
func (b *BoolBuilder) IsEmpty() bool {
	return b.Len() == 0
}

// Build returns the accumulated BoolQuery. The builder can keep accumulating
// afterwards without affecting the returned value.
func (b *BoolBuilder) Build() *BoolQuery {
	return &BoolQuery{
		Must:    cloneQueries(b.must),
		Should:  cloneQueries(b.should),
		MustNot: cloneQueries(b.mustNot),
		Filter:  cloneQueries(b.filter),
		Name:    b.name,
	}
}

func cloneQueries(qs []Query) []Query {
	if len(qs) == 0 {
		return nil
	}
	out := make([]Query, len(qs))
	copy(out, qs)
	return out
}
