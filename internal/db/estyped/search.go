package estyped

import (
	"bytes"
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/goccy/go-json"

	"github.com/kailas-cloud/empdex/internal/db"
	"github.com/kailas-cloud/empdex/internal/db/eswire"
)

// Search runs a typed search request. The response is decoded from the raw
// body so that hits keep their original _source bytes.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	query, err := buildQuery(q.Query)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	size := q.Size
	res, err := s.client.Search().
		Index(q.Index).
		Request(&search.Request{Query: query, Size: &size}).
		Perform(ctx)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	if err := checkResponse(db.OpSearch, res); err != nil {
		return nil, err
	}
	defer res.Body.Close()

	result, err := eswire.DecodeSearch(res.Body)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return result, nil
}

// AggregateTerms runs a bool-filtered terms aggregation without hits.
func (s *Store) AggregateTerms(ctx context.Context, q *db.TermsQuery) ([]db.Bucket, error) {
	filter, err := buildQuery(q.Filter)
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}

	noHits := 0
	field := q.Field
	size := q.Size
	req := &search.Request{
		Size:  &noHits,
		Query: &types.Query{Bool: &types.BoolQuery{Filter: []types.Query{*filter}}},
		Aggregations: map[string]types.Aggregations{
			q.Name: {Terms: &types.TermsAggregation{Field: &field, Size: &size}},
		},
	}

	res, err := s.client.Search().Index(q.Index).Request(req).Perform(ctx)
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}
	if err := checkResponse(db.OpAggregate, res); err != nil {
		return nil, err
	}
	defer res.Body.Close()

	buckets, err := eswire.DecodeBuckets(res.Body, q.Name)
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}
	return buckets, nil
}

// AggregateRaw sends {Name: {Type: {field: Field}}} as a raw body: the
// aggregation type is caller-defined, so it cannot be expressed as a typed struct.
func (s *Store) AggregateRaw(ctx context.Context, q *db.RawAggregationQuery) (map[string]any, error) {
	body, err := json.Marshal(map[string]any{
		"size": 0,
		"aggs": map[string]any{
			q.Name: map[string]any{q.Type: map[string]any{"field": q.Field}},
		},
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpRawAgg, Err: fmt.Errorf("encode request: %w", err)}
	}

	res, err := s.client.Search().Index(q.Index).Raw(bytes.NewReader(body)).Perform(ctx)
	if err != nil {
		return nil, &db.Error{Op: db.OpRawAgg, Err: err}
	}
	if err := checkResponse(db.OpRawAgg, res); err != nil {
		return nil, err
	}
	defer res.Body.Close()

	out, err := eswire.DecodeRaw(res.Body)
	if err != nil {
		return nil, &db.Error{Op: db.OpRawAgg, Err: err}
	}
	return out, nil
}
