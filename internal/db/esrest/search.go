package esrest

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/empdex/internal/db"
	"github.com/kailas-cloud/empdex/internal/db/eswire"
)

// Search runs POST /{index}/_search with a hand-built query body.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	query, err := buildQuery(q.Query)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	res, err := s.search(ctx, db.OpSearch, q.Index, body{"size": q.Size, "query": query})
	if err != nil {
		return nil, err
	}
	defer res.Close()

	result, err := eswire.DecodeSearch(res)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return result, nil
}

// AggregateTerms runs a bool-filtered terms aggregation with size 0 hits.
func (s *Store) AggregateTerms(ctx context.Context, q *db.TermsQuery) ([]db.Bucket, error) {
	query, err := buildBoolFilterQuery(q.Filter)
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}

	req := body{
		"size":  0,
		"query": query,
		"aggs": body{
			q.Name: body{"terms": body{"field": q.Field, "size": q.Size}},
		},
	}

	res, err := s.search(ctx, db.OpAggregate, q.Index, req)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	buckets, err := eswire.DecodeBuckets(res, q.Name)
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}
	return buckets, nil
}

// AggregateRaw runs {Name: {Type: {field: Field}}} and returns the whole response document.
func (s *Store) AggregateRaw(ctx context.Context, q *db.RawAggregationQuery) (map[string]any, error) {
	req := body{
		"size": 0,
		"aggs": body{
			q.Name: body{q.Type: body{"field": q.Field}},
		},
	}

	res, err := s.search(ctx, db.OpRawAgg, q.Index, req)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	out, err := eswire.DecodeRaw(res)
	if err != nil {
		return nil, &db.Error{Op: db.OpRawAgg, Err: err}
	}
	return out, nil
}

// search posts a body to /{index}/_search and returns the successful response body.
func (s *Store) search(ctx context.Context, op, index string, req body) (io.ReadCloser, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return nil, &db.Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, &db.Error{Op: op, Err: err}
	}
	if res.IsError() {
		defer res.Body.Close()
		return nil, eswire.ResponseError(op, res.StatusCode, res.Body)
	}
	return res.Body, nil
}
