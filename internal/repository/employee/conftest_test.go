package employee

import (
	"context"
	"testing"

	"github.com/kailas-cloud/empdex/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	ensureIndexFn    func(ctx context.Context, def *db.IndexDefinition) error
	getFn            func(ctx context.Context, index, id string) ([]byte, error)
	putFn            func(ctx context.Context, index, id string, source []byte) error
	deleteFn         func(ctx context.Context, index, id string) error
	searchFn         func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	aggregateTermsFn func(ctx context.Context, q *db.TermsQuery) ([]db.Bucket, error)
	aggregateRawFn   func(ctx context.Context, q *db.RawAggregationQuery) (map[string]any, error)
}

func (m *mockStore) EnsureIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.ensureIndexFn != nil {
		return m.ensureIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) Get(ctx context.Context, index, id string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, index, id)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Put(ctx context.Context, index, id string, source []byte) error {
	if m.putFn != nil {
		return m.putFn(ctx, index, id, source)
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, index, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, index, id)
	}
	return nil
}

func (m *mockStore) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) AggregateTerms(ctx context.Context, q *db.TermsQuery) ([]db.Bucket, error) {
	if m.aggregateTermsFn != nil {
		return m.aggregateTermsFn(ctx, q)
	}
	return []db.Bucket{}, nil
}

func (m *mockStore) AggregateRaw(ctx context.Context, q *db.RawAggregationQuery) (map[string]any, error) {
	if m.aggregateRawFn != nil {
		return m.aggregateRawFn(ctx, q)
	}
	return map[string]any{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
