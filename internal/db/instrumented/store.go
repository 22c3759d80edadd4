// Package instrumented wraps a db.Store with Prometheus request metrics.
package instrumented

import (
	"context"
	"errors"
	"time"

	"github.com/kailas-cloud/empdex/internal/db"
	"github.com/kailas-cloud/empdex/internal/metrics"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// ObserveFunc records a single store call.
type ObserveFunc func(driver, op, status string, elapsed time.Duration)

// Store decorates a db.Store, recording count and latency per operation.
type Store struct {
	next    db.Store
	driver  string
	observe ObserveFunc
}

// Option configures the decorator.
type Option func(*Store)

// WithObserver overrides the metrics sink.
func WithObserver(fn ObserveFunc) Option {
	return func(s *Store) { s.observe = fn }
}

// New wraps next. driver becomes the "driver" label.
func New(next db.Store, driver string, opts ...Option) *Store {
	s := &Store{next: next, driver: driver, observe: metrics.ObserveSearchEngine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) record(op string, start time.Time, err error) {
	s.observe(s.driver, op, status(err), time.Since(start))
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, db.ErrKeyNotFound):
		return "not_found"
	case errors.Is(err, db.ErrInvalidRequest), errors.Is(err, db.ErrUnsupportedType):
		return "rejected"
	default:
		return "error"
	}
}

func (s *Store) Ping(ctx context.Context) (err error) {
	defer func(start time.Time) { s.record(db.OpPing, start, err) }(time.Now())
	return s.next.Ping(ctx)
}

func (s *Store) EnsureIndex(ctx context.Context, def *db.IndexDefinition) (err error) {
	defer func(start time.Time) { s.record(db.OpEnsureIndex, start, err) }(time.Now())
	return s.next.EnsureIndex(ctx, def)
}

func (s *Store) Get(ctx context.Context, index, id string) (_ []byte, err error) {
	defer func(start time.Time) { s.record(db.OpGet, start, err) }(time.Now())
	return s.next.Get(ctx, index, id)
}

func (s *Store) Put(ctx context.Context, index, id string, source []byte) (err error) {
	defer func(start time.Time) { s.record(db.OpPut, start, err) }(time.Now())
	return s.next.Put(ctx, index, id, source)
}

func (s *Store) Delete(ctx context.Context, index, id string) (err error) {
	defer func(start time.Time) { s.record(db.OpDelete, start, err) }(time.Now())
	return s.next.Delete(ctx, index, id)
}

func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (_ *db.SearchResult, err error) {
	defer func(start time.Time) { s.record(db.OpSearch, start, err) }(time.Now())
	return s.next.Search(ctx, q)
}

func (s *Store) AggregateTerms(ctx context.Context, q *db.TermsQuery) (_ []db.Bucket, err error) {
	defer func(start time.Time) { s.record(db.OpAggregate, start, err) }(time.Now())
	return s.next.AggregateTerms(ctx, q)
}

func (s *Store) AggregateRaw(ctx context.Context, q *db.RawAggregationQuery) (_ map[string]any, err error) {
	defer func(start time.Time) { s.record(db.OpRawAgg, start, err) }(time.Now())
	return s.next.AggregateRaw(ctx, q)
}

// WaitForReady is not recorded: its pings would skew the ping series during startup.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return s.next.WaitForReady(ctx, timeout)
}

func (s *Store) Close() { s.next.Close() }
