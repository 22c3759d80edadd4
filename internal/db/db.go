package db

import (
	"context"
	"time"
)

// Store is the search engine facade every driver implements.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	IndexManager
	DocumentStore
	Searcher
	Aggregator
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks search engine connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexManager provides index lifecycle operations.
type IndexManager interface {
	// EnsureIndex creates the index with the given mapping unless it already exists.
	EnsureIndex(ctx context.Context, def *IndexDefinition) error
}

// DocumentStore provides key-addressed document operations.
type DocumentStore interface {
	// Get returns the stored source of a document or ErrKeyNotFound.
	Get(ctx context.Context, index, id string) ([]byte, error)
	// Put stores source under id, replacing any previous document.
	Put(ctx context.Context, index, id string, source []byte) error
	// Delete removes a document. A missing id is not an error.
	Delete(ctx context.Context, index, id string) error
}

// Searcher runs queries against an index.
type Searcher interface {
	Search(ctx context.Context, q *SearchQuery) (*SearchResult, error)
}

// Aggregator runs aggregations against an index.
type Aggregator interface {
	AggregateTerms(ctx context.Context, q *TermsQuery) ([]Bucket, error)
	AggregateRaw(ctx context.Context, q *RawAggregationQuery) (map[string]any, error)
}
