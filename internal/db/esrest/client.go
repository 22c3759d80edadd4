// Package esrest implements db.Store over the low-level Elasticsearch REST API:
// every request body is a hand-built JSON document sent through esapi.
package esrest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/empdex/internal/db"
	"github.com/kailas-cloud/empdex/internal/db/eswire"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for an Elasticsearch cluster.
type Config struct {
	Addrs    []string
	Username string
	Password string
	CACert   []byte
}

// Store implements db.Store with raw REST requests.
type Store struct {
	client *elasticsearch.Client
}

// NewStore creates a low-level Elasticsearch store.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		CACert:       cfg.CACert,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return consume(db.OpPing, res)
}

// Close is a no-op: the HTTP transport keeps only idle connections.
func (s *Store) Close() {}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for elasticsearch: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// consume closes the response body and converts an error status into a *db.Error.
func consume(op string, res *esapi.Response) error {
	defer res.Body.Close()
	if res.IsError() {
		return eswire.ResponseError(op, res.StatusCode, res.Body)
	}
	return nil
}

func isNotFound(res *esapi.Response) bool {
	return res.StatusCode == http.StatusNotFound
}
