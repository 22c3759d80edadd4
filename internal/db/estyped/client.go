// Package estyped implements db.Store over the typed go-elasticsearch API.
package estyped

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"

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

// Store implements db.Store with typed requests.
type Store struct {
	client *elasticsearch.TypedClient
}

// NewStore creates a typed Elasticsearch store.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses:    cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		CACert:       cfg.CACert,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create typed client: %w", err)
	}

	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.client.Ping().IsSuccess(ctx)
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	if !ok {
		return &db.Error{Op: db.OpPing, Err: errors.New("cluster is not available")}
	}
	return nil
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

// wrapErr converts a typed API error into a *db.Error, keeping the
// "elasticsearch error: <status> - <body>" shape of the low-level driver.
func wrapErr(op string, err error) error {
	var esErr *types.ElasticsearchError
	if errors.As(err, &esErr) {
		cause := esErr.ErrorCause.Type
		if esErr.ErrorCause.Reason != nil {
			cause += ": " + *esErr.ErrorCause.Reason
		}
		e := fmt.Errorf("elasticsearch error: %d %s - %s", esErr.Status, http.StatusText(esErr.Status), cause)
		if esErr.Status == http.StatusBadRequest {
			e = fmt.Errorf("%w: %w", db.ErrInvalidRequest, e)
		}
		return &db.Error{Op: op, Err: e}
	}
	return &db.Error{Op: op, Err: err}
}

func isStatus(err error, status int) bool {
	var esErr *types.ElasticsearchError
	return errors.As(err, &esErr) && esErr.Status == status
}

// checkResponse closes an unsuccessful raw response and reports it as an error.
func checkResponse(op string, res *http.Response) error {
	if res.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	defer res.Body.Close()
	return eswire.ResponseError(op, res.StatusCode, res.Body)
}
