package estyped

import (
	"bytes"
	"context"
	"net/http"

	"github.com/kailas-cloud/empdex/internal/db"
)

// Get fetches a document source by id.
func (s *Store) Get(ctx context.Context, index, id string) ([]byte, error) {
	res, err := s.client.Get(index, id).Do(ctx)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, db.ErrKeyNotFound
		}
		return nil, wrapErr(db.OpGet, err)
	}
	if !res.Found {
		return nil, db.ErrKeyNotFound
	}
	return []byte(res.Source_), nil
}

// Put indexes a complete document under id.
func (s *Store) Put(ctx context.Context, index, id string, source []byte) error {
	if _, err := s.client.Index(index).Id(id).Raw(bytes.NewReader(source)).Do(ctx); err != nil {
		return wrapErr(db.OpPut, err)
	}
	return nil
}

// Delete removes a document. An absent id is not an error.
func (s *Store) Delete(ctx context.Context, index, id string) error {
	if _, err := s.client.Delete(index, id).Do(ctx); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil
		}
		return wrapErr(db.OpDelete, err)
	}
	return nil
}
