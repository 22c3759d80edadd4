package esrest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/empdex/internal/db"
	"github.com/kailas-cloud/empdex/internal/db/eswire"
)

// Get fetches a document source with GET /{index}/_doc/{id}.
func (s *Store) Get(ctx context.Context, index, id string) ([]byte, error) {
	res, err := s.client.Get(index, id, s.client.Get.WithContext(ctx))
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	defer res.Body.Close()

	if isNotFound(res) {
		return nil, db.ErrKeyNotFound
	}
	if res.IsError() {
		return nil, eswire.ResponseError(db.OpGet, res.StatusCode, res.Body)
	}

	var doc struct {
		Found  bool            `json:"found"`
		Source json.RawMessage `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: fmt.Errorf("decode document: %w", err)}
	}
	if !doc.Found {
		return nil, db.ErrKeyNotFound
	}
	return []byte(doc.Source), nil
}

// Put indexes a document with PUT /{index}/_doc/{id}.
func (s *Store) Put(ctx context.Context, index, id string, source []byte) error {
	res, err := s.client.Index(
		index,
		bytes.NewReader(source),
		s.client.Index.WithDocumentID(id),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return &db.Error{Op: db.OpPut, Err: err}
	}
	return consume(db.OpPut, res)
}

// Delete removes a document with DELETE /{index}/_doc/{id}. 404 counts as success.
func (s *Store) Delete(ctx context.Context, index, id string) error {
	res, err := s.client.Delete(index, id, s.client.Delete.WithContext(ctx))
	if err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	if isNotFound(res) {
		res.Body.Close()
		return nil
	}
	return consume(db.OpDelete, res)
}
