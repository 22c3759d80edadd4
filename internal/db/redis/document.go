package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/empdex/internal/db"
)

// Get returns the JSON document stored under {index}:{id}.
func (s *Store) Get(ctx context.Context, index, id string) ([]byte, error) {
	cmd := s.b().Arbitrary("JSON.GET").Keys(docKey(index, id)).Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	if raw == "" {
		return nil, db.ErrKeyNotFound
	}
	return []byte(raw), nil
}

// Put replaces the whole document at {index}:{id}.
func (s *Store) Put(ctx context.Context, index, id string, source []byte) error {
	cmd := s.b().Arbitrary("JSON.SET").Keys(docKey(index, id)).Args("$", string(source)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpPut, Err: err}
	}
	return nil
}

// Delete removes {index}:{id}. DEL of a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, index, id string) error {
	cmd := s.b().Del().Key(docKey(index, id)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	return nil
}

// getMulti fetches documents by id in a single DoMulti round-trip, skipping absent ids.
func (s *Store) getMulti(ctx context.Context, index string, ids []string) ([]db.Hit, error) {
	if len(ids) == 0 {
		return []db.Hit{}, nil
	}

	cmds := make([]rueidis.Completed, len(ids))
	for i, id := range ids {
		cmds[i] = s.b().Arbitrary("JSON.GET").Keys(docKey(index, id)).Build()
	}

	hits := make([]db.Hit, 0, len(ids))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		raw, err := res.ToString()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("key %s: %w", ids[i], err)}
		}
		if raw == "" {
			continue
		}
		hits = append(hits, db.Hit{ID: ids[i], Source: []byte(raw)})
	}
	return hits, nil
}
