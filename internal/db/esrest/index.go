package esrest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/empdex/internal/db"
	"github.com/kailas-cloud/empdex/internal/db/eswire"
)

// EnsureIndex creates the index with an explicit mapping unless it already exists.
func (s *Store) EnsureIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpEnsureIndex, Err: fmt.Errorf("%w: %w", db.ErrInvalidRequest, err)}
	}

	exists, err := s.client.Indices.Exists([]string{def.Name}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return &db.Error{Op: db.OpEnsureIndex, Err: err}
	}
	exists.Body.Close()
	switch exists.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return eswire.ResponseError(db.OpEnsureIndex, exists.StatusCode, nil)
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body{"mappings": body{"properties": mappingProperties(def)}}); err != nil {
		return &db.Error{Op: db.OpEnsureIndex, Err: fmt.Errorf("encode mapping: %w", err)}
	}

	res, err := s.client.Indices.Create(
		def.Name,
		s.client.Indices.Create.WithBody(&buf),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return &db.Error{Op: db.OpEnsureIndex, Err: err}
	}
	err = consume(db.OpEnsureIndex, res)
	if err != nil && strings.Contains(err.Error(), "resource_already_exists_exception") {
		return nil
	}
	return err
}

// mappingProperties nests dotted field names into object properties.
func mappingProperties(def *db.IndexDefinition) body {
	root := body{}
	for i := range def.Fields {
		f := &def.Fields[i]
		path := f.Path()
		props := root
		for _, seg := range path[:len(path)-1] {
			obj, ok := props[seg].(body)
			if !ok {
				obj = body{"type": "object", "properties": body{}}
				props[seg] = obj
			}
			props = obj["properties"].(body)
		}
		props[path[len(path)-1]] = fieldMapping(f)
	}
	return root
}

func fieldMapping(f *db.IndexField) body {
	switch f.Type {
	case db.FieldText:
		m := body{"type": "text"}
		if f.Keyword {
			m["fields"] = body{"keyword": body{"type": "keyword", "ignore_above": 256}}
		}
		return m
	case db.FieldKeyword:
		return body{"type": "keyword"}
	case db.FieldDate:
		return body{"type": "date", "format": "strict_date_optional_time||epoch_millis"}
	case db.FieldInteger:
		return body{"type": "integer"}
	case db.FieldFloat:
		return body{"type": "double"}
	case db.FieldBoolean:
		return body{"type": "boolean"}
	default:
		return body{"type": "keyword"}
	}
}
