package estyped

import (
	"context"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/kailas-cloud/empdex/internal/db"
)

// EnsureIndex creates the index with an explicit typed mapping unless it already exists.
func (s *Store) EnsureIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpEnsureIndex, Err: fmt.Errorf("%w: %w", db.ErrInvalidRequest, err)}
	}

	exists, err := s.client.Indices.Exists(def.Name).IsSuccess(ctx)
	if err != nil {
		return &db.Error{Op: db.OpEnsureIndex, Err: err}
	}
	if exists {
		return nil
	}

	_, err = s.client.Indices.Create(def.Name).
		Mappings(&types.TypeMapping{Properties: mappingProperties(def)}).
		Do(ctx)
	if err != nil {
		var esErr *types.ElasticsearchError
		if errors.As(err, &esErr) && esErr.ErrorCause.Type == "resource_already_exists_exception" {
			return nil
		}
		return wrapErr(db.OpEnsureIndex, err)
	}
	return nil
}

// mappingProperties nests dotted field names into object properties.
func mappingProperties(def *db.IndexDefinition) map[string]types.Property {
	root := map[string]types.Property{}
	for i := range def.Fields {
		f := &def.Fields[i]
		path := f.Path()
		props := root
		for _, seg := range path[:len(path)-1] {
			obj, ok := props[seg].(*types.ObjectProperty)
			if !ok {
				obj = types.NewObjectProperty()
				props[seg] = obj
			}
			props = obj.Properties
		}
		props[path[len(path)-1]] = fieldProperty(f)
	}
	return root
}

func fieldProperty(f *db.IndexField) types.Property {
	switch f.Type {
	case db.FieldText:
		p := types.NewTextProperty()
		if f.Keyword {
			kw := types.NewKeywordProperty()
			ignoreAbove := 256
			kw.IgnoreAbove = &ignoreAbove
			p.Fields["keyword"] = kw
		}
		return p
	case db.FieldDate:
		p := types.NewDateProperty()
		format := "strict_date_optional_time||epoch_millis"
		p.Format = &format
		return p
	case db.FieldInteger:
		return types.NewIntegerNumberProperty()
	case db.FieldFloat:
		return types.NewDoubleNumberProperty()
	case db.FieldBoolean:
		return types.NewBooleanProperty()
	default:
		return types.NewKeywordProperty()
	}
}
