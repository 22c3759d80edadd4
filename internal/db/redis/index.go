package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/empdex/internal/db"
)

// keywordSuffix addresses the exact sub-field of a text field, as in "name.keyword".
const keywordSuffix = ".keyword"

// EnsureIndex creates an FT index over the JSON documents of def.Name.
// An existing index is kept as is; the definition is remembered for query translation.
func (s *Store) EnsureIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpEnsureIndex, Err: fmt.Errorf("%w: %w", db.ErrInvalidRequest, err)}
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(buildCreateArgs(def)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil && !isRedisErr(err, "index already exists") {
		return &db.Error{Op: db.OpEnsureIndex, Err: err}
	}

	s.registerSchema(def)
	return nil
}

func buildCreateArgs(def *db.IndexDefinition) []string {
	args := []string{def.Name, "ON", "JSON", "PREFIX", "1", def.Name + ":", "SCHEMA"}

	for i := range def.Fields {
		f := &def.Fields[i]
		path := "$." + f.Name
		if f.Multi {
			path += "[*]"
		}
		args = append(args, path, "AS", alias(f.Name), schemaType(f.Type))
		if f.Keyword {
			args = append(args, path, "AS", alias(f.Name+keywordSuffix), "TAG")
		}
	}

	return args
}

// alias turns a dotted field name into a RediSearch attribute name.
func alias(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

func schemaType(t db.FieldType) string {
	switch t {
	case db.FieldText:
		return "TEXT"
	case db.FieldInteger, db.FieldFloat:
		return "NUMERIC"
	default:
		// keyword, date (stored as YYYY-MM-DD) and boolean are exact values
		return "TAG"
	}
}

// attribute resolves a field name to its attribute name and kind.
type attribute struct {
	name string
	kind string // TEXT, TAG or NUMERIC
	typ  db.FieldType
}

func resolve(def *db.IndexDefinition, field string) (attribute, bool) {
	if base, ok := strings.CutSuffix(field, keywordSuffix); ok {
		if f, found := def.Field(base); found && f.Keyword {
			return attribute{name: alias(field), kind: "TAG", typ: db.FieldKeyword}, true
		}
	}
	f, ok := def.Field(field)
	if !ok {
		return attribute{}, false
	}
	return attribute{name: alias(f.Name), kind: schemaType(f.Type), typ: f.Type}, true
}
