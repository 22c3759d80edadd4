package db

import (
	"errors"
	"strconv"
	"strings"
)

// FieldType enumerates the mapping types an index field can have.
type FieldType int

const (
	// FieldText is analyzed full text.
	FieldText FieldType = iota
	// FieldKeyword is an exact, aggregatable string.
	FieldKeyword
	// FieldDate is a calendar date.
	FieldDate
	// FieldInteger is a whole number.
	FieldInteger
	// FieldFloat is a floating point number.
	FieldFloat
	// FieldBoolean is true/false.
	FieldBoolean
)

func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "text"
	case FieldKeyword:
		return "keyword"
	case FieldDate:
		return "date"
	case FieldInteger:
		return "integer"
	case FieldFloat:
		return "float"
	case FieldBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether the field holds numbers.
func (t FieldType) IsNumeric() bool { return t == FieldInteger || t == FieldFloat }

// IndexField describes a single mapped field. Nested fields use dotted names, e.g. address.country.
type IndexField struct {
	Name string
	Type FieldType
	// Keyword adds an exact "keyword" sub-field to a text field.
	Keyword bool
	// Multi marks an array-valued field.
	Multi bool
}

// Path returns the dotted name split into object path segments.
func (f *IndexField) Path() []string { return strings.Split(f.Name, ".") }

// IndexDefinition is a complete index definition used by EnsureIndex.
type IndexDefinition struct {
	Name   string
	Fields []IndexField
}

// Field returns the mapped field by name.
func (idx *IndexDefinition) Field(name string) (IndexField, bool) {
	for _, f := range idx.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return IndexField{}, false
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true

		if f.Keyword && f.Type != FieldText {
			return errors.New("keyword sub-field requires a text field: " + f.Name)
		}
	}

	return nil
}

// IsValidIdentifier returns true if s matches [a-z0-9_-]+, the intersection of legal
// Elasticsearch index names and RediSearch index names.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isLower := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == '-'
		if !isLower && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
