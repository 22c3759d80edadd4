// Package aggregation holds the value objects of filtered terms and free-form metric aggregations.
package aggregation

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/kailas-cloud/empdex/internal/domain"
)

const (
	// DefaultSize is the bucket count used when the caller does not pass one.
	DefaultSize = 10
	// MaxSize caps the bucket count of a single terms aggregation.
	MaxSize = 10000
	// TermsName is the aggregation name used for filtered terms requests.
	TermsName = "filtered_terms"
)

var identRegex = regexp.MustCompile(`^[a-zA-Z0-9_.@-]+$`)

// Kind is the runtime type of an exact-match filter value.
type Kind int

const (
	// KindString is a keyword value.
	KindString Kind = iota
	// KindBool is a boolean value.
	KindBool
	// KindInt is an integral value.
	KindInt
	// KindFloat is a floating point value.
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// TermValue is an exact-match filter value restricted to string, boolean, integer or float.
type TermValue struct {
	kind Kind
	s    string
	b    bool
	i    int64
	f    float64
}

// NewTermValue wraps v, failing with ErrInvalidArgument for any other runtime type.
func NewTermValue(v any) (TermValue, error) {
	switch x := v.(type) {
	case string:
		return TermValue{kind: KindString, s: x}, nil
	case bool:
		return TermValue{kind: KindBool, b: x}, nil
	case int:
		return TermValue{kind: KindInt, i: int64(x)}, nil
	case int32:
		return TermValue{kind: KindInt, i: int64(x)}, nil
	case int64:
		return TermValue{kind: KindInt, i: x}, nil
	case float32:
		return TermValue{kind: KindFloat, f: float64(x)}, nil
	case float64:
		return TermValue{kind: KindFloat, f: x}, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return TermValue{kind: KindInt, i: i}, nil
		}
		if f, err := x.Float64(); err == nil {
			return TermValue{kind: KindFloat, f: f}, nil
		}
		return TermValue{}, fmt.Errorf("filter value %q is not a number: %w", x.String(), domain.ErrInvalidArgument)
	default:
		return TermValue{}, fmt.Errorf("unsupported filter value type %T: %w", v, domain.ErrInvalidArgument)
	}
}

// ParseTermValue coerces a query-string value: true/false, then integer, then float, else string.
// A number is only taken when its canonical rendering equals s, so "007", "+5" and "1e3" stay strings.
func ParseTermValue(s string) TermValue {
	switch s {
	case "true":
		return TermValue{kind: KindBool, b: true}
	case "false":
		return TermValue{kind: KindBool, b: false}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(i, 10) == s {
		return TermValue{kind: KindInt, i: i}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) &&
		strconv.FormatFloat(f, 'f', -1, 64) == s {
		return TermValue{kind: KindFloat, f: f}
	}
	return TermValue{kind: KindString, s: s}
}

// Kind returns the runtime type of the value.
func (v TermValue) Kind() Kind { return v.kind }

// Value returns the value as string, bool, int64 or float64.
func (v TermValue) Value() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	default:
		return v.s
	}
}

// String renders the value the way a query string would carry it.
func (v TermValue) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	default:
		return v.s
	}
}

// Terms is a terms aggregation on Field over documents where FilterField equals FilterValue.
type Terms struct {
	field       string
	filterField string
	filterValue TermValue
	size        int
}

// NewTerms validates a filtered terms aggregation. size 0 means DefaultSize.
func NewTerms(field, filterField string, filterValue TermValue, size int) (Terms, error) {
	if field == "" {
		return Terms{}, fmt.Errorf("aggregation field is required: %w", domain.ErrInvalidArgument)
	}
	if filterField == "" {
		return Terms{}, fmt.Errorf("filter field is required: %w", domain.ErrInvalidArgument)
	}
	if size < 0 {
		return Terms{}, fmt.Errorf("size must not be negative, got %d: %w", size, domain.ErrInvalidArgument)
	}
	if size == 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		return Terms{}, fmt.Errorf("size must not exceed %d, got %d: %w", MaxSize, size, domain.ErrInvalidArgument)
	}
	return Terms{field: field, filterField: filterField, filterValue: filterValue, size: size}, nil
}

// Field returns the field whose distinct values form the buckets.
func (t Terms) Field() string { return t.field }

// FilterField returns the field of the exact-match filter.
func (t Terms) FilterField() string { return t.filterField }

// FilterValue returns the exact-match filter value.
func (t Terms) FilterValue() TermValue { return t.filterValue }

// Size returns the maximum number of buckets.
func (t Terms) Size() int { return t.size }

// Bucket is one group of a terms aggregation.
type Bucket struct {
	Key      string
	DocCount int64
}

// Metric is a free-form single aggregation: Name -> {Type: {field: Field}}.
type Metric struct {
	name  string
	typ   string
	field string
}

// NewMetric validates a free-form aggregation description.
func NewMetric(name, typ, field string) (Metric, error) {
	for label, v := range map[string]string{"aggregation name": name, "metric type": typ, "metric field": field} {
		if v == "" {
			return Metric{}, fmt.Errorf("%s is required: %w", label, domain.ErrInvalidArgument)
		}
		if !identRegex.MatchString(v) {
			return Metric{}, fmt.Errorf("%s %q contains invalid characters: %w", label, v, domain.ErrInvalidArgument)
		}
	}
	return Metric{name: name, typ: typ, field: field}, nil
}

// Name returns the aggregation name echoed in the response.
func (m Metric) Name() string { return m.name }

// Type returns the engine aggregation kind, e.g. avg or cardinality.
func (m Metric) Type() string { return m.typ }

// Field returns the field the metric is computed over.
func (m Metric) Field() string { return m.field }
