package aggregation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/kailas-cloud/empdex/internal/domain"
)

func TestNewTermValue_SupportedTypes(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind Kind
		want any
	}{
		{"string", "US", KindString, "US"},
		{"bool", true, KindBool, true},
		{"int", 5, KindInt, int64(5)},
		{"int64", int64(7), KindInt, int64(7)},
		{"float64", 4.5, KindFloat, 4.5},
		{"json integer", json.Number("12"), KindInt, int64(12)},
		{"json float", json.Number("1.25"), KindFloat, 1.25},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := NewTermValue(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Kind() != tc.kind {
				t.Errorf("kind = %s, want %s", v.Kind(), tc.kind)
			}
			if v.Value() != tc.want {
				t.Errorf("value = %#v, want %#v", v.Value(), tc.want)
			}
		})
	}
}

func TestNewTermValue_UnsupportedTypes(t *testing.T) {
	for _, in := range []any{
		map[string]any{"a": 1},
		[]any{"x"},
		nil,
		struct{}{},
	} {
		_, err := NewTermValue(in)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("NewTermValue(%#v): expected ErrInvalidArgument, got %v", in, err)
		}
	}
}

func TestParseTermValue(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		str  string
	}{
		{"true", KindBool, "true"},
		{"false", KindBool, "false"},
		{"42", KindInt, "42"},
		{"-3", KindInt, "-3"},
		{"3.5", KindFloat, "3.5"},
		{"US", KindString, "US"},
		{"True", KindString, "True"},
		{"NaN", KindString, "NaN"},
		{"007", KindString, "007"},
		{"+5", KindString, "+5"},
		{"1e3", KindString, "1e3"},
		{"3.50", KindString, "3.50"},
		{"0.25", KindFloat, "0.25"},
		{"", KindString, ""},
	}

	for _, tc := range tests {
		v := ParseTermValue(tc.in)
		if v.Kind() != tc.kind {
			t.Errorf("ParseTermValue(%q).Kind() = %s, want %s", tc.in, v.Kind(), tc.kind)
		}
		if v.String() != tc.str {
			t.Errorf("ParseTermValue(%q).String() = %q, want %q", tc.in, v.String(), tc.str)
		}
	}
}

func TestNewTerms(t *testing.T) {
	val := ParseTermValue("true")

	terms, err := NewTerms("address.country", "verified", val, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if terms.Size() != DefaultSize {
		t.Errorf("expected default size %d, got %d", DefaultSize, terms.Size())
	}

	invalid := []struct {
		name        string
		field       string
		filterField string
		size        int
	}{
		{"missing field", "", "verified", 10},
		{"missing filter field", "address.country", "", 10},
		{"negative size", "address.country", "verified", -1},
		{"size too large", "address.country", "verified", MaxSize + 1},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTerms(tc.field, tc.filterField, val, tc.size)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestNewMetric(t *testing.T) {
	m, err := NewMetric("avg_salary", "avg", "salary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name() != "avg_salary" || m.Type() != "avg" || m.Field() != "salary" {
		t.Errorf("unexpected metric: %+v", m)
	}

	if _, err := NewMetric("x", "", "salary"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty type, got %v", err)
	}
	if _, err := NewMetric("x", "avg\"}", "salary"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for bad type, got %v", err)
	}
}
