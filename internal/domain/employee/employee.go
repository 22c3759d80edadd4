package employee

import (
	"fmt"
	"slices"
	"time"
)

// DateLayout is the calendar date format used for dateOfBirth on the wire.
const DateLayout = "2006-01-02"

// Address is the nested postal address of an employee.
type Address struct {
	Country string
	Town    string
}

// Employee is the sole domain record. ID is the store key and is never part of the stored body.
type Employee struct {
	ID          string
	Name        string
	DateOfBirth time.Time
	Email       string
	Skills      []string
	Experience  int
	Rating      float64
	Description string
	Verified    bool
	Salary      float64
	Address     *Address
}

// WithID returns a copy of e keyed by id.
func (e Employee) WithID(id string) Employee {
	e.ID = id
	return e
}

// HasDateOfBirth reports whether the date of birth is set.
func (e Employee) HasDateOfBirth() bool { return !e.DateOfBirth.IsZero() }

// Equal compares two records field by field. Dates are compared by calendar day.
func (e Employee) Equal(o Employee) bool {
	if e.ID != o.ID || e.Name != o.Name || e.Email != o.Email || e.Description != o.Description {
		return false
	}
	if e.Experience != o.Experience || e.Rating != o.Rating || e.Verified != o.Verified || e.Salary != o.Salary {
		return false
	}
	if e.DateOfBirth.Format(DateLayout) != o.DateOfBirth.Format(DateLayout) {
		return false
	}
	if !slices.Equal(e.Skills, o.Skills) {
		return false
	}
	switch {
	case e.Address == nil && o.Address == nil:
		return true
	case e.Address == nil || o.Address == nil:
		return false
	default:
		return *e.Address == *o.Address
	}
}

// ParseDate parses a calendar date. Empty input yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD or RFC 3339", s)
	}
	// Calendar date as written, in the timestamp's own offset.
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// FormatDate renders t as YYYY-MM-DD, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
