package employee

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	domemp "github.com/kailas-cloud/empdex/internal/domain/employee"
)

// employeeDoc is the stored body of an employee. It never carries the id.
type employeeDoc struct {
	Name        string      `json:"name,omitempty"`
	DateOfBirth *wireDate   `json:"dateOfBirth,omitempty"`
	Email       string      `json:"email,omitempty"`
	Skills      []string    `json:"skills,omitempty"`
	Experience  wireInt     `json:"experience"`
	Rating      float64     `json:"rating"`
	Description string      `json:"description,omitempty"`
	Verified    bool        `json:"verified"`
	Salary      float64     `json:"salary"`
	Address     *addressDoc `json:"address,omitempty"`
}

type addressDoc struct {
	Country string `json:"country,omitempty"`
	Town    string `json:"town,omitempty"`
}

// wireDate is written as YYYY-MM-DD and read from YYYY-MM-DD, RFC 3339 or epoch milliseconds.
type wireDate struct {
	time.Time
}

func (d wireDate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(domemp.DateLayout) + `"`), nil
}

func (d *wireDate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		t, err := domemp.ParseDate(s)
		if err != nil {
			return err
		}
		d.Time = t
		return nil
	}

	millis, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("dateOfBirth %s is neither a date string nor epoch milliseconds", data)
	}
	d.Time = time.UnixMilli(millis).UTC()
	return nil
}

// wireInt reads an integer that may have been stored as a float; the fraction is truncated toward zero.
type wireInt int

func (n *wireInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if i, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*n = wireInt(i)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || f < math.MinInt64 || f >= math.MaxInt64 {
		return fmt.Errorf("experience %s is not a number in range", data)
	}
	*n = wireInt(math.Trunc(f))
	return nil
}

// toWire renders the stored body of e.
func toWire(e domemp.Employee) ([]byte, error) {
	doc := employeeDoc{
		Name:        e.Name,
		Email:       e.Email,
		Skills:      e.Skills,
		Experience:  wireInt(e.Experience),
		Rating:      e.Rating,
		Description: e.Description,
		Verified:    e.Verified,
		Salary:      e.Salary,
	}
	if e.HasDateOfBirth() {
		doc.DateOfBirth = &wireDate{Time: e.DateOfBirth}
	}
	if e.Address != nil {
		doc.Address = &addressDoc{Country: e.Address.Country, Town: e.Address.Town}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal employee: %w", err)
	}
	return data, nil
}

// toRecord decodes a stored body and stitches the store key back in as ID.
// Unknown fields are ignored.
func toRecord(raw []byte, id string) (domemp.Employee, error) {
	var doc employeeDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domemp.Employee{}, fmt.Errorf("unmarshal employee %s: %w", id, err)
	}

	e := domemp.Employee{
		ID:          id,
		Name:        doc.Name,
		Email:       doc.Email,
		Skills:      doc.Skills,
		Experience:  int(doc.Experience),
		Rating:      doc.Rating,
		Description: doc.Description,
		Verified:    doc.Verified,
		Salary:      doc.Salary,
	}
	if doc.DateOfBirth != nil {
		e.DateOfBirth = doc.DateOfBirth.Time
	}
	if doc.Address != nil {
		e.Address = &domemp.Address{Country: doc.Address.Country, Town: doc.Address.Town}
	}
	return e, nil
}
