package chi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	domemp "github.com/kailas-cloud/empdex/internal/domain/employee"
)

// ErrorResponseCode is the machine-readable error code of an ErrorResponse.
type ErrorResponseCode string

const (
	ErrorResponseCodeBadRequest       ErrorResponseCode = "bad_request"
	ErrorResponseCodeEmployeeNotFound ErrorResponseCode = "employee_not_found"
	ErrorResponseCodeInvalidArgument  ErrorResponseCode = "invalid_argument"
	ErrorResponseCodeInternalError    ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// EmployeeId is the path parameter of /employees/{id}.
type EmployeeId = string //nolint:revive // matches the path parameter name

// Address is the wire form of an employee address.
type Address struct {
	Country string `json:"country,omitempty"`
	Town    string `json:"town,omitempty"`
}

// Employee is the wire form of an employee. ID is ignored on input.
type Employee struct {
	Id          string   `json:"id,omitempty"` //nolint:revive // wire name
	Name        string   `json:"name,omitempty"`
	DateOfBirth *Date    `json:"dateOfBirth,omitempty"`
	Email       string   `json:"email,omitempty"`
	Skills      []string `json:"skills,omitempty"`
	Experience  int      `json:"experience"`
	Rating      float64  `json:"rating"`
	Description string   `json:"description,omitempty"`
	Verified    bool     `json:"verified"`
	Salary      float64  `json:"salary"`
	Address     *Address `json:"address,omitempty"`
}

// Date is a calendar date carried as "YYYY-MM-DD". Input may also be RFC 3339 or epoch milliseconds.
type Date struct {
	time.Time
}

// MarshalJSON renders the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(domemp.DateLayout))
}

// UnmarshalJSON accepts a date string, an RFC 3339 timestamp or epoch milliseconds.
func (d *Date) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("dateOfBirth: %w", err)
	}
	switch x := v.(type) {
	case string:
		t, err := domemp.ParseDate(x)
		if err != nil {
			return fmt.Errorf("dateOfBirth: %w", err)
		}
		d.Time = t
	case json.Number:
		millis, err := x.Int64()
		if err != nil {
			return fmt.Errorf("dateOfBirth: %s is not integral epoch milliseconds", x)
		}
		d.Time = time.UnixMilli(millis).UTC()
	default:
		return fmt.Errorf("dateOfBirth: unsupported value %s", string(b))
	}
	return nil
}

// AggregationBucket is one group of a filtered terms aggregation.
type AggregationBucket struct {
	Key      string `json:"key"`
	DocCount int64  `json:"docCount"`
}

// AggregationRequest is the JSON body of POST /employees/aggregation.
// FilterValue is decoded separately so it keeps its JSON type.
type AggregationRequest struct {
	Field       *string         `json:"field,omitempty"`
	FilterField *string         `json:"filterField,omitempty"`
	FilterValue json.RawMessage `json:"filterValue,omitempty"`
	Size        *int            `json:"size,omitempty"`
	MetricType  *string         `json:"metricType,omitempty"`
	MetricField *string         `json:"metricField,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SearchEmployeesParams defines parameters for SearchEmployees.
type SearchEmployeesParams struct {
	FieldName  string `form:"fieldName" json:"fieldName"`
	FieldValue string `form:"fieldValue" json:"fieldValue"`
}

// AggregateEmployeesParams defines parameters for AggregateEmployees.
type AggregateEmployeesParams struct {
	Field       *string `form:"field,omitempty" json:"field,omitempty"`
	FilterField *string `form:"filterField,omitempty" json:"filterField,omitempty"`
	FilterValue *string `form:"filterValue,omitempty" json:"filterValue,omitempty"`
	Size        *int    `form:"size,omitempty" json:"size,omitempty"`
	MetricType  *string `form:"metricType,omitempty" json:"metricType,omitempty"`
	MetricField *string `form:"metricField,omitempty" json:"metricField,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /employees)
	ListEmployees(w http.ResponseWriter, r *http.Request)
	// (GET /employees/search)
	SearchEmployees(w http.ResponseWriter, r *http.Request, params SearchEmployeesParams)
	// (POST /employees/aggregation)
	AggregateEmployees(w http.ResponseWriter, r *http.Request, params AggregateEmployeesParams)
	// (GET /employees/{id})
	GetEmployee(w http.ResponseWriter, r *http.Request, id EmployeeId)
	// (PUT /employees/{id})
	PutEmployee(w http.ResponseWriter, r *http.Request, id EmployeeId)
	// (DELETE /employees/{id})
	DeleteEmployee(w http.ResponseWriter, r *http.Request, id EmployeeId)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// ChiServerOptions configures the router built by HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError reports a parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// HandlerWithOptions mounts si on a chi router and binds path and query parameters.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	errorHandler := options.ErrorHandlerFunc
	if errorHandler == nil {
		errorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	w := &wrapper{handler: si, errorHandler: errorHandler}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/employees", si.ListEmployees)
		r.Get(options.BaseURL+"/employees/search", w.SearchEmployees)
		r.Post(options.BaseURL+"/employees/aggregation", w.AggregateEmployees)
		r.Get(options.BaseURL+"/employees/{id}", w.withID(si.GetEmployee))
		r.Put(options.BaseURL+"/employees/{id}", w.withID(si.PutEmployee))
		r.Delete(options.BaseURL+"/employees/{id}", w.withID(si.DeleteEmployee))
		r.Get(options.BaseURL+"/health", si.HealthCheck)
		r.Get(options.BaseURL+"/metrics", si.Metrics)
	})
	return r
}

type wrapper struct {
	handler      ServerInterface
	errorHandler func(w http.ResponseWriter, r *http.Request, err error)
}

func (w *wrapper) withID(
	next func(http.ResponseWriter, *http.Request, EmployeeId),
) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var id EmployeeId
		err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			w.errorHandler(rw, r, &InvalidParamFormatError{ParamName: "id", Err: err})
			return
		}
		next(rw, r, id)
	}
}

// SearchEmployees binds fieldName and fieldValue, both required.
func (w *wrapper) SearchEmployees(rw http.ResponseWriter, r *http.Request) {
	var params SearchEmployeesParams
	query := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, true, "fieldName", query, &params.FieldName); err != nil {
		w.errorHandler(rw, r, &InvalidParamFormatError{ParamName: "fieldName", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, true, "fieldValue", query, &params.FieldValue); err != nil {
		w.errorHandler(rw, r, &InvalidParamFormatError{ParamName: "fieldValue", Err: err})
		return
	}

	w.handler.SearchEmployees(rw, r, params)
}

// AggregateEmployees binds the optional aggregation query parameters.
func (w *wrapper) AggregateEmployees(rw http.ResponseWriter, r *http.Request) {
	var params AggregateEmployeesParams
	query := r.URL.Query()

	bindings := []struct {
		name string
		dest any
	}{
		{"field", &params.Field},
		{"filterField", &params.FilterField},
		{"filterValue", &params.FilterValue},
		{"size", &params.Size},
		{"metricType", &params.MetricType},
		{"metricField", &params.MetricField},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, query, b.dest); err != nil {
			w.errorHandler(rw, r, &InvalidParamFormatError{ParamName: b.name, Err: err})
			return
		}
	}

	w.handler.AggregateEmployees(rw, r, params)
}
