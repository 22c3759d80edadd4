package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/empdex/internal/domain"
	"github.com/kailas-cloud/empdex/internal/domain/aggregation"
	domemp "github.com/kailas-cloud/empdex/internal/domain/employee"
	"github.com/kailas-cloud/empdex/internal/logger"
	employeeuc "github.com/kailas-cloud/empdex/internal/usecase/employee"
	healthuc "github.com/kailas-cloud/empdex/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements ServerInterface over the employee and health services.
type Server struct {
	employees     *employeeuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(employees *employeeuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		employees: employees,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmployeeNotFound, http.StatusNotFound, ErrorResponseCodeEmployeeNotFound),
		invalidArgumentHandler,
	}
	return s
}

// ListEmployees handles GET /employees.
func (s *Server) ListEmployees(w http.ResponseWriter, r *http.Request) {
	list, err := s.employees.GetAll(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employeesToWire(list))
}

// GetEmployee handles GET /employees/{id}.
func (s *Server) GetEmployee(w http.ResponseWriter, r *http.Request, id EmployeeId) {
	e, err := s.employees.GetByID(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employeeToWire(e))
}

// SearchEmployees handles GET /employees/search.
func (s *Server) SearchEmployees(w http.ResponseWriter, r *http.Request, params SearchEmployeesParams) {
	if params.FieldName == "" {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "fieldName must not be empty")
		return
	}

	list, err := s.employees.Search(r.Context(), params.FieldName, params.FieldValue)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employeesToWire(list))
}

// PutEmployee handles PUT /employees/{id}.
func (s *Server) PutEmployee(w http.ResponseWriter, r *http.Request, id EmployeeId) {
	var req Employee
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.employees.Create(r.Context(), id, employeeFromWire(req)); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// DeleteEmployee handles DELETE /employees/{id}.
func (s *Server) DeleteEmployee(w http.ResponseWriter, r *http.Request, id EmployeeId) {
	if err := s.employees.DeleteByID(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AggregateEmployees handles POST /employees/aggregation.
// With metricType set it runs the free-form metric aggregation named by field,
// otherwise a filtered terms aggregation.
func (s *Server) AggregateEmployees(w http.ResponseWriter, r *http.Request, params AggregateEmployeesParams) {
	req, err := aggregationRequest(r, params)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	if req.MetricType != nil {
		out, err := s.employees.AggregateMetric(r.Context(), deref(req.Field), *req.MetricType, deref(req.MetricField))
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	if req.FilterValue == nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "filterValue is required")
		return
	}

	size := aggregation.DefaultSize
	if req.Size != nil {
		size = *req.Size
	}

	var buckets []aggregation.Bucket
	if raw, ok := req.FilterValue.(queryValue); ok {
		buckets, err = s.employees.AggregateTerms(r.Context(),
			deref(req.Field), deref(req.FilterField), aggregation.ParseTermValue(string(raw)), size)
	} else {
		buckets, err = s.employees.Aggregate(r.Context(), deref(req.Field), deref(req.FilterField), req.FilterValue, size)
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := make([]AggregationBucket, len(buckets))
	for i, b := range buckets {
		out[i] = AggregationBucket{Key: b.Key, DocCount: b.DocCount}
	}
	writeJSON(w, http.StatusOK, out)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// queryValue marks a filterValue taken from the query string, coerced later by ParseTermValue.
type queryValue string

// aggregationParams is the merged view of query parameters and JSON body.
type aggregationParams struct {
	Field       *string
	FilterField *string
	FilterValue any
	Size        *int
	MetricType  *string
	MetricField *string
}

// aggregationRequest merges query parameters with an optional JSON body. Body keys win.
func aggregationRequest(r *http.Request, params AggregateEmployeesParams) (aggregationParams, error) {
	req := aggregationParams{
		Field:       params.Field,
		FilterField: params.FilterField,
		Size:        params.Size,
		MetricType:  params.MetricType,
		MetricField: params.MetricField,
	}
	if params.FilterValue != nil {
		req.FilterValue = queryValue(*params.FilterValue)
	}

	if !isJSON(r) {
		return req, nil
	}

	var body AggregationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return req, nil
		}
		return aggregationParams{}, fmt.Errorf("invalid request body: %w", err)
	}

	if body.Field != nil {
		req.Field = body.Field
	}
	if body.FilterField != nil {
		req.FilterField = body.FilterField
	}
	if body.Size != nil {
		req.Size = body.Size
	}
	if body.MetricType != nil {
		req.MetricType = body.MetricType
	}
	if body.MetricField != nil {
		req.MetricField = body.MetricField
	}
	if body.FilterValue != nil {
		v, err := filterValueFromJSON(body.FilterValue)
		if err != nil {
			return aggregationParams{}, err
		}
		req.FilterValue = v
	}
	return req, nil
}

// filterValueFromJSON keeps scalars with their JSON type and rejects objects, arrays and null.
func filterValueFromJSON(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid filterValue: %w", err)
	}
	switch v.(type) {
	case string, bool, json.Number:
		return v, nil
	case nil:
		return nil, errors.New("filterValue must not be null")
	default:
		return nil, fmt.Errorf("filterValue must be a string, boolean or number, got %s", string(raw))
	}
}

func isJSON(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	return err == nil && mt == "application/json"
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func employeeFromWire(e Employee) domemp.Employee {
	out := domemp.Employee{
		Name:        e.Name,
		Email:       e.Email,
		Skills:      e.Skills,
		Experience:  e.Experience,
		Rating:      e.Rating,
		Description: e.Description,
		Verified:    e.Verified,
		Salary:      e.Salary,
	}
	if e.DateOfBirth != nil {
		out.DateOfBirth = e.DateOfBirth.Time
	}
	if e.Address != nil {
		out.Address = &domemp.Address{Country: e.Address.Country, Town: e.Address.Town}
	}
	return out
}

func employeeToWire(e domemp.Employee) Employee {
	out := Employee{
		Id:          e.ID,
		Name:        e.Name,
		Email:       e.Email,
		Skills:      e.Skills,
		Experience:  e.Experience,
		Rating:      e.Rating,
		Description: e.Description,
		Verified:    e.Verified,
		Salary:      e.Salary,
	}
	if e.HasDateOfBirth() {
		out.DateOfBirth = &Date{Time: e.DateOfBirth}
	}
	if e.Address != nil {
		out.Address = &Address{Country: e.Address.Country, Town: e.Address.Town}
	}
	return out
}

func employeesToWire(list []domemp.Employee) []Employee {
	out := make([]Employee, len(list))
	for i, e := range list {
		out[i] = employeeToWire(e)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// invalidArgumentHandler reports the validation message, which never carries engine details.
func invalidArgumentHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrInvalidArgument) {
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorResponseCodeInvalidArgument, validationMessage(err))
	return true
}

// validationMessage keeps the service's own wording and drops anything the engine said.
func validationMessage(err error) string {
	var inner interface{ Unwrap() []error }
	if errors.As(err, &inner) {
		return domain.ErrInvalidArgument.Error()
	}
	return err.Error()
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range []error{domain.ErrEmployeeNotFound, domain.ErrInvalidArgument} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
