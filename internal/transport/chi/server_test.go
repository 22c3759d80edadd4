package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/empdex/internal/db/memory"
	repoemp "github.com/kailas-cloud/empdex/internal/repository/employee"
	employeeuc "github.com/kailas-cloud/empdex/internal/usecase/employee"
	healthuc "github.com/kailas-cloud/empdex/internal/usecase/health"
)

func newTestHandler(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.New()
	repo := repoemp.New(store)
	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("ensure index: %v", err)
	}
	srv := NewServer(employeeuc.New(repo), healthuc.New(store), zap.NewNop())
	return HandlerWithOptions(srv, ChiServerOptions{
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		},
	}), store
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func seed(t *testing.T, h http.Handler) {
	t.Helper()
	bodies := map[string]string{
		"e1": `{"name":"Ann","skills":["go"],"experience":5,"verified":true,"address":{"country":"US","town":"Austin"}}`,
		"e2": `{"name":"Bob","dateOfBirth":"1990-04-12","salary":3000,"address":{"country":"US","town":"Boston"}}`,
	}
	for id, body := range bodies {
		if rr := do(t, h, http.MethodPut, "/employees/"+id, "application/json", body); rr.Code != http.StatusCreated {
			t.Fatalf("put %s: got %d: %s", id, rr.Code, rr.Body.String())
		}
	}
}

func TestPutGetDelete(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := do(t, h, http.MethodPut, "/employees/e1", "application/json",
		`{"id":"other","name":"Ann","skills":["go"],"experience":5,"dateOfBirth":"1991-02-03","unknown":1}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("put: got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Body.Len() != 0 {
		t.Errorf("put: expected empty body, got %q", rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/employees/e1", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get: got %d: %s", rr.Code, rr.Body.String())
	}
	var got Employee
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Id != "e1" || got.Name != "Ann" || got.Experience != 5 {
		t.Errorf("unexpected employee %+v", got)
	}
	if got.DateOfBirth == nil || got.DateOfBirth.Format("2006-01-02") != "1991-02-03" {
		t.Errorf("unexpected dateOfBirth %v", got.DateOfBirth)
	}

	rr = do(t, h, http.MethodDelete, "/employees/e1", "", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/employees/e1", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete: got %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != ErrorResponseCodeEmployeeNotFound {
		t.Errorf("expected %q, got %q", ErrorResponseCodeEmployeeNotFound, resp.Code)
	}
}

func TestDelete_Missing(t *testing.T) {
	h, _ := newTestHandler(t)

	if rr := do(t, h, http.MethodDelete, "/employees/nope", "", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestPut_BadBody(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"name":`},
		{"bad date", `{"name":"Ann","dateOfBirth":"03/02/1991"}`},
		{"wrong type", `{"experience":"five"}`},
		{"fractional epoch date", `{"dateOfBirth":1.5}`},
		{"epoch date overflow", `{"dateOfBirth":1e30}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPut, "/employees/e1", "application/json", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
			}
			if resp := decodeError(t, rr); resp.Code != ErrorResponseCodeBadRequest {
				t.Errorf("expected %q, got %q", ErrorResponseCodeBadRequest, resp.Code)
			}
		})
	}
}

func TestPut_EpochMillisDate(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := do(t, h, http.MethodPut, "/employees/e1", "application/json", `{"dateOfBirth":662688000000}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("put: got %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/employees/e1", "", "")
	if !strings.Contains(rr.Body.String(), `"dateOfBirth":"1991-01-01"`) {
		t.Errorf("expected normalized date, got %s", rr.Body.String())
	}
}

func TestListEmployees(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := do(t, h, http.MethodGet, "/employees", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}

	seed(t, h)
	rr = do(t, h, http.MethodGet, "/employees", "", "")
	var list []Employee
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(list))
	}
}

func TestListEmployees_EngineFailure(t *testing.T) {
	h, store := newTestHandler(t)
	store.FailWith(errors.New("dial tcp 10.0.0.1:9200: connection refused"))

	rr := do(t, h, http.MethodGet, "/employees", "", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decodeError(t, rr)
	if resp.Code != ErrorResponseCodeInternalError || resp.Message != "internal error" {
		t.Errorf("unexpected error response %+v", resp)
	}
}

func TestSearchEmployees(t *testing.T) {
	h, _ := newTestHandler(t)
	seed(t, h)

	rr := do(t, h, http.MethodGet, "/employees/search?fieldName=name&fieldValue=ann", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	var list []Employee
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].Id != "e1" {
		t.Errorf("expected [e1], got %+v", list)
	}

	rr = do(t, h, http.MethodGet, "/employees/search?fieldName=name&fieldValue=nobody", "", "")
	if body := strings.TrimSpace(rr.Body.String()); rr.Code != http.StatusOK || body != "[]" {
		t.Errorf("expected 200 [], got %d %s", rr.Code, body)
	}
}

func TestSearchEmployees_MissingParam(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, target := range []string{
		"/employees/search?fieldName=name",
		"/employees/search?fieldValue=Ann",
		"/employees/search?fieldName=&fieldValue=Ann",
	} {
		rr := do(t, h, http.MethodGet, target, "", "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want %d", target, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestAggregate_QueryParams(t *testing.T) {
	h, _ := newTestHandler(t)
	seed(t, h)

	rr := do(t, h, http.MethodPost,
		"/employees/aggregation?field=address.country&filterField=verified&filterValue=true&size=10", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	var buckets []AggregationBucket
	if err := json.NewDecoder(rr.Body).Decode(&buckets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(buckets) != 1 || buckets[0].Key != "US" || buckets[0].DocCount != 1 {
		t.Errorf("expected [{US 1}], got %+v", buckets)
	}
}

func TestAggregate_DefaultSizeAndStringFilter(t *testing.T) {
	h, _ := newTestHandler(t)
	seed(t, h)

	rr := do(t, h, http.MethodPost,
		"/employees/aggregation?field=address.town&filterField=address.country&filterValue=US", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	var buckets []AggregationBucket
	if err := json.NewDecoder(rr.Body).Decode(&buckets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(buckets) != 2 {
		t.Errorf("expected 2 buckets, got %+v", buckets)
	}
}

func TestAggregate_NumericLookingStringFilter(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := do(t, h, http.MethodPut, "/employees/e1", "application/json",
		`{"verified":true,"address":{"country":"US","town":"007"}}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("put: got %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodPost,
		"/employees/aggregation?field=address.country&filterField=address.town&filterValue=007", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	var buckets []AggregationBucket
	if err := json.NewDecoder(rr.Body).Decode(&buckets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(buckets) != 1 || buckets[0].Key != "US" || buckets[0].DocCount != 1 {
		t.Errorf("expected [{US 1}], got %+v", buckets)
	}
}

func TestAggregate_JSONBody(t *testing.T) {
	h, _ := newTestHandler(t)
	seed(t, h)

	rr := do(t, h, http.MethodPost, "/employees/aggregation", "application/json",
		`{"field":"address.country","filterField":"verified","filterValue":true,"size":10}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"docCount":1`) {
		t.Errorf("unexpected body %s", rr.Body.String())
	}
}

func TestAggregate_InvalidFilterValue(t *testing.T) {
	h, store := newTestHandler(t)
	before := store.Calls()

	for _, fv := range []string{`{"a":1}`, `["US"]`, `null`} {
		body := `{"field":"address.country","filterField":"verified","filterValue":` + fv + `}`
		rr := do(t, h, http.MethodPost, "/employees/aggregation", "application/json", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want %d", fv, rr.Code, http.StatusBadRequest)
		}
	}
	if store.Calls() != before {
		t.Errorf("expected no store calls, got %d", store.Calls()-before)
	}
}

func TestAggregate_Validation(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name   string
		target string
		code   ErrorResponseCode
	}{
		{"missing filter value", "/employees/aggregation?field=a&filterField=b", ErrorResponseCodeBadRequest},
		{"negative size", "/employees/aggregation?field=a&filterField=b&filterValue=x&size=-1",
			ErrorResponseCodeInvalidArgument},
		{"size not a number", "/employees/aggregation?field=a&filterField=b&filterValue=x&size=ten",
			ErrorResponseCodeBadRequest},
		{"missing field", "/employees/aggregation?filterField=b&filterValue=x", ErrorResponseCodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, tt.target, "", "")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
			}
			if resp := decodeError(t, rr); resp.Code != tt.code {
				t.Errorf("expected %q, got %q", tt.code, resp.Code)
			}
		})
	}
}

func TestAggregate_Metric(t *testing.T) {
	h, _ := newTestHandler(t)
	seed(t, h)

	rr := do(t, h, http.MethodPost,
		"/employees/aggregation?field=total_salary&metricType=sum&metricField=salary", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}

	var out map[string]map[string]map[string]float64
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := out["aggregations"]["total_salary"]["value"]; got != 3000 {
		t.Errorf("expected 3000, got %v", got)
	}
}

func TestAggregate_MetricRejected(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := do(t, h, http.MethodPost,
		"/employees/aggregation?field=p&metricType=percentiles&metricField=salary", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	resp := decodeError(t, rr)
	if resp.Code != ErrorResponseCodeInvalidArgument || resp.Message != "invalid argument" {
		t.Errorf("unexpected error response %+v", resp)
	}
}

func TestHealthCheck(t *testing.T) {
	h, store := newTestHandler(t)

	rr := do(t, h, http.MethodGet, "/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Checks[healthuc.SearchEngineCheck] != "ok" {
		t.Errorf("unexpected health %+v", resp)
	}

	store.FailWith(errors.New("down"))
	if rr := do(t, h, http.MethodGet, "/health", "", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := do(t, h, http.MethodGet, "/metrics", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
}
