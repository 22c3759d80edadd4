package employee

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/empdex/internal/domain"
	"github.com/kailas-cloud/empdex/internal/domain/aggregation"
	domemp "github.com/kailas-cloud/empdex/internal/domain/employee"
	"github.com/kailas-cloud/empdex/internal/logger"
)

// Lookup selects how GetByID resolves a single employee.
type Lookup string

const (
	// LookupDirect reads the document by key.
	LookupDirect Lookup = "direct"
	// LookupSearch runs an ids query and takes the first hit.
	LookupSearch Lookup = "search"
)

// DefaultPageSize is the number of hits returned by listing and search.
const DefaultPageSize = 1000

// Service implements employee reads, writes and aggregations.
type Service struct {
	repo     Repository
	pageSize int
	lookup   Lookup
}

// New creates an employee service with direct lookups and the default page size.
func New(repo Repository) *Service {
	return &Service{repo: repo, pageSize: DefaultPageSize, lookup: LookupDirect}
}

// WithPageSize overrides the number of hits returned by GetAll and Search.
func (s *Service) WithPageSize(n int) *Service {
	if n > 0 {
		s.pageSize = n
	}
	return s
}

// WithLookup selects the GetByID strategy. Unknown values keep the current one.
func (s *Service) WithLookup(l Lookup) *Service {
	switch l {
	case LookupDirect, LookupSearch:
		s.lookup = l
	}
	return s
}

// GetAll returns up to the page size of employees.
func (s *Service) GetAll(ctx context.Context) ([]domemp.Employee, error) {
	out, err := s.repo.All(ctx, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return out, nil
}

// GetByID returns the employee stored under id or ErrEmployeeNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (domemp.Employee, error) {
	if id == "" {
		return domemp.Employee{}, fmt.Errorf("id is required: %w", domain.ErrInvalidArgument)
	}

	if s.lookup == LookupSearch {
		hits, err := s.repo.FindByIDs(ctx, []string{id}, 1)
		if err != nil {
			return domemp.Employee{}, fmt.Errorf("find employee %s: %w", id, err)
		}
		if len(hits) == 0 {
			return domemp.Employee{}, domain.ErrEmployeeNotFound
		}
		return hits[0], nil
	}

	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return domemp.Employee{}, fmt.Errorf("get employee %s: %w", id, err)
	}
	return e, nil
}

// Search matches fieldValue against fieldName. "_id" and "id" are looked up by key.
// No hits yield an empty slice.
func (s *Service) Search(ctx context.Context, fieldName, fieldValue string) ([]domemp.Employee, error) {
	if fieldName == "" {
		return nil, fmt.Errorf("field name is required: %w", domain.ErrInvalidArgument)
	}

	var (
		out []domemp.Employee
		err error
	)
	switch fieldName {
	case "_id", "id":
		out, err = s.repo.FindByIDs(ctx, []string{fieldValue}, s.pageSize)
	default:
		out, err = s.repo.FindByField(ctx, fieldName, fieldValue, s.pageSize)
	}
	if err != nil {
		return nil, fmt.Errorf("search employees by %s: %w", fieldName, err)
	}
	if out == nil {
		out = []domemp.Employee{}
	}
	return out, nil
}

// Create upserts e under id, replacing any previous record.
func (s *Service) Create(ctx context.Context, id string, e domemp.Employee) error {
	if id == "" {
		return fmt.Errorf("id is required: %w", domain.ErrInvalidArgument)
	}
	if err := s.repo.Save(ctx, e.WithID(id)); err != nil {
		return fmt.Errorf("save employee %s: %w", id, err)
	}
	logger.FromContext(ctx).Debug("Employee saved", zap.String("id", id))
	return nil
}

// DeleteByID removes the employee stored under id. A missing id is not an error.
func (s *Service) DeleteByID(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("id is required: %w", domain.ErrInvalidArgument)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete employee %s: %w", id, err)
	}
	logger.FromContext(ctx).Debug("Employee deleted", zap.String("id", id))
	return nil
}

// Aggregate groups employees whose filterField equals filterValue by field.
// filterValue must be a string, boolean, integer or float; other types fail before any store call.
func (s *Service) Aggregate(
	ctx context.Context, field, filterField string, filterValue any, size int,
) ([]aggregation.Bucket, error) {
	v, err := aggregation.NewTermValue(filterValue)
	if err != nil {
		return nil, err
	}
	return s.AggregateTerms(ctx, field, filterField, v, size)
}

// AggregateTerms is Aggregate for an already typed filter value.
func (s *Service) AggregateTerms(
	ctx context.Context, field, filterField string, filterValue aggregation.TermValue, size int,
) ([]aggregation.Bucket, error) {
	t, err := aggregation.NewTerms(field, filterField, filterValue, size)
	if err != nil {
		return nil, err
	}

	buckets, err := s.repo.AggregateTerms(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("aggregate employees: %w", err)
	}
	if buckets == nil {
		buckets = []aggregation.Bucket{}
	}
	logger.FromContext(ctx).Debug("Terms aggregation completed",
		zap.String("field", field),
		zap.String("filter_field", filterField),
		zap.Stringer("filter_kind", filterValue.Kind()),
		zap.Int("buckets", len(buckets)),
	)
	return buckets, nil
}

// AggregateMetric runs the single aggregation name -> {metricType: {field: metricField}}
// and returns the engine's response document.
func (s *Service) AggregateMetric(ctx context.Context, name, metricType, metricField string) (map[string]any, error) {
	m, err := aggregation.NewMetric(name, metricType, metricField)
	if err != nil {
		return nil, err
	}

	out, err := s.repo.AggregateMetric(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("aggregate employees: %w", err)
	}
	return out, nil
}
