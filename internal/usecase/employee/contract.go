package employee

import (
	"context"

	"github.com/kailas-cloud/empdex/internal/domain/aggregation"
	domemp "github.com/kailas-cloud/empdex/internal/domain/employee"
)

// Repository defines the storage contract for employees.
type Repository interface {
	Get(ctx context.Context, id string) (domemp.Employee, error)
	All(ctx context.Context, size int) ([]domemp.Employee, error)
	FindByField(ctx context.Context, field, value string, size int) ([]domemp.Employee, error)
	FindByIDs(ctx context.Context, ids []string, size int) ([]domemp.Employee, error)
	Save(ctx context.Context, e domemp.Employee) error
	Delete(ctx context.Context, id string) error
	AggregateTerms(ctx context.Context, t aggregation.Terms) ([]aggregation.Bucket, error)
	AggregateMetric(ctx context.Context, m aggregation.Metric) (map[string]any, error)
}
