// Package employee stores employee records in a search engine index.
package employee

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/empdex/internal/db"
	"github.com/kailas-cloud/empdex/internal/domain"
	"github.com/kailas-cloud/empdex/internal/domain/aggregation"
	domemp "github.com/kailas-cloud/empdex/internal/domain/employee"
)

// DefaultIndex is the index employees live in unless configured otherwise.
const DefaultIndex = "employees"

// store is the consumer interface for employees (ISP).
type store interface {
	db.IndexManager
	db.DocumentStore
	db.Searcher
	db.Aggregator
}

// Repo implements usecase/employee.Repository.
type Repo struct {
	store store
	index string
}

// Option configures the repository.
type Option func(*Repo)

// WithIndex overrides the index name.
func WithIndex(name string) Option {
	return func(r *Repo) { r.index = name }
}

// New creates an employee repository.
func New(s store, opts ...Option) *Repo {
	r := &Repo{store: s, index: DefaultIndex}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IndexDefinition returns the explicit mapping of the employees index.
// Text fields are analyzed; country, town, email and skills are exact so they can be aggregated.
func IndexDefinition(name string) *db.IndexDefinition {
	return db.NewIndex(name).
		TextWithKeyword("name").
		Date("dateOfBirth").
		Keyword("email").
		KeywordList("skills").
		Integer("experience").
		Float("rating").
		Text("description").
		Boolean("verified").
		Float("salary").
		Keyword("address.country").
		Keyword("address.town").
		MustBuild()
}

// EnsureIndex creates the index with its mapping if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	if err := r.store.EnsureIndex(ctx, IndexDefinition(r.index)); err != nil {
		return fmt.Errorf("ensure index %s: %w", r.index, err)
	}
	return nil
}

// Get returns an employee by direct key lookup.
func (r *Repo) Get(ctx context.Context, id string) (domemp.Employee, error) {
	raw, err := r.store.Get(ctx, r.index, id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domemp.Employee{}, domain.ErrEmployeeNotFound
		}
		return domemp.Employee{}, fmt.Errorf("get %s: %w", id, translate(err))
	}
	return toRecord(raw, id)
}

// All returns up to size employees.
func (r *Repo) All(ctx context.Context, size int) ([]domemp.Employee, error) {
	return r.search(ctx, db.MatchAll(), size)
}

// FindByField runs a full-text match of value against field.
func (r *Repo) FindByField(ctx context.Context, field, value string, size int) ([]domemp.Employee, error) {
	return r.search(ctx, db.Match(field, value), size)
}

// FindByIDs returns the employees stored under ids, skipping missing ones.
func (r *Repo) FindByIDs(ctx context.Context, ids []string, size int) ([]domemp.Employee, error) {
	return r.search(ctx, db.IDs(ids...), size)
}

// Save upserts e under e.ID.
func (r *Repo) Save(ctx context.Context, e domemp.Employee) error {
	data, err := toWire(e)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, r.index, e.ID, data); err != nil {
		return fmt.Errorf("put %s: %w", e.ID, translate(err))
	}
	return nil
}

// Delete removes an employee. A missing id is not an error.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, r.index, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, translate(err))
	}
	return nil
}

// AggregateTerms groups employees matching the exact filter by field.
func (r *Repo) AggregateTerms(ctx context.Context, t aggregation.Terms) ([]aggregation.Bucket, error) {
	buckets, err := r.store.AggregateTerms(ctx, &db.TermsQuery{
		Index:  r.index,
		Name:   aggregation.TermsName,
		Filter: db.Term(t.FilterField(), t.FilterValue().Value()),
		Field:  t.Field(),
		Size:   t.Size(),
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate %s by %s: %w", t.Field(), t.FilterField(), translate(err))
	}

	out := make([]aggregation.Bucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, aggregation.Bucket{Key: b.Key, DocCount: b.DocCount})
	}
	return out, nil
}

// AggregateMetric runs a caller-defined single aggregation and returns the engine's response document.
func (r *Repo) AggregateMetric(ctx context.Context, m aggregation.Metric) (map[string]any, error) {
	out, err := r.store.AggregateRaw(ctx, &db.RawAggregationQuery{
		Index: r.index,
		Name:  m.Name(),
		Type:  m.Type(),
		Field: m.Field(),
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate %s(%s): %w", m.Type(), m.Field(), translate(err))
	}
	return out, nil
}

func (r *Repo) search(ctx context.Context, q db.Query, size int) ([]domemp.Employee, error) {
	res, err := r.store.Search(ctx, &db.SearchQuery{Index: r.index, Query: q, Size: size})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", r.index, translate(err))
	}

	out := make([]domemp.Employee, 0, len(res.Hits))
	for _, h := range res.Hits {
		e, err := toRecord(h.Source, h.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// translate marks engine rejections as invalid arguments, keeping the original chain.
func translate(err error) error {
	if errors.Is(err, db.ErrInvalidRequest) || errors.Is(err, db.ErrUnsupportedType) {
		return fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	return err
}
