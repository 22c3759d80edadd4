package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/empdex/internal/db"
)

const docCountField = "docCount"

// AggregateTerms groups the filtered documents by field via FT.AGGREGATE and counts each group.
func (s *Store) AggregateTerms(ctx context.Context, q *db.TermsQuery) ([]db.Bucket, error) {
	def, _ := s.schema(q.Index)
	filter, err := buildQuery(q.Index, def, q.Filter)
	if errors.Is(err, errNoMatch) {
		return []db.Bucket{}, nil
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}

	attr, ok := resolve(def, q.Field)
	if !ok {
		return []db.Bucket{}, nil
	}
	if attr.kind == "TEXT" {
		return nil, &db.Error{Op: db.OpAggregate, Err: fmt.Errorf("%w: text field %s cannot be aggregated", db.ErrInvalidRequest, q.Field)}
	}

	args := []string{q.Index, filter}
	args = append(args, groupKeyArgs(def, q.Field, attr)...)
	args = append(args,
		"GROUPBY", "1", "@"+attr.name,
		"REDUCE", "COUNT", "0", "AS", docCountField,
		"SORTBY", "2", "@"+docCountField, "DESC",
		"MAX", strconv.Itoa(q.Size),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: classify(err)}
	}

	return parseBuckets(raw, attr.name), nil
}

// groupKeyArgs loads the grouping attribute. Array fields are loaded as their
// JSON text and split into one value per element.
func groupKeyArgs(def *db.IndexDefinition, field string, attr attribute) []string {
	f, ok := def.Field(field)
	if !ok || !f.Multi {
		return []string{"LOAD", "1", "@" + attr.name}
	}
	raw := attr.name + "_raw"
	return []string{
		"LOAD", "3", "$." + f.Name, "AS", raw,
		"APPLY", fmt.Sprintf(`split(@%s, ",", "[]\" ")`, raw), "AS", attr.name,
	}
}

// parseBuckets reads [count, [key, value, docCount, n], ...]. Rows without a key are skipped.
func parseBuckets(raw []rueidis.RedisMessage, keyField string) []db.Bucket {
	buckets := make([]db.Bucket, 0, len(raw))
	for i := 1; i < len(raw); i++ {
		row, err := raw[i].ToArray()
		if err != nil {
			continue
		}
		pairs := parseFieldPairs(row)

		key, ok := pairs[keyField]
		if !ok || key == "" {
			continue
		}
		count, err := strconv.ParseInt(pairs[docCountField], 10, 64)
		if err != nil {
			continue
		}
		buckets = append(buckets, db.Bucket{Key: key, DocCount: count})
	}
	return buckets
}

// metricReducers maps single-value metric aggregations onto FT.AGGREGATE reducers.
var metricReducers = map[string]string{
	"avg":         "AVG",
	"sum":         "SUM",
	"min":         "MIN",
	"max":         "MAX",
	"value_count": "COUNT",
	"cardinality": "COUNT_DISTINCT",
}

// AggregateRaw computes a single metric over all documents and shapes the
// result like an Elasticsearch response: {"aggregations": {name: {"value": v}}}.
func (s *Store) AggregateRaw(ctx context.Context, q *db.RawAggregationQuery) (map[string]any, error) {
	reducer, ok := metricReducers[q.Type]
	if !ok {
		return nil, &db.Error{Op: db.OpRawAgg, Err: fmt.Errorf("%w: aggregation type %q is not supported", db.ErrInvalidRequest, q.Type)}
	}

	def, ok := s.schema(q.Index)
	if !ok {
		return nil, &db.Error{Op: db.OpRawAgg, Err: fmt.Errorf("index %s is not registered", q.Index)}
	}

	attr, ok := resolve(def, q.Field)
	if !ok {
		return rawResult(q.Name, emptyMetric(reducer)), nil
	}

	args := []string{q.Index, "*", "LOAD", "1", "@" + attr.name}
	switch reducer {
	case "COUNT":
		args = append(args,
			"FILTER", fmt.Sprintf("exists(@%s)", attr.name),
			"GROUPBY", "0", "REDUCE", "COUNT", "0", "AS", "value")
	case "COUNT_DISTINCT":
		args = append(args, "GROUPBY", "0", "REDUCE", reducer, "1", "@"+attr.name, "AS", "value")
	default:
		if attr.kind != "NUMERIC" {
			return nil, &db.Error{Op: db.OpRawAgg, Err: fmt.Errorf("%w: field %s is not numeric", db.ErrInvalidRequest, q.Field)}
		}
		args = append(args, "GROUPBY", "0", "REDUCE", reducer, "1", "@"+attr.name, "AS", "value")
	}
	args = append(args, "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpRawAgg, Err: classify(err)}
	}

	value := emptyMetric(reducer)
	if len(raw) > 1 {
		if row, err := raw[1].ToArray(); err == nil {
			if v, ok := parseFieldPairs(row)["value"]; ok {
				value = metricValue(reducer, v)
			}
		}
	}

	return rawResult(q.Name, value), nil
}

func rawResult(name string, value any) map[string]any {
	return map[string]any{
		"aggregations": map[string]any{
			name: map[string]any{"value": value},
		},
	}
}

// emptyMetric is the value reported when no document carries the field.
func emptyMetric(reducer string) any {
	switch reducer {
	case "COUNT", "COUNT_DISTINCT":
		return int64(0)
	case "SUM":
		return float64(0)
	default:
		return nil
	}
}

func metricValue(reducer, v string) any {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return emptyMetric(reducer)
	}
	if reducer == "COUNT" || reducer == "COUNT_DISTINCT" {
		return int64(f)
	}
	return f
}
