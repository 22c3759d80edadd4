package esrest

import (
	"fmt"

	"github.com/kailas-cloud/empdex/internal/db"
)

type body = map[string]any

// buildQuery renders a db.Query as an Elasticsearch query DSL object.
func buildQuery(q db.Query) (body, error) {
	switch q.Kind {
	case db.QueryMatchAll:
		return body{"match_all": body{}}, nil
	case db.QueryMatch:
		return body{"match": body{q.Field: body{"query": q.Text}}}, nil
	case db.QueryIDs:
		ids := q.IDs
		if ids == nil {
			ids = []string{}
		}
		return body{"ids": body{"values": ids}}, nil
	case db.QueryTerm:
		v, err := termValue(q.Value)
		if err != nil {
			return nil, err
		}
		return body{"term": body{q.Field: body{"value": v}}}, nil
	default:
		return nil, fmt.Errorf("%w: query kind %d", db.ErrInvalidRequest, q.Kind)
	}
}

// buildBoolFilterQuery wraps a filter clause in bool.filter so it is not scored.
func buildBoolFilterQuery(filter db.Query) (body, error) {
	clause, err := buildQuery(filter)
	if err != nil {
		return nil, err
	}
	return body{"bool": body{"filter": []body{clause}}}, nil
}

func termValue(v any) (any, error) {
	switch x := v.(type) {
	case string, bool, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	default:
		return nil, fmt.Errorf("%w: %T", db.ErrUnsupportedType, v)
	}
}
