package estyped

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/kailas-cloud/empdex/internal/db"
)

// buildQuery translates a db.Query into a typed query.
func buildQuery(q db.Query) (*types.Query, error) {
	switch q.Kind {
	case db.QueryMatchAll:
		return &types.Query{MatchAll: &types.MatchAllQuery{}}, nil
	case db.QueryMatch:
		return &types.Query{Match: map[string]types.MatchQuery{q.Field: {Query: q.Text}}}, nil
	case db.QueryIDs:
		ids := q.IDs
		if ids == nil {
			ids = []string{}
		}
		return &types.Query{Ids: &types.IdsQuery{Values: ids}}, nil
	case db.QueryTerm:
		v, err := termValue(q.Value)
		if err != nil {
			return nil, err
		}
		return &types.Query{Term: map[string]types.TermQuery{q.Field: {Value: v}}}, nil
	default:
		return nil, fmt.Errorf("%w: query kind %d", db.ErrInvalidRequest, q.Kind)
	}
}

func termValue(v any) (types.FieldValue, error) {
	switch x := v.(type) {
	case string, bool, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	default:
		return nil, fmt.Errorf("%w: %T", db.ErrUnsupportedType, v)
	}
}
