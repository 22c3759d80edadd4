// Package memory is an in-process db.Store for local runs and tests.
// Match and term semantics approximate a search engine on exact tokens; there is no scoring.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/empdex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store keeps documents per index in maps guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	indexes map[string]map[string][]byte
	calls   atomic.Int64
	failErr error
}

// New creates an empty store.
func New() *Store {
	return &Store{indexes: make(map[string]map[string][]byte)}
}

// Calls returns how many store operations have been invoked.
func (s *Store) Calls() int { return int(s.calls.Load()) }

// FailWith makes every subsequent operation return err (nil restores normal behaviour).
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *Store) enter(op string) error {
	s.calls.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return &db.Error{Op: op, Err: s.failErr}
	}
	return nil
}

func (s *Store) Ping(_ context.Context) error { return s.enter(db.OpPing) }

func (s *Store) Close() {}

func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error { return s.Ping(ctx) }

// EnsureIndex creates an empty index if absent.
func (s *Store) EnsureIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := s.enter(db.OpEnsureIndex); err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpEnsureIndex, Err: fmt.Errorf("%w: %w", db.ErrInvalidRequest, err)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[def.Name]; !ok {
		s.indexes[def.Name] = make(map[string][]byte)
	}
	return nil
}

func (s *Store) Get(_ context.Context, index, id string) ([]byte, error) {
	if err := s.enter(db.OpGet); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.indexes[index][id]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return slices.Clone(src), nil
}

func (s *Store) Put(_ context.Context, index, id string, source []byte) error {
	if err := s.enter(db.OpPut); err != nil {
		return err
	}
	if !json.Valid(source) {
		return &db.Error{Op: db.OpPut, Err: fmt.Errorf("%w: source is not valid JSON", db.ErrInvalidRequest)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.indexes[index]
	if !ok {
		docs = make(map[string][]byte)
		s.indexes[index] = docs
	}
	docs[id] = slices.Clone(source)
	return nil
}

func (s *Store) Delete(_ context.Context, index, id string) error {
	if err := s.enter(db.OpDelete); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexes[index], id)
	return nil
}

// Search returns matching documents ordered by id.
func (s *Store) Search(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if err := s.enter(db.OpSearch); err != nil {
		return nil, err
	}
	if err := validate(q.Query); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	docs, err := s.matching(q.Index, q.Query)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	hits := make([]db.Hit, 0, min(len(docs), q.Size))
	for _, d := range docs {
		if len(hits) >= q.Size {
			break
		}
		hits = append(hits, db.Hit{ID: d.id, Source: d.src})
	}
	return &db.SearchResult{Total: len(docs), Hits: hits}, nil
}

// AggregateTerms groups filtered documents by field, most frequent first.
func (s *Store) AggregateTerms(_ context.Context, q *db.TermsQuery) ([]db.Bucket, error) {
	if err := s.enter(db.OpAggregate); err != nil {
		return nil, err
	}
	if err := validate(q.Filter); err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}

	docs, err := s.matching(q.Index, q.Filter)
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}

	counts := make(map[string]int64)
	for _, d := range docs {
		seen := make(map[string]bool)
		for _, v := range values(lookup(d.fields, q.Field)) {
			key := formatKey(v)
			if !seen[key] {
				seen[key] = true
				counts[key]++
			}
		}
	}

	buckets := make([]db.Bucket, 0, len(counts))
	for k, n := range counts {
		buckets = append(buckets, db.Bucket{Key: k, DocCount: n})
	}
	slices.SortFunc(buckets, func(a, b db.Bucket) int {
		if c := cmp.Compare(b.DocCount, a.DocCount); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	if len(buckets) > q.Size {
		buckets = buckets[:q.Size]
	}
	return buckets, nil
}

// AggregateRaw computes avg, sum, min, max, value_count or cardinality over all documents.
func (s *Store) AggregateRaw(_ context.Context, q *db.RawAggregationQuery) (map[string]any, error) {
	if err := s.enter(db.OpRawAgg); err != nil {
		return nil, err
	}

	docs, err := s.matching(q.Index, db.MatchAll())
	if err != nil {
		return nil, &db.Error{Op: db.OpRawAgg, Err: err}
	}

	var all []any
	for _, d := range docs {
		all = append(all, values(lookup(d.fields, q.Field))...)
	}

	value, err := metric(q.Type, all)
	if err != nil {
		return nil, &db.Error{Op: db.OpRawAgg, Err: err}
	}
	return map[string]any{
		"aggregations": map[string]any{q.Name: map[string]any{"value": value}},
	}, nil
}

type doc struct {
	id     string
	src    []byte
	fields map[string]any
}

func (s *Store) matching(index string, q db.Query) ([]doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(s.indexes[index]))
	out := make([]doc, 0, len(ids))
	for _, id := range ids {
		src := s.indexes[index][id]
		var fields map[string]any
		if err := json.Unmarshal(src, &fields); err != nil {
			return nil, fmt.Errorf("decode %s: %w", id, err)
		}
		d := doc{id: id, src: slices.Clone(src), fields: fields}
		if matches(d, q) {
			out = append(out, d)
		}
	}
	return out, nil
}

func validate(q db.Query) error {
	if q.Kind != db.QueryTerm {
		return nil
	}
	switch q.Value.(type) {
	case string, bool, int, int64, float64:
		return nil
	default:
		return fmt.Errorf("%w: %T", db.ErrUnsupportedType, q.Value)
	}
}

func matches(d doc, q db.Query) bool {
	switch q.Kind {
	case db.QueryMatchAll:
		return true
	case db.QueryIDs:
		return slices.Contains(q.IDs, d.id)
	case db.QueryMatch:
		for _, v := range values(lookup(d.fields, q.Field)) {
			if matchValue(v, q.Text) {
				return true
			}
		}
		return false
	case db.QueryTerm:
		for _, v := range values(lookup(d.fields, q.Field)) {
			if termValue(v, q.Value) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// lookup resolves a dotted path; a ".keyword" suffix addresses the raw string.
func lookup(fields map[string]any, path string) any {
	path = strings.TrimSuffix(path, ".keyword")
	var cur any = fields
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[seg]
	}
	return cur
}

func values(v any) []any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		return x
	default:
		return []any{x}
	}
}

// matchValue compares case-insensitive tokens for strings and parsed values otherwise.
func matchValue(v any, text string) bool {
	switch x := v.(type) {
	case string:
		docTokens := strings.Fields(strings.ToLower(x))
		for _, tok := range strings.Fields(strings.ToLower(text)) {
			if slices.Contains(docTokens, tok) {
				return true
			}
		}
		return false
	case float64:
		n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		return err == nil && n == x
	case bool:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		return err == nil && b == x
	default:
		return false
	}
}

func termValue(v, want any) bool {
	switch x := v.(type) {
	case string:
		s, ok := want.(string)
		return ok && s == x
	case bool:
		b, ok := want.(bool)
		return ok && b == x
	case float64:
		switch n := want.(type) {
		case int:
			return float64(n) == x
		case int64:
			return float64(n) == x
		case float64:
			return n == x
		}
	}
	return false
}

func formatKey(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func metric(typ string, vals []any) (any, error) {
	nums := make([]float64, 0, len(vals))
	for _, v := range vals {
		if f, ok := v.(float64); ok {
			nums = append(nums, f)
		}
	}

	switch typ {
	case "value_count":
		return int64(len(vals)), nil
	case "cardinality":
		distinct := make(map[string]bool)
		for _, v := range vals {
			distinct[formatKey(v)] = true
		}
		return int64(len(distinct)), nil
	case "sum":
		var sum float64
		for _, n := range nums {
			sum += n
		}
		return sum, nil
	case "avg", "min", "max":
		if len(nums) == 0 {
			return nil, nil
		}
		switch typ {
		case "min":
			return slices.Min(nums), nil
		case "max":
			return slices.Max(nums), nil
		}
		var sum float64
		for _, n := range nums {
			sum += n
		}
		avg := sum / float64(len(nums))
		if math.IsNaN(avg) {
			return nil, nil
		}
		return avg, nil
	default:
		return nil, fmt.Errorf("%w: aggregation type %q is not supported", db.ErrInvalidRequest, typ)
	}
}
