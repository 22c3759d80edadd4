package db

// QueryKind enumerates the query shapes a driver must translate.
type QueryKind int

const (
	// QueryMatchAll matches every document.
	QueryMatchAll QueryKind = iota
	// QueryMatch is a full-text match on one field.
	QueryMatch
	// QueryIDs matches documents by store key.
	QueryIDs
	// QueryTerm is an exact-value filter on one field.
	QueryTerm
)

// Query is an engine-neutral query description.
type Query struct {
	Kind  QueryKind
	Field string
	Text  string
	Value any // string, bool, int64 or float64 for QueryTerm
	IDs   []string
}

// MatchAll returns a query matching every document.
func MatchAll() Query { return Query{Kind: QueryMatchAll} }

// Match returns a full-text match query on field.
func Match(field, text string) Query { return Query{Kind: QueryMatch, Field: field, Text: text} }

// IDs returns a query matching the given store keys.
func IDs(ids ...string) Query { return Query{Kind: QueryIDs, IDs: ids} }

// Term returns an exact-value query on field.
func Term(field string, value any) Query { return Query{Kind: QueryTerm, Field: field, Value: value} }

// SearchQuery is the input of Searcher.Search.
type SearchQuery struct {
	Index string
	Query Query
	Size  int
}

// SearchResult is the output of a search.
type SearchResult struct {
	Total int
	Hits  []Hit
}

// Hit is a single matching document.
type Hit struct {
	ID     string
	Source []byte
}

// TermsQuery is a terms aggregation on Field restricted by Filter.
type TermsQuery struct {
	Index  string
	Name   string
	Filter Query
	Field  string
	Size   int
}

// Bucket is a single terms aggregation group.
type Bucket struct {
	Key      string
	DocCount int64
}

// RawAggregationQuery is an unfiltered single aggregation {Name: {Type: {field: Field}}}.
type RawAggregationQuery struct {
	Index string
	Name  string
	Type  string
	Field string
}
