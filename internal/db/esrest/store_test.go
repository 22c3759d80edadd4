package esrest

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/empdex/internal/db"
	"github.com/kailas-cloud/empdex/internal/db/eswire/eswiretest"
)

func newTestStore(t *testing.T, handler eswiretest.HandlerFunc) (*Store, *eswiretest.Server) {
	t.Helper()
	srv := eswiretest.NewServer(t, handler)
	s, err := NewStore(Config{Addrs: []string{srv.URL}})
	require.NoError(t, err)
	return s, srv
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	_, err := NewStore(Config{})
	require.Error(t, err)
}

func TestSearch_Match(t *testing.T) {
	s, srv := newTestStore(t, func(w http.ResponseWriter, _ *eswiretest.Request) {
		eswiretest.Reply(w, http.StatusOK, `{"hits":{"total":{"value":1},"hits":[{"_id":"e1","_source":{"name":"Alice"}}]}}`)
	})

	res, err := s.Search(context.Background(), &db.SearchQuery{
		Index: "employees",
		Query: db.Match("name", "Alice"),
		Size:  1000,
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "e1", res.Hits[0].ID)
	assert.JSONEq(t, `{"name":"Alice"}`, string(res.Hits[0].Source))

	req := srv.Last()
	assert.Equal(t, "/employees/_search", req.Path)
	assert.JSONEq(t, `{"size":1000,"query":{"match":{"name":{"query":"Alice"}}}}`, string(req.Body))
}

func TestSearch_QueryBodies(t *testing.T) {
	tests := []struct {
		name  string
		query db.Query
		want  string
	}{
		{"match all", db.MatchAll(), `{"size":5,"query":{"match_all":{}}}`},
		{"ids", db.IDs("a", "b"), `{"size":5,"query":{"ids":{"values":["a","b"]}}}`},
		{"term int", db.Term("experience", int64(5)), `{"size":5,"query":{"term":{"experience":{"value":5}}}}`},
		{"term bool", db.Term("verified", true), `{"size":5,"query":{"term":{"verified":{"value":true}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, srv := newTestStore(t, func(w http.ResponseWriter, _ *eswiretest.Request) {
				eswiretest.Reply(w, http.StatusOK, `{"hits":{"total":{"value":0},"hits":[]}}`)
			})

			res, err := s.Search(context.Background(), &db.SearchQuery{Index: "employees", Query: tt.query, Size: 5})
			require.NoError(t, err)
			assert.Empty(t, res.Hits)
			assert.JSONEq(t, tt.want, string(srv.Last().Body))
		})
	}
}

func TestSearch_UnsupportedTermValue_NoRequest(t *testing.T) {
	s, srv := newTestStore(t, func(w http.ResponseWriter, _ *eswiretest.Request) {
		eswiretest.Reply(w, http.StatusOK, `{}`)
	})

	_, err := s.Search(context.Background(), &db.SearchQuery{
		Index: "employees",
		Query: db.Term("skills", []string{"go"}),
		Size:  10,
	})
	require.ErrorIs(t, err, db.ErrUnsupportedType)
	assert.Empty(t, srv.Requests())
}

func TestSearch_ServerError(t *testing.T) {
	s, _ := newTestStore(t, func(w http.ResponseWriter, _ *eswiretest.Request) {
		eswiretest.Reply(w, http.StatusInternalServerError, `{"error":"boom"}`)
	})

	_, err := s.Search(context.Background(), &db.SearchQuery{Index: "employees", Query: db.MatchAll(), Size: 10})
	require.Error(t, err)

	var dbErr *db.Error
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, db.OpSearch, dbErr.Op)
	assert.Contains(t, err.Error(), "elasticsearch error: 500")
	assert.False(t, errors.Is(err, db.ErrInvalidRequest))
}

func TestGet(t *testing.T) {
	s, srv := newTestStore(t, func(w http.ResponseWriter, _ *eswiretest.Request) {
		eswiretest.Reply(w, http.StatusOK, `{"_index":"employees","_id":"e1","found":true,"_source":{"name":"Alice"}}`)
	})

	src, err := s.Get(context.Background(), "employees", "e1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Alice"}`, string(src))
	assert.Equal(t, http.MethodGet, srv.Last().Method)
	assert.Equal(t, "/employees/_doc/e1", srv.Last().Path)
}

func TestGet_NotFound(t *testing.T) {
	s, _ := newTestStore(t, func(w http.ResponseWriter, _ *eswiretest.Request) {
		eswiretest.Reply(w, http.StatusNotFound, `{"_index":"employees","_id":"nope","found":false}`)
	})

	_, err := s.Get(context.Background(), "employees", "nope")
	require.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestPut(t *testing.T) {
	s, srv := newTestStore(t, func(w http.ResponseWriter, _ *eswiretest.Request) {
		eswiretest.Reply(w, http.StatusCreated, `{"result":"created"}`)
	})

	err := s.Put(context.Background(), "employees", "e1", []byte(`{"name":"Alice"}`))
	require.NoError(t, err)

	req := srv.Last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/employees/_doc/e1", req.Path)
	assert.JSONEq(t, `{"name":"Alice"}`, string(req.Body))
}

func TestDelete_AbsentIsNotAnError(t *testing.T) {
	s, srv := newTestStore(t, func(w http.ResponseWriter, _ *eswiretest.Request) {
		eswiretest.Reply(w, http.StatusNotFound, `{"result":"not_found"}`)
	})

	require.NoError(t, s.Delete(context.Background(), "employees", "nope"))
	assert.Equal(t, http.MethodDelete, srv.Last().Method)
}

func TestAggregateTerms(t *testing.T) {
	s, srv := newTestStore(t, func(w http.ResponseWriter, _ *eswiretest.Request) {
		eswiretest.Reply(w, http.StatusOK, `{
			"hits":{"total":{"value":3},"hits":[]},
			"aggregations":{"filtered_terms":{"buckets":[
				{"key":"go","doc_count":3},
				{"key":"java","doc_count":1}
			]}}
		}`)
	})

	buckets, err := s.AggregateTerms(context.Background(), &db.TermsQuery{
		Index:  "employees",
		Name:   "filtered_terms",
		Filter: db.Term("verified", true),
		Field:  "skills",
		Size:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, []db.Bucket{{Key: "go", DocCount: 3}, {Key: "java", DocCount: 1}}, buckets)
	assert.JSONEq(t, `{
		"size":0,
		"query":{"bool":{"filter":[{"term":{"verified":{"value":true}}}]}},
		"aggs":{"filtered_terms":{"terms":{"field":"skills","size":2}}}
	}`, string(srv.Last().Body))
}

func TestAggregateRaw(t *testing.T) {
	s, srv := newTestStore(t, func(w http.ResponseWriter, _ *eswiretest.Request) {
		eswiretest.Reply(w, http.StatusOK, `{"took":1,"aggregations":{"avg_rating":{"value":4.5}}}`)
	})

	out, err := s.AggregateRaw(context.Background(), &db.RawAggregationQuery{
		Index: "employees", Name: "avg_rating", Type: "avg", Field: "rating",
	})
	require.NoError(t, err)
	require.Contains(t, out, "aggregations")
	assert.JSONEq(t, `{"size":0,"aggs":{"avg_rating":{"avg":{"field":"rating"}}}}`, string(srv.Last().Body))
}

func TestAggregateRaw_Rejected(t *testing.T) {
	s, _ := newTestStore(t, func(w http.ResponseWriter, _ *eswiretest.Request) {
		eswiretest.Reply(w, http.StatusBadRequest, `{"error":{"type":"parsing_exception","reason":"Unknown aggregation type [nope]"}}`)
	})

	_, err := s.AggregateRaw(context.Background(), &db.RawAggregationQuery{
		Index: "employees", Name: "x", Type: "nope", Field: "rating",
	})
	require.ErrorIs(t, err, db.ErrInvalidRequest)
}

func TestEnsureIndex_Exists(t *testing.T) {
	s, srv := newTestStore(t, func(w http.ResponseWriter, _ *eswiretest.Request) {
		w.WriteHeader(http.StatusOK)
	})

	def := db.NewIndex("employees").Keyword("email").MustBuild()
	require.NoError(t, s.EnsureIndex(context.Background(), def))

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodHead, reqs[0].Method)
}

func TestEnsureIndex_Creates(t *testing.T) {
	s, srv := newTestStore(t, func(w http.ResponseWriter, r *eswiretest.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		eswiretest.Reply(w, http.StatusOK, `{"acknowledged":true}`)
	})

	def := db.NewIndex("employees").
		TextWithKeyword("name").
		Date("dateOfBirth").
		Keyword("address.country").
		MustBuild()
	require.NoError(t, s.EnsureIndex(context.Background(), def))

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPut, reqs[1].Method)
	assert.Equal(t, "/employees", reqs[1].Path)
	assert.JSONEq(t, `{"mappings":{"properties":{
		"name":{"type":"text","fields":{"keyword":{"type":"keyword","ignore_above":256}}},
		"dateOfBirth":{"type":"date","format":"strict_date_optional_time||epoch_millis"},
		"address":{"type":"object","properties":{"country":{"type":"keyword"}}}
	}}}`, string(reqs[1].Body))
}

func TestEnsureIndex_AlreadyExistsRace(t *testing.T) {
	s, _ := newTestStore(t, func(w http.ResponseWriter, r *eswiretest.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		eswiretest.Reply(w, http.StatusBadRequest, `{"error":{"type":"resource_already_exists_exception"}}`)
	})

	def := db.NewIndex("employees").Keyword("email").MustBuild()
	require.NoError(t, s.EnsureIndex(context.Background(), def))
}

func TestPing(t *testing.T) {
	var unhealthy atomic.Bool
	s, _ := newTestStore(t, func(w http.ResponseWriter, _ *eswiretest.Request) {
		if !unhealthy.Load() {
			eswiretest.Reply(w, http.StatusOK, `{}`)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	require.NoError(t, s.Ping(context.Background()))

	unhealthy.Store(true)
	require.Error(t, s.Ping(context.Background()))
}
