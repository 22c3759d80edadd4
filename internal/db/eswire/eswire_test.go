package eswire

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/empdex/internal/db"
)

func TestDecodeSearch(t *testing.T) {
	body := `{"took":1,"hits":{"total":{"value":2,"relation":"eq"},"hits":[
		{"_index":"employees","_id":"e1","_score":1.0,"_source":{"name":"Ann"}},
		{"_index":"employees","_id":"e2","_score":0.5,"_source":{"name":"Bob"}}
	]}}`

	res, err := DecodeSearch(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "e1", res.Hits[0].ID)
	assert.JSONEq(t, `{"name":"Ann"}`, string(res.Hits[0].Source))
	assert.Equal(t, "e2", res.Hits[1].ID)
}

func TestDecodeSearch_LegacyTotalAndEmpty(t *testing.T) {
	res, err := DecodeSearch(strings.NewReader(`{"hits":{"total":0,"hits":[]}}`))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Empty(t, res.Hits)

	res, err = DecodeSearch(strings.NewReader(`{"hits":{"hits":[{"_id":"x","_source":{}}]}}`))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestDecodeSearch_Malformed(t *testing.T) {
	_, err := DecodeSearch(strings.NewReader(`{"hits":`))
	assert.Error(t, err)
}

func TestDecodeBuckets(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []db.Bucket
	}{
		{
			name: "string terms",
			body: `{"aggregations":{"filtered_terms":{"buckets":[{"key":"US","doc_count":3},{"key":"DE","doc_count":1}]}}}`,
			want: []db.Bucket{{Key: "US", DocCount: 3}, {Key: "DE", DocCount: 1}},
		},
		{
			name: "typed keys",
			body: `{"aggregations":{"sterms#filtered_terms":{"buckets":[{"key":"go","doc_count":2}]}}}`,
			want: []db.Bucket{{Key: "go", DocCount: 2}},
		},
		{
			name: "boolean terms use key_as_string",
			body: `{"aggregations":{"filtered_terms":{"buckets":[{"key":1,"key_as_string":"true","doc_count":4}]}}}`,
			want: []db.Bucket{{Key: "true", DocCount: 4}},
		},
		{
			name: "numeric terms",
			body: `{"aggregations":{"lterms#filtered_terms":{"buckets":[{"key":5,"doc_count":2},{"key":4.5,"doc_count":1}]}}}`,
			want: []db.Bucket{{Key: "5", DocCount: 2}, {Key: "4.5", DocCount: 1}},
		},
		{
			name: "missing aggregation",
			body: `{"aggregations":{}}`,
			want: []db.Bucket{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeBuckets(strings.NewReader(tc.body), "filtered_terms")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeRaw(t *testing.T) {
	out, err := DecodeRaw(strings.NewReader(`{"aggregations":{"avg_salary":{"value":1500.5}}}`))
	require.NoError(t, err)

	aggs, ok := out["aggregations"].(map[string]any)
	require.True(t, ok)
	avg, ok := aggs["avg_salary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1500.5", avg["value"].(interface{ String() string }).String())
}

func TestResponseError(t *testing.T) {
	err := ResponseError(db.OpSearch, http.StatusBadRequest, strings.NewReader(`{"error":"parsing_exception"}`))

	var dbErr *db.Error
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, db.OpSearch, dbErr.Op)
	assert.ErrorIs(t, err, db.ErrInvalidRequest)
	assert.Contains(t, err.Error(), "parsing_exception")

	err = ResponseError(db.OpGet, http.StatusInternalServerError, nil)
	assert.NotErrorIs(t, err, db.ErrInvalidRequest)
	assert.Contains(t, err.Error(), "500 Internal Server Error")
}
