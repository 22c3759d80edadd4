// Package eswire decodes Elasticsearch response bodies shared by the typed and low-level drivers.
package eswire

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/empdex/internal/db"
)

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 4096

type searchResponse struct {
	Hits struct {
		Total json.RawMessage `json:"total"`
		Hits  []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// DecodeSearch decodes the hits of a _search response.
func DecodeSearch(r io.Reader) (*db.SearchResult, error) {
	var resp searchResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]db.Hit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		hits = append(hits, db.Hit{ID: h.ID, Source: []byte(h.Source)})
	}

	return &db.SearchResult{Total: decodeTotal(resp.Hits.Total, len(hits)), Hits: hits}, nil
}

// decodeTotal accepts both {"value": n} and the legacy bare number.
func decodeTotal(raw json.RawMessage, fallback int) int {
	if len(raw) == 0 {
		return fallback
	}
	var obj struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Value
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return fallback
}

type bucketJSON struct {
	Key         json.RawMessage `json:"key"`
	KeyAsString *string         `json:"key_as_string"`
	DocCount    int64           `json:"doc_count"`
}

// DecodeBuckets extracts the buckets of the named terms aggregation.
// Names prefixed by typed_keys (e.g. "sterms#name") are matched too.
func DecodeBuckets(r io.Reader, name string) ([]db.Bucket, error) {
	var resp struct {
		Aggregations map[string]struct {
			Buckets []bucketJSON `json:"buckets"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode aggregation response: %w", err)
	}

	for key, agg := range resp.Aggregations {
		if key != name && !strings.HasSuffix(key, "#"+name) {
			continue
		}
		buckets := make([]db.Bucket, 0, len(agg.Buckets))
		for _, b := range agg.Buckets {
			buckets = append(buckets, db.Bucket{Key: bucketKey(b), DocCount: b.DocCount})
		}
		return buckets, nil
	}

	return []db.Bucket{}, nil
}

// bucketKey prefers key_as_string, which carries "true"/"false" for boolean terms.
func bucketKey(b bucketJSON) string {
	if b.KeyAsString != nil {
		return *b.KeyAsString
	}
	var s string
	if err := json.Unmarshal(b.Key, &s); err == nil {
		return s
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b.Key))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String()
	}
	return strings.Trim(string(b.Key), `"`)
}

// DecodeRaw decodes any response body into a generic document.
func DecodeRaw(r io.Reader) (map[string]any, error) {
	var out map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// ResponseError converts an error status into a *db.Error. A 400 wraps db.ErrInvalidRequest.
func ResponseError(op string, status int, body io.Reader) error {
	var msg []byte
	if body != nil {
		msg, _ = io.ReadAll(io.LimitReader(body, maxErrorBody))
	}
	err := fmt.Errorf("elasticsearch error: %s - %s", statusText(status), bytes.TrimSpace(msg))
	if status == http.StatusBadRequest {
		err = fmt.Errorf("%w: %w", db.ErrInvalidRequest, err)
	}
	return &db.Error{Op: op, Err: err}
}

func statusText(status int) string {
	return strconv.Itoa(status) + " " + http.StatusText(status)
}
