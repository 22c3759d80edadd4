// Package eswiretest provides a fake Elasticsearch HTTP endpoint for driver tests.
package eswiretest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// Request is a recorded request received by the fake server.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// HandlerFunc answers a recorded request.
type HandlerFunc func(w http.ResponseWriter, r *Request)

// Server is an httptest server that answers as Elasticsearch and records every request.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
}

// NewServer starts a fake cluster. The server is closed on test cleanup.
func NewServer(t testing.TB, handler HandlerFunc) *Server {
	t.Helper()

	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		req := Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: data}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		// The client refuses to talk to servers without the product header.
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, &req)
	}))
	t.Cleanup(s.Close)

	return s
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Last returns the most recent request, or a zero Request if none arrived.
func (s *Server) Last() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

// Reply writes status and a JSON body.
func Reply(w http.ResponseWriter, status int, body string) {
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
