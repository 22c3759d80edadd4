package redis

import (
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/empdex/internal/db"
)

// NewStoreForTest creates a Store with the provided rueidis client (test-only).
// Index definitions are registered as if EnsureIndex had already run.
func NewStoreForTest(c rueidis.Client, defs ...*db.IndexDefinition) *Store {
	s := newStore(c)
	for _, def := range defs {
		s.registerSchema(def)
	}
	return s
}
