package db

import "errors"

// Sentinel errors for search engine operations.
var (
	ErrKeyNotFound     = errors.New("db: key not found")
	ErrInvalidRequest  = errors.New("db: request rejected by search engine")
	ErrUnsupportedType = errors.New("db: unsupported value type")
)

// Op names used for error context and metrics labels.
const (
	OpPing        = "ping"
	OpEnsureIndex = "ensure_index"
	OpGet         = "get"
	OpPut         = "put"
	OpDelete      = "delete"
	OpSearch      = "search"
	OpAggregate   = "aggregate"
	OpRawAgg      = "aggregate_raw"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
