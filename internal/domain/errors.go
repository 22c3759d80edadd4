package domain

import "errors"

var (
	// ErrEmployeeNotFound signals that no employee is stored under the requested id.
	ErrEmployeeNotFound = errors.New("employee not found")
	// ErrInvalidArgument signals a request the service refuses before touching the search engine.
	ErrInvalidArgument = errors.New("invalid argument")
)
