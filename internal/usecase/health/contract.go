package health

import "context"

// Pinger checks search engine availability.
type Pinger interface {
	Ping(ctx context.Context) error
}
