// Package counter tracks template download counts. The backend is
// config-selected: an in-process map for development, Valkey for
// deployments where counts must survive restarts and be shared across
// replicas.
package counter

import "context"

// Counter is a monotonically increasing per-template counter.
type Counter interface {
	// Incr increments the counter for the given template and returns
	// the new total.
	Incr(ctx context.Context, templateID string) (int64, error)

	// Get returns the current total for the given template. Unknown
	// templates read as 0.
	Get(ctx context.Context, templateID string) (int64, error)

	// Close releases backend resources.
	Close() error
}
