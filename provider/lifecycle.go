package provider

import "context"

// Closeable is implemented by providers that hold resources requiring
// explicit cleanup (in-flight workers, HTTP connections, SDK clients).
// Close must be idempotent.
type Closeable interface {
	Close(ctx context.Context) error
}
