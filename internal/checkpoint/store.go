package checkpoint

import (
	"context"
	"fmt"

	"github.com/a2a-aptos/bidagent/internal/logging"
)

// Store is a durable single-value cursor.
type Store interface {
	// Load returns the saved cursor, or 0 when none can be read.
	Load(ctx context.Context) uint64
	// Save durably records seq.
	Save(ctx context.Context, seq uint64) error
	// Close releases any lock or handle held by the store.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Option configures a store.
type Option func(*options)

type options struct {
	logger *logging.Logger
}

// WithLogger sets the logger used for load warnings.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open opens the store for backend at path.
func Open(backend, path string, opts ...Option) (Store, error) {
	switch backend {
	case BackendJSON, "":
		return NewJSONFileStore(path, opts...)
	case BackendSQLite:
		return NewSQLiteStore(path, opts...)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", backend)
	}
}
