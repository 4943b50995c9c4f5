package store

import "context"

// Store persists conversion history.
// All implementations must be safe for concurrent use.
type Store interface {
	SaveRun(ctx context.Context, run *ConversionRun) error
	GetRun(ctx context.Context, id string) (*ConversionRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*ConversionRun, error)
	DeleteRun(ctx context.Context, id string) error

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
