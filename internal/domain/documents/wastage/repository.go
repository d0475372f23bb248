package wastage

import "context"

// Repository stores wastage records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error

	// List returns records newest first with item and user names resolved.
	List(ctx context.Context, limit int) ([]Record, error)
}
