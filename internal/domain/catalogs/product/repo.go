package product

import (
	"context"

	"bakehouse/internal/core/id"
)

// Repository defines storage operations for final products.
type Repository interface {
	// Create inserts the product and its components.
	Create(ctx context.Context, p *Product, components []ComponentInput) error

	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// ExistsByName checks for a product with the same name (case-insensitive).
	ExistsByName(ctx context.Context, name string) (bool, error)

	// SemiNames returns the names of the semi-finished items that exist among ids.
	SemiNames(ctx context.Context, ids []id.ID) (map[id.ID]string, error)

	// List returns all products ordered by name.
	List(ctx context.Context) ([]Product, error)

	// GetComponents returns the components of the given products with current
	// semi-finished stock, ordered by semi-finished name.
	GetComponents(ctx context.Context, productIDs []id.ID) ([]Component, error)
}
