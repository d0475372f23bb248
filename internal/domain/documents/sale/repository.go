package sale

import (
	"context"
	"time"

	"bakehouse/internal/core/id"
	"bakehouse/internal/domain/catalogs/product"
)

// Repository stores sales.
type Repository interface {
	Create(ctx context.Context, s *Sale) error

	// ListBetween returns sales with from <= sale_date < to, newest first.
	ListBetween(ctx context.Context, from, to time.Time) ([]Sale, error)
}

// ProductStore is the part of the product catalog sales need.
type ProductStore interface {
	GetByID(ctx context.Context, productID id.ID) (*product.Product, error)
	List(ctx context.Context) ([]product.Product, error)
	GetComponents(ctx context.Context, productIDs []id.ID) ([]product.Component, error)
}
