package ingredient

import (
	"context"

	"bakehouse/internal/core/id"
	"bakehouse/internal/domain"
)

// Repository defines data access for ingredients.
type Repository interface {
	Create(ctx context.Context, ing *Ingredient) error
	GetByID(ctx context.Context, ingredientID id.ID) (*Ingredient, error)

	// ExistsByName matches names case-insensitively, ignoring exclude.
	ExistsByName(ctx context.Context, name string, exclude *id.ID) (bool, error)

	// Update writes descriptive fields with an optimistic version check.
	Update(ctx context.Context, ing *Ingredient) error
	Delete(ctx context.Context, ingredientID id.ID) error

	// IsUsedInRecipes reports whether any semi-finished recipe references the ingredient.
	IsUsedInRecipes(ctx context.Context, ingredientID id.ID) (bool, error)

	List(ctx context.Context, filter domain.ListFilter) ([]Ingredient, int64, error)

	// ListAvailable returns ingredients with quantity > 0 ordered by name.
	ListAvailable(ctx context.Context) ([]Ingredient, error)
}
