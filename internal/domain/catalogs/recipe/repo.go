package recipe

import (
	"context"
	"time"

	"bakehouse/internal/core/id"
)

// Repository defines storage operations for semi-finished items and recipes.
type Repository interface {
	// Create inserts the item and its recipe lines.
	Create(ctx context.Context, semi *SemiFinished, lines []LineInput) error

	GetByID(ctx context.Context, semiID id.ID) (*SemiFinished, error)

	// ExistsByName checks for a semi-finished item with the same name (case-insensitive).
	ExistsByName(ctx context.Context, name string) (bool, error)

	// IngredientNames returns the names of the ingredients that exist among ids.
	IngredientNames(ctx context.Context, ids []id.ID) (map[id.ID]string, error)

	// List returns items whose name matches search, NULL expiry last, then by expiry.
	List(ctx context.Context, search string) ([]SemiFinished, error)

	// ListWithRecipe returns items that have at least one recipe line, ordered by name.
	ListWithRecipe(ctx context.Context) ([]SemiFinished, error)

	// ListAvailable returns items with quantity > 0 ordered by name.
	ListAvailable(ctx context.Context) ([]SemiFinished, error)

	// GetLines returns recipe lines of the given items joined with current
	// ingredient stock and cost, ordered by ingredient name.
	GetLines(ctx context.Context, semiIDs []id.ID) ([]Line, error)

	// SetExpiry sets the expiry date of an item.
	SetExpiry(ctx context.Context, semiID id.ID, expiry *time.Time) error
}
