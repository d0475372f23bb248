package production

import (
	"context"
	"time"

	"bakehouse/internal/core/id"
	"bakehouse/internal/domain/catalogs/recipe"
)

// Repository stores production runs.
type Repository interface {
	CreateRun(ctx context.Context, run *Run) error

	// ListRuns returns the latest runs first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// RecipeStore is the part of the recipe catalog production needs.
type RecipeStore interface {
	GetByID(ctx context.Context, semiID id.ID) (*recipe.SemiFinished, error)
	GetLines(ctx context.Context, semiIDs []id.ID) ([]recipe.Line, error)
	SetExpiry(ctx context.Context, semiID id.ID, expiry *time.Time) error
}
