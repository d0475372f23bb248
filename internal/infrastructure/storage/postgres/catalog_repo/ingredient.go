package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"bakehouse/internal/core/id"
	"bakehouse/internal/domain"
	"bakehouse/internal/domain/catalogs/ingredient"
	"bakehouse/internal/infrastructure/storage/postgres"
)

// IngredientRepo implements ingredient.Repository.
type IngredientRepo struct {
	*BaseCatalogRepo[ingredient.Ingredient]
}

// NewIngredientRepo creates a new raw ingredient repository.
func NewIngredientRepo(txm *postgres.TxManager) *IngredientRepo {
	return &IngredientRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[ingredient.Ingredient](txm, "raw_ingredients", "ingredient"),
	}
}

// Update writes descriptive fields. Quantity is owned by the stock register.
func (r *IngredientRepo) Update(ctx context.Context, ing *ingredient.Ingredient) error {
	err := r.UpdateColumns(ctx, ing.ID, ing.Version, map[string]any{
		"name":          ing.Name,
		"cost_per_unit": ing.CostPerUnit,
		"expiry_date":   ing.ExpiryDate,
		"updated_at":    ing.UpdatedAt,
	})
	if err != nil {
		return err
	}
	ing.Version++
	return nil
}

// IsUsedInRecipes reports whether any semi-finished recipe references the ingredient.
func (r *IngredientRepo) IsUsedInRecipes(ctx context.Context, ingredientID id.ID) (bool, error) {
	var used bool
	err := r.querier(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM semi_recipes WHERE ingredient_id = $1)`, ingredientID,
	).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("check recipe usage: %w", err)
	}
	return used, nil
}

// List retrieves ingredients matching the filter.
func (r *IngredientRepo) List(ctx context.Context, filter domain.ListFilter) ([]ingredient.Ingredient, int64, error) {
	return r.BaseCatalogRepo.List(ctx, filter)
}

// ListAvailable returns ingredients with quantity > 0 ordered by name.
func (r *IngredientRepo) ListAvailable(ctx context.Context) ([]ingredient.Ingredient, error) {
	return r.Select(ctx, r.baseSelect().Where(squirrel.Gt{"quantity": 0}).OrderBy("name"))
}

var _ ingredient.Repository = (*IngredientRepo)(nil)
