package catalog_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bakehouse/internal/core/id"
	"bakehouse/internal/domain/catalogs/recipe"
	"bakehouse/internal/infrastructure/storage/postgres"
)

// RecipeRepo implements recipe.Repository over semi_finished and semi_recipes.
type RecipeRepo struct {
	*BaseCatalogRepo[recipe.SemiFinished]
}

// NewRecipeRepo creates a new semi-finished recipe repository.
func NewRecipeRepo(txm *postgres.TxManager) *RecipeRepo {
	return &RecipeRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[recipe.SemiFinished](txm, "semi_finished", "semi-finished product"),
	}
}

// Create inserts the item and its recipe lines.
func (r *RecipeRepo) Create(ctx context.Context, semi *recipe.SemiFinished, lines []recipe.LineInput) error {
	if err := r.BaseCatalogRepo.Create(ctx, semi); err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	sql, args, err := recipeLinesInsert(semi.ID, lines).ToSql()
	if err != nil {
		return fmt.Errorf("build recipe insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert recipe lines: %w", err), "recipe line")
	}
	return nil
}

func recipeLinesInsert(semiID id.ID, lines []recipe.LineInput) squirrel.InsertBuilder {
	q := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Insert("semi_recipes").
		Columns("semi_id", "ingredient_id", "quantity_needed")
	for _, l := range lines {
		q = q.Values(semiID, l.IngredientID, l.QuantityNeeded)
	}
	return q
}

// ExistsByName checks for a semi-finished item with the same name (case-insensitive).
func (r *RecipeRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	return r.BaseCatalogRepo.ExistsByName(ctx, name, nil)
}

// IngredientNames returns the names of the ingredients that exist among ids.
func (r *RecipeRepo) IngredientNames(ctx context.Context, ids []id.ID) (map[id.ID]string, error) {
	return namesByID(ctx, r.querier(ctx), "raw_ingredients", ids)
}

// List returns items whose name matches search, NULL expiry last, then by expiry.
func (r *RecipeRepo) List(ctx context.Context, search string) ([]recipe.SemiFinished, error) {
	q := r.baseSelect()
	if s := strings.TrimSpace(search); s != "" {
		q = q.Where(nameContains(s))
	}
	return r.Select(ctx, q.OrderBy("expiry_date ASC NULLS LAST", "name"))
}

// ListWithRecipe returns items that have at least one recipe line, ordered by name.
func (r *RecipeRepo) ListWithRecipe(ctx context.Context) ([]recipe.SemiFinished, error) {
	q := r.baseSelect().
		Where("EXISTS (SELECT 1 FROM semi_recipes sr WHERE sr.semi_id = semi_finished.id)").
		OrderBy("name")
	return r.Select(ctx, q)
}

// ListAvailable returns items with quantity > 0 ordered by name.
func (r *RecipeRepo) ListAvailable(ctx context.Context) ([]recipe.SemiFinished, error) {
	return r.Select(ctx, r.baseSelect().Where(squirrel.Gt{"quantity": 0}).OrderBy("name"))
}

// GetLines returns recipe lines joined with current ingredient stock and cost.
func (r *RecipeRepo) GetLines(ctx context.Context, semiIDs []id.ID) ([]recipe.Line, error) {
	if len(semiIDs) == 0 {
		return []recipe.Line{}, nil
	}

	sql, args, err := recipeLinesQuery(semiIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	lines := make([]recipe.Line, 0)
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select recipe lines: %w", err)
	}
	return lines, nil
}

func recipeLinesQuery(semiIDs []id.ID) squirrel.SelectBuilder {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(
			"sr.semi_id",
			"sr.ingredient_id",
			"ri.name AS ingredient_name",
			"sr.quantity_needed",
			"ri.quantity AS available",
			"ri.cost_per_unit",
		).
		From("semi_recipes sr").
		Join("raw_ingredients ri ON ri.id = sr.ingredient_id").
		Where(squirrel.Eq{"sr.semi_id": semiIDs}).
		OrderBy("ri.name")
}

// SetExpiry sets the expiry date of an item.
func (r *RecipeRepo) SetExpiry(ctx context.Context, semiID id.ID, expiry *time.Time) error {
	tag, err := r.querier(ctx).Exec(ctx,
		`UPDATE semi_finished SET expiry_date = $1, updated_at = $2 WHERE id = $3`,
		expiry, time.Now().UTC(), semiID)
	if err != nil {
		return fmt.Errorf("set expiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("semi-finished product %s not found", semiID)
	}
	return nil
}

// namesByID loads id -> name for the rows of table that exist among ids.
func namesByID(ctx context.Context, q postgres.Querier, table string, ids []id.ID) (map[id.ID]string, error) {
	out := make(map[id.ID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "name").From(table).Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []struct {
		ID   id.ID  `db:"id"`
		Name string `db:"name"`
	}
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s names: %w", table, err)
	}
	for _, row := range rows {
		out[row.ID] = row.Name
	}
	return out, nil
}

var _ recipe.Repository = (*RecipeRepo)(nil)
