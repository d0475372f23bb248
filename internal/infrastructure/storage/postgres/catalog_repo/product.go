package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bakehouse/internal/core/id"
	"bakehouse/internal/domain/catalogs/product"
	"bakehouse/internal/infrastructure/storage/postgres"
)

// ProductRepo implements product.Repository over final_products and product_recipes.
type ProductRepo struct {
	*BaseCatalogRepo[product.Product]
}

// NewProductRepo creates a new final product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[product.Product](txm, "final_products", "product"),
	}
}

// Create inserts the product and its components.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product, components []product.ComponentInput) error {
	if err := r.BaseCatalogRepo.Create(ctx, p); err != nil {
		return err
	}
	if len(components) == 0 {
		return nil
	}

	q := r.Builder().Insert("product_recipes").Columns("product_id", "semi_id", "quantity_needed")
	for _, c := range components {
		q = q.Values(p.ID, c.SemiID, c.Quantity)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build component insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert product components: %w", err), "product component")
	}
	return nil
}

// ExistsByName checks for a product with the same name (case-insensitive).
func (r *ProductRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	return r.BaseCatalogRepo.ExistsByName(ctx, name, nil)
}

// SemiNames returns the names of the semi-finished items that exist among ids.
func (r *ProductRepo) SemiNames(ctx context.Context, ids []id.ID) (map[id.ID]string, error) {
	return namesByID(ctx, r.querier(ctx), "semi_finished", ids)
}

// List returns all products ordered by name.
func (r *ProductRepo) List(ctx context.Context) ([]product.Product, error) {
	return r.Select(ctx, r.baseSelect().OrderBy("name"))
}

// GetComponents returns the components of the given products with current
// semi-finished stock, ordered by semi-finished name.
func (r *ProductRepo) GetComponents(ctx context.Context, productIDs []id.ID) ([]product.Component, error) {
	if len(productIDs) == 0 {
		return []product.Component{}, nil
	}

	sql, args, err := componentsQuery(productIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	components := make([]product.Component, 0)
	if err := pgxscan.Select(ctx, r.querier(ctx), &components, sql, args...); err != nil {
		return nil, fmt.Errorf("select product components: %w", err)
	}
	return components, nil
}

func componentsQuery(productIDs []id.ID) squirrel.SelectBuilder {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(
			"pr.product_id",
			"pr.semi_id",
			"sf.name AS semi_name",
			"pr.quantity_needed",
			"sf.quantity AS available",
		).
		From("product_recipes pr").
		Join("semi_finished sf ON sf.id = pr.semi_id").
		Where(squirrel.Eq{"pr.product_id": productIDs}).
		OrderBy("sf.name")
}

var _ product.Repository = (*ProductRepo)(nil)
