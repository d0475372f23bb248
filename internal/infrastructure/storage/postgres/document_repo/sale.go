package document_repo

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"

	"bakehouse/internal/domain/documents/sale"
	"bakehouse/internal/infrastructure/storage/postgres"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	*BaseDocumentRepo[sale.Sale]
}

// NewSaleRepo creates a new sales repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[sale.Sale](txm, "sales", []string{
			"id", "product_id", "quantity", "sale_price", "notes", "sale_date", "recorded_by",
		}),
	}
}

// Create stores a sale.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	return r.BaseDocumentRepo.Create(ctx, s, nil)
}

// ListBetween returns sales with from <= sale_date < to, newest first.
func (r *SaleRepo) ListBetween(ctx context.Context, from, to time.Time) ([]sale.Sale, error) {
	return r.Select(ctx, salesBetweenQuery(r.Builder(), from, to))
}

func salesBetweenQuery(b squirrel.StatementBuilderType, from, to time.Time) squirrel.SelectBuilder {
	return b.Select(
		"s.id", "s.product_id", "fp.name AS product_name", "s.quantity", "s.sale_price",
		"s.notes", "s.sale_date", "s.recorded_by", "u.username AS recorded_by_name",
	).
		From("sales s").
		Join("final_products fp ON fp.id = s.product_id").
		LeftJoin("users u ON u.id = s.recorded_by").
		Where(squirrel.GtOrEq{"s.sale_date": from}).
		Where(squirrel.Lt{"s.sale_date": to}).
		OrderBy("s.sale_date DESC")
}

var _ sale.Repository = (*SaleRepo)(nil)
