package document_repo

import (
	"context"

	"bakehouse/internal/domain/documents/wastage"
	"bakehouse/internal/infrastructure/storage/postgres"
)

// WastageRepo implements wastage.Repository.
type WastageRepo struct {
	*BaseDocumentRepo[wastage.Record]
}

// NewWastageRepo creates a new wastage repository.
func NewWastageRepo(txm *postgres.TxManager) *WastageRepo {
	return &WastageRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[wastage.Record](txm, "wastage", []string{
			"id", "item_type", "item_id", "quantity", "reason", "recorded_by", "waste_date",
		}),
	}
}

// wastageRename maps the record's date field to its column.
var wastageRename = map[string]string{"date": "waste_date"}

// Create stores a wastage record.
func (r *WastageRepo) Create(ctx context.Context, rec *wastage.Record) error {
	return r.BaseDocumentRepo.Create(ctx, rec, wastageRename)
}

// List returns records newest first with item and user names resolved.
func (r *WastageRepo) List(ctx context.Context, limit int) ([]wastage.Record, error) {
	q := r.Builder().
		Select(
			"w.id", "w.item_type", "w.item_id",
			"COALESCE(ri.name, sf.name, '') AS item_name",
			"w.quantity", "w.reason", "w.recorded_by",
			"u.username AS recorded_by_name", "w.waste_date AS date",
		).
		From("wastage w").
		LeftJoin("raw_ingredients ri ON w.item_type = 'raw' AND ri.id = w.item_id").
		LeftJoin("semi_finished sf ON w.item_type = 'semi' AND sf.id = w.item_id").
		LeftJoin("users u ON u.id = w.recorded_by").
		OrderBy("w.waste_date DESC").
		Limit(uint64(limit))
	return r.Select(ctx, q)
}

var _ wastage.Repository = (*WastageRepo)(nil)
