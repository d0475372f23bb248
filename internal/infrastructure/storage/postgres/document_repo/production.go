package document_repo

import (
	"context"

	"bakehouse/internal/domain/documents/production"
	"bakehouse/internal/infrastructure/storage/postgres"
)

// ProductionRepo implements production.Repository.
type ProductionRepo struct {
	*BaseDocumentRepo[production.Run]
}

// NewProductionRepo creates a new production run repository.
func NewProductionRepo(txm *postgres.TxManager) *ProductionRepo {
	return &ProductionRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[production.Run](txm, "production_runs", []string{
			"id", "semi_id", "quantity", "batches", "expiry_date", "recorded_by", "created_at",
		}),
	}
}

// CreateRun stores a production run.
func (r *ProductionRepo) CreateRun(ctx context.Context, run *production.Run) error {
	return r.Create(ctx, run, nil)
}

// ListRuns returns the latest runs first.
func (r *ProductionRepo) ListRuns(ctx context.Context, limit int) ([]production.Run, error) {
	q := r.Builder().
		Select(
			"pr.id", "pr.semi_id", "sf.name AS semi_name", "pr.quantity", "pr.batches",
			"pr.expiry_date", "pr.recorded_by", "u.username AS recorded_by_name", "pr.created_at",
		).
		From("production_runs pr").
		Join("semi_finished sf ON sf.id = pr.semi_id").
		LeftJoin("users u ON u.id = pr.recorded_by").
		OrderBy("pr.created_at DESC").
		Limit(uint64(limit))
	return r.Select(ctx, q)
}

var _ production.Repository = (*ProductionRepo)(nil)
