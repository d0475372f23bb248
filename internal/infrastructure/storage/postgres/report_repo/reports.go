// Package report_repo provides the PostgreSQL queries behind costs and the dashboard.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bakehouse/internal/core/id"
	"bakehouse/internal/domain/reports"
	"bakehouse/internal/infrastructure/storage/postgres"
)

// batchCostCTE computes the ingredient cost of one recipe batch per semi-finished item.
const batchCostCTE = `
	batch_costs AS (
		SELECT sr.semi_id, SUM(sr.quantity_needed * ri.cost_per_unit) AS batch_cost
		FROM semi_recipes sr
		JOIN raw_ingredients ri ON ri.id = sr.ingredient_id
		GROUP BY sr.semi_id
	)`

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ReportRepo) selectAll(ctx context.Context, dst any, sql string, args ...any) error {
	return pgxscan.Select(ctx, r.txm.GetQuerier(ctx), dst, sql, args...)
}

// CostLines returns recipe lines with ingredient cost, ordered by recipe then
// ingredient name. A nil semiID returns every recipe.
func (r *ReportRepo) CostLines(ctx context.Context, semiID *id.ID) ([]reports.CostLine, error) {
	sql, args, err := costLinesQuery(r.builder, semiID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	lines := make([]reports.CostLine, 0)
	if err := r.selectAll(ctx, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select cost lines: %w", err)
	}
	return lines, nil
}

func costLinesQuery(b squirrel.StatementBuilderType, semiID *id.ID) squirrel.SelectBuilder {
	q := b.Select(
		"sf.id AS semi_id",
		"sf.name AS semi_name",
		"sf.output_quantity",
		"ri.id AS ingredient_id",
		"ri.name AS ingredient_name",
		"sr.quantity_needed",
		"ri.cost_per_unit",
	).
		From("semi_recipes sr").
		Join("semi_finished sf ON sf.id = sr.semi_id").
		Join("raw_ingredients ri ON ri.id = sr.ingredient_id")
	if semiID != nil {
		q = q.Where(squirrel.Eq{"sf.id": *semiID})
	}
	return q.OrderBy("sf.name", "ri.name")
}

// IngredientUsage aggregates recipe usage per ingredient, including unused ones.
func (r *ReportRepo) IngredientUsage(ctx context.Context) ([]reports.UsageRow, error) {
	sql := `
		SELECT
			ri.id AS ingredient_id,
			ri.name,
			ri.cost_per_unit,
			COUNT(DISTINCT sr.semi_id) AS used_in_recipes,
			COALESCE(SUM(sr.quantity_needed), 0) AS total_needed
		FROM raw_ingredients ri
		LEFT JOIN semi_recipes sr ON sr.ingredient_id = ri.id
		GROUP BY ri.id, ri.name, ri.cost_per_unit
		ORDER BY ri.name
	`

	rows := make([]reports.UsageRow, 0)
	if err := r.selectAll(ctx, &rows, sql); err != nil {
		return nil, fmt.Errorf("select ingredient usage: %w", err)
	}
	return rows, nil
}

// RawStock returns every raw ingredient with quantity and cost.
func (r *ReportRepo) RawStock(ctx context.Context) ([]reports.RawStockRow, error) {
	rows := make([]reports.RawStockRow, 0)
	err := r.selectAll(ctx, &rows, `SELECT id, name, quantity, cost_per_unit FROM raw_ingredients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select raw stock: %w", err)
	}
	return rows, nil
}

// SemiStock returns semi-finished items with the cost of one recipe batch.
func (r *ReportRepo) SemiStock(ctx context.Context) ([]reports.SemiStockRow, error) {
	sql := `
		WITH ` + batchCostCTE + `
		SELECT
			sf.id,
			sf.name,
			sf.quantity,
			sf.expiry_date,
			COALESCE(bc.batch_cost, 0) AS batch_cost
		FROM semi_finished sf
		LEFT JOIN batch_costs bc ON bc.semi_id = sf.id
		ORDER BY sf.name
	`

	rows := make([]reports.SemiStockRow, 0)
	if err := r.selectAll(ctx, &rows, sql); err != nil {
		return nil, fmt.Errorf("select semi stock: %w", err)
	}
	return rows, nil
}

// WastageByDay aggregates wastage since the given time per UTC day and item
// type, newest first. Semi-finished losses are valued at one batch cost per unit.
func (r *ReportRepo) WastageByDay(ctx context.Context, since time.Time) ([]reports.WastageDay, error) {
	sql := `
		WITH ` + batchCostCTE + `
		SELECT
			(w.waste_date AT TIME ZONE 'UTC')::date AS waste_date,
			w.item_type,
			SUM(w.quantity) AS total_quantity,
			COALESCE(SUM(
				CASE WHEN w.item_type = 'raw'
					THEN w.quantity * COALESCE(ri.cost_per_unit, 0)
					ELSE w.quantity * COALESCE(bc.batch_cost, 0)
				END
			), 0) AS total_value
		FROM wastage w
		LEFT JOIN raw_ingredients ri ON w.item_type = 'raw' AND ri.id = w.item_id
		LEFT JOIN batch_costs bc ON w.item_type = 'semi' AND bc.semi_id = w.item_id
		WHERE w.waste_date >= $1
		GROUP BY 1, w.item_type
		ORDER BY 1 DESC, w.item_type
	`

	rows := make([]reports.WastageDay, 0)
	if err := r.selectAll(ctx, &rows, sql, since); err != nil {
		return nil, fmt.Errorf("select wastage by day: %w", err)
	}
	return rows, nil
}

// SalesTotals sums sales with from <= sale_date < to.
func (r *ReportRepo) SalesTotals(ctx context.Context, from, to time.Time) (reports.SalesTotals, error) {
	sql := `
		SELECT
			COALESCE(SUM(quantity * sale_price), 0) AS revenue,
			COALESCE(SUM(quantity), 0) AS units
		FROM sales
		WHERE sale_date >= $1 AND sale_date < $2
	`

	var totals reports.SalesTotals
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &totals, sql, from, to); err != nil {
		return totals, fmt.Errorf("select sales totals: %w", err)
	}
	return totals, nil
}

// topProductsSQL ranks products by units sold in [$1, $2); products without
// sales in the window are left out.
const topProductsSQL = `
	SELECT
		fp.id AS product_id,
		fp.name,
		SUM(s.quantity) AS units_sold,
		SUM(s.quantity * s.sale_price) AS revenue
	FROM final_products fp
	JOIN sales s ON s.product_id = fp.id
		AND s.sale_date >= $1 AND s.sale_date < $2
	GROUP BY fp.id, fp.name
	HAVING SUM(s.quantity) > 0
	ORDER BY units_sold DESC, fp.name
	LIMIT $3
`

// TopProducts ranks products by units sold in [from, to).
func (r *ReportRepo) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]reports.TopProduct, error) {
	rows := make([]reports.TopProduct, 0)
	if err := r.selectAll(ctx, &rows, topProductsSQL, from, to, limit); err != nil {
		return nil, fmt.Errorf("select top products: %w", err)
	}
	return rows, nil
}

// Ensure interface compliance.
var _ reports.Repository = (*ReportRepo)(nil)
