package reports

import (
	"context"
	"time"

	"bakehouse/internal/core/id"
)

// Repository defines the read queries behind cost analysis and the dashboard.
type Repository interface {
	// CostLines returns recipe lines with ingredient cost, ordered by recipe
	// then ingredient name. A nil semiID returns every recipe.
	CostLines(ctx context.Context, semiID *id.ID) ([]CostLine, error)

	// IngredientUsage aggregates recipe usage per ingredient, including unused ones.
	IngredientUsage(ctx context.Context) ([]UsageRow, error)

	RawStock(ctx context.Context) ([]RawStockRow, error)

	// SemiStock returns semi-finished items with the cost of one recipe batch.
	SemiStock(ctx context.Context) ([]SemiStockRow, error)

	// WastageByDay aggregates wastage since the given time per day and item type, newest first.
	WastageByDay(ctx context.Context, since time.Time) ([]WastageDay, error)

	// SalesTotals sums sales with from <= sale_date < to.
	SalesTotals(ctx context.Context, from, to time.Time) (SalesTotals, error)

	// TopProducts ranks products by units sold in [from, to).
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error)
}

// SummaryCache stores the rendered dashboard summary. Get returns nil on a
// miss together with the current generation; Set stores a summary under the
// generation read before it was built, so a summary that raced an
// invalidation is never served.
type SummaryCache interface {
	Get(ctx context.Context) (*Summary, int64, error)
	Set(ctx context.Context, generation int64, summary *Summary) error
}
