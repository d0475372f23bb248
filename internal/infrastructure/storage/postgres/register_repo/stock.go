// Package register_repo provides the PostgreSQL implementation of the stock register.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/registers/stock"
	"bakehouse/internal/infrastructure/storage/postgres"
)

const stockMovementsTable = "reg_stock_movements"

var movementColumns = []string{
	"line_id", "recorder_id", "recorder_type", "period", "record_type",
	"item_kind", "item_id", "quantity", "balance_after", "user_id", "created_at",
}

// stockTables maps an item kind to the table holding its on-hand quantity.
var stockTables = map[entity.ItemKind]string{
	entity.ItemKindRaw:  "raw_ingredients",
	entity.ItemKindSemi: "semi_finished",
}

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// LockLevels locks raw rows first and then semi rows, each in id order, so
// concurrent postings always acquire locks in the same sequence.
func (r *StockRepo) LockLevels(ctx context.Context, refs []entity.ItemRef) (map[entity.ItemRef]entity.StockLevel, error) {
	byKind := make(map[entity.ItemKind][]id.ID, 2)
	for _, ref := range refs {
		byKind[ref.Kind] = append(byKind[ref.Kind], ref.ID)
	}

	out := make(map[entity.ItemRef]entity.StockLevel, len(refs))
	querier := r.txm.GetQuerier(ctx)

	for _, kind := range []entity.ItemKind{entity.ItemKindRaw, entity.ItemKindSemi} {
		ids := byKind[kind]
		if len(ids) == 0 {
			continue
		}

		sql, args, err := lockLevelsQuery(kind, ids).ToSql()
		if err != nil {
			return nil, fmt.Errorf("build lock query: %w", err)
		}

		var levels []entity.StockLevel
		if err := pgxscan.Select(ctx, querier, &levels, sql, args...); err != nil {
			return nil, fmt.Errorf("lock %s levels: %w", kind, err)
		}
		for _, l := range levels {
			out[entity.ItemRef{Kind: l.Kind, ID: l.ID}] = l
		}
	}

	return out, nil
}

func lockLevelsQuery(kind entity.ItemKind, ids []id.ID) squirrel.SelectBuilder {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "name", "quantity").
		Column(squirrel.Expr("?::text AS item_kind", string(kind))).
		From(stockTables[kind]).
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id").
		Suffix("FOR UPDATE")
}

// SetQuantity writes the new on-hand quantity. The row version is left alone:
// it guards descriptive fields, which stock postings never touch.
func (r *StockRepo) SetQuantity(ctx context.Context, ref entity.ItemRef, qty types.Quantity) error {
	table, ok := stockTables[ref.Kind]
	if !ok {
		return fmt.Errorf("unknown item kind %q", ref.Kind)
	}

	sql, args, err := r.builder.Update(table).
		Set("quantity", qty).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": ref.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s quantity: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s disappeared during posting", table, ref.ID)
	}
	return nil
}

// CreateMovements inserts ledger lines, with COPY when inside a transaction.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	if tx := r.txm.GetTx(ctx); tx != nil {
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, movementValues(m))
		}
		inserter := postgres.NewBatchInserter(r.txm)
		if _, err := inserter.CopyFromSlice(ctx, stockMovementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	// Fallback: multi-row insert outside a transaction.
	q := r.builder.Insert(stockMovementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(movementValues(m)...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}
	return nil
}

func movementValues(m entity.StockMovement) []any {
	return []any{
		m.LineID, m.RecorderID, string(m.RecorderType), m.Period, string(m.RecordType),
		string(m.ItemKind), m.ItemID, m.Quantity, m.BalanceAfter, m.UserID, m.CreatedAt,
	}
}

// ListMovements returns ledger lines newest first with the total match count.
func (r *StockRepo) ListMovements(ctx context.Context, filter stock.MovementFilter) ([]entity.StockMovement, int64, error) {
	q := r.historyQuery(filter)
	querier := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	q = q.OrderBy("period DESC", "created_at DESC", "line_id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	movements := make([]entity.StockMovement, 0)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("select movements: %w", err)
	}
	return movements, total, nil
}

func (r *StockRepo) historyQuery(filter stock.MovementFilter) squirrel.SelectBuilder {
	q := r.builder.Select(movementColumns...).From(stockMovementsTable)

	if filter.ItemKind != nil {
		q = q.Where(squirrel.Eq{"item_kind": string(*filter.ItemKind)})
	}
	if filter.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *filter.ItemID})
	}
	if filter.RecorderType != nil {
		q = q.Where(squirrel.Eq{"recorder_type": string(*filter.RecorderType)})
	}
	if filter.RecorderID != nil {
		q = q.Where(squirrel.Eq{"recorder_id": *filter.RecorderID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"period": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"period": *filter.ToDate})
	}
	return q
}

// SumUntil reconstructs the balance of an item at a point in time.
func (r *StockRepo) SumUntil(ctx context.Context, ref entity.ItemRef, at time.Time) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(
			SUM(CASE WHEN record_type = 'receipt' THEN quantity ELSE -quantity END),
			0
		)
		FROM reg_stock_movements
		WHERE item_kind = $1
		  AND item_id = $2
		  AND period <= $3
	`

	var balance decimal.Decimal
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, string(ref.Kind), ref.ID, at).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("calculate balance at date: %w", err)
	}
	return balance, nil
}

// GetTurnover calculates opening, receipt, expense and closing per item for
// from <= period < to.
func (r *StockRepo) GetTurnover(ctx context.Context, filter stock.TurnoverFilter) ([]stock.Turnover, error) {
	args := []any{filter.FromDate, filter.ToDate}
	kindCond := ""
	if filter.ItemKind != nil {
		kindCond = "AND m.item_kind = $3"
		args = append(args, string(*filter.ItemKind))
	}

	sql := fmt.Sprintf(`
		SELECT
			m.item_kind,
			m.item_id,
			COALESCE(ri.name, sf.name, '') AS item_name,
			COALESCE(SUM(CASE WHEN m.period < $1
				THEN CASE WHEN m.record_type = 'receipt' THEN m.quantity ELSE -m.quantity END
				ELSE 0 END), 0) AS opening_balance,
			COALESCE(SUM(CASE WHEN m.period >= $1 AND m.record_type = 'receipt' THEN m.quantity ELSE 0 END), 0) AS receipt,
			COALESCE(SUM(CASE WHEN m.period >= $1 AND m.record_type = 'expense' THEN m.quantity ELSE 0 END), 0) AS expense,
			COALESCE(SUM(CASE WHEN m.record_type = 'receipt' THEN m.quantity ELSE -m.quantity END), 0) AS closing_balance
		FROM reg_stock_movements m
		LEFT JOIN raw_ingredients ri ON m.item_kind = 'raw' AND ri.id = m.item_id
		LEFT JOIN semi_finished sf ON m.item_kind = 'semi' AND sf.id = m.item_id
		WHERE m.period < $2 %s
		GROUP BY m.item_kind, m.item_id, ri.name, sf.name
		ORDER BY item_name, m.item_kind
	`, kindCond)

	result := make([]stock.Turnover, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &result, sql, args...); err != nil {
		return nil, fmt.Errorf("calculate turnover: %w", err)
	}
	return result, nil
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)
