package register_repo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/domain/registers/stock"
)

func TestLockLevelsQuery(t *testing.T) {
	a, b := id.New(), id.New()

	sql, args, err := lockLevelsQuery(entity.ItemKindSemi, []id.ID{a, b}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, name, quantity, $1::text AS item_kind FROM semi_finished WHERE id IN ($2,$3) ORDER BY id FOR UPDATE",
		sql)
	assert.Equal(t, []any{"semi", a, b}, args)
}

func TestHistoryQuery_Filters(t *testing.T) {
	repo := NewStockRepo(nil)
	kind := entity.ItemKindRaw
	recorder := entity.RecorderSale
	itemID := id.New()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	sql, args, err := repo.historyQuery(stock.MovementFilter{
		ItemKind:     &kind,
		ItemID:       &itemID,
		RecorderType: &recorder,
		FromDate:     &from,
	}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT line_id, recorder_id, recorder_type, period, record_type, item_kind, item_id, quantity, balance_after, user_id, created_at "+
			"FROM reg_stock_movements WHERE item_kind = $1 AND item_id = $2 AND recorder_type = $3 AND period >= $4",
		sql)
	// squirrel.Eq passes driver.Valuer values through Value(), so the id arrives as text.
	assert.Equal(t, []any{"raw", itemID.String(), "sale", from}, args)
}

func TestHistoryQuery_NoFilters(t *testing.T) {
	sql, args, err := NewStockRepo(nil).historyQuery(stock.MovementFilter{}).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "WHERE")
	assert.Empty(t, args)
}

func TestMovementValues_MatchesColumns(t *testing.T) {
	m := entity.NewStockMovement(id.New(), entity.RecorderProduction, time.Now(), entity.RecordTypeReceipt,
		entity.ItemKindSemi, id.New(), decimal.NewFromInt(3))
	assert.Len(t, movementValues(m), len(movementColumns))
	assert.Equal(t, "production", movementValues(m)[2])
}
