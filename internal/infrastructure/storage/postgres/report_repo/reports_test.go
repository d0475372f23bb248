package report_repo

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/id"
)

func TestCostLinesQuery(t *testing.T) {
	b := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	sql, args, err := costLinesQuery(b, nil).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "WHERE")
	assert.Empty(t, args)
	assert.Contains(t, sql, "ORDER BY sf.name, ri.name")

	semiID := id.New()
	sql, args, err = costLinesQuery(b, &semiID).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE sf.id = $1 ORDER BY sf.name, ri.name")
	assert.Equal(t, []any{semiID.String()}, args)
}

func TestTopProductsSQL_OnlySoldProducts(t *testing.T) {
	assert.Contains(t, topProductsSQL, "HAVING SUM(s.quantity) > 0")
	assert.NotContains(t, topProductsSQL, "LEFT JOIN")
	assert.Contains(t, topProductsSQL, "ORDER BY units_sold DESC, fp.name")
}
