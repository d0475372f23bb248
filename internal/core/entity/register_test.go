package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
)

func TestSignedQuantity(t *testing.T) {
	now := time.Now()
	in := NewStockMovement(id.New(), RecorderProduction, now, RecordTypeReceipt, ItemKindSemi, id.New(), types.MustDecimal("12"))
	out := NewStockMovement(id.New(), RecorderSale, now, RecordTypeExpense, ItemKindSemi, id.New(), types.MustDecimal("3.5"))

	assert.Equal(t, "12", in.SignedQuantity().String())
	assert.Equal(t, "-3.5", out.SignedQuantity().String())
	assert.NotEqual(t, in.LineID, out.LineID)
}

func TestItemKindValid(t *testing.T) {
	assert.True(t, ItemKindRaw.Valid())
	assert.True(t, ItemKindSemi.Valid())
	assert.False(t, ItemKind("final").Valid())
}
