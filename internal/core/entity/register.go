// Package entity provides entities shared across domain packages.
package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
)

// RecordType is the direction of a stock movement.
type RecordType string

const (
	// RecordTypeReceipt increases the balance.
	RecordTypeReceipt RecordType = "receipt"
	// RecordTypeExpense decreases the balance.
	RecordTypeExpense RecordType = "expense"
)

// ItemKind selects the stock table a movement applies to.
type ItemKind string

const (
	ItemKindRaw  ItemKind = "raw"
	ItemKindSemi ItemKind = "semi"
)

// Valid reports whether k is a known kind.
func (k ItemKind) Valid() bool {
	return k == ItemKindRaw || k == ItemKindSemi
}

// RecorderType names the operation that produced a movement.
type RecorderType string

const (
	RecorderOpening    RecorderType = "opening"
	RecorderAdjustment RecorderType = "adjustment"
	RecorderProduction RecorderType = "production"
	RecorderWastage    RecorderType = "wastage"
	RecorderSale       RecorderType = "sale"
)

// StockMovement is one immutable row of the inventory ledger.
// Movements are only ever appended.
type StockMovement struct {
	LineID       id.ID          `db:"line_id" json:"lineId"`
	RecorderID   id.ID          `db:"recorder_id" json:"recorderId"`
	RecorderType RecorderType   `db:"recorder_type" json:"recorderType"`
	Period       time.Time      `db:"period" json:"period"`
	RecordType   RecordType     `db:"record_type" json:"recordType"`
	ItemKind     ItemKind       `db:"item_kind" json:"itemKind"`
	ItemID       id.ID          `db:"item_id" json:"itemId"`
	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	BalanceAfter types.Quantity `db:"balance_after" json:"balanceAfter"`
	UserID       *id.ID         `db:"user_id" json:"userId,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
}

// NewStockMovement creates a movement with a fresh line id.
func NewStockMovement(
	recorderID id.ID,
	recorderType RecorderType,
	period time.Time,
	recordType RecordType,
	kind ItemKind,
	itemID id.ID,
	quantity types.Quantity,
) StockMovement {
	return StockMovement{
		LineID:       id.New(),
		RecorderID:   recorderID,
		RecorderType: recorderType,
		Period:       period,
		RecordType:   recordType,
		ItemKind:     kind,
		ItemID:       itemID,
		Quantity:     quantity,
		CreatedAt:    time.Now().UTC(),
	}
}

// SignedQuantity returns quantity with sign based on record type.
func (m *StockMovement) SignedQuantity() decimal.Decimal {
	if m.RecordType == RecordTypeExpense {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// ItemRef addresses one stock row.
type ItemRef struct {
	Kind ItemKind
	ID   id.ID
}

// StockLevel is the locked state of one stock row.
type StockLevel struct {
	Kind     ItemKind       `db:"item_kind"`
	ID       id.ID          `db:"id"`
	Name     string         `db:"name"`
	Quantity types.Quantity `db:"quantity"`
}
