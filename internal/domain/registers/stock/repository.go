// Package stock provides the inventory movement register: every change of a
// raw or semi-finished quantity goes through it and leaves a ledger line.
package stock

import (
	"context"
	"time"

	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
)

// Repository defines storage operations for stock levels and the ledger.
type Repository interface {
	// LockLevels locks the referenced stock rows (SELECT ... FOR UPDATE, in id
	// order) and returns their current levels. Missing rows are absent from the map.
	LockLevels(ctx context.Context, refs []entity.ItemRef) (map[entity.ItemRef]entity.StockLevel, error)

	// SetQuantity writes the new on-hand quantity of a locked row.
	SetQuantity(ctx context.Context, ref entity.ItemRef, qty types.Quantity) error

	// CreateMovements appends ledger lines.
	CreateMovements(ctx context.Context, movements []entity.StockMovement) error

	// ListMovements returns ledger lines, newest first.
	ListMovements(ctx context.Context, filter MovementFilter) ([]entity.StockMovement, int64, error)

	// SumUntil returns the signed sum of movements of an item with period <= at.
	SumUntil(ctx context.Context, ref entity.ItemRef, at time.Time) (types.Quantity, error)

	// GetTurnover aggregates movements per item for a period.
	GetTurnover(ctx context.Context, filter TurnoverFilter) ([]Turnover, error)
}

// MovementFilter for ledger queries.
type MovementFilter struct {
	ItemKind     *entity.ItemKind
	ItemID       *id.ID
	RecorderType *entity.RecorderType
	RecorderID   *id.ID
	FromDate     *time.Time
	ToDate       *time.Time
	Limit        int
	Offset       int
}

// TurnoverFilter for turnover reports.
type TurnoverFilter struct {
	ItemKind *entity.ItemKind
	FromDate time.Time
	ToDate   time.Time
}

// Turnover is opening/receipt/expense/closing for one item over a period.
type Turnover struct {
	ItemKind       entity.ItemKind `db:"item_kind" json:"itemKind"`
	ItemID         id.ID           `db:"item_id" json:"itemId"`
	ItemName       string          `db:"item_name" json:"itemName"`
	OpeningBalance types.Quantity  `db:"opening_balance" json:"openingBalance"`
	Receipt        types.Quantity  `db:"receipt" json:"receipt"`
	Expense        types.Quantity  `db:"expense" json:"expense"`
	ClosingBalance types.Quantity  `db:"closing_balance" json:"closingBalance"`
}
