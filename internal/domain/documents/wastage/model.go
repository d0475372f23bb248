// Package wastage records stock losses of raw and semi-finished items.
package wastage

import (
	"slices"
	"strings"
	"time"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
)

// Reason categories.
const (
	CategoryExpired         = "Expired"
	CategoryDamaged         = "Damaged"
	CategoryQualityIssue    = "Quality Issue"
	CategoryProductionError = "Production Error"
	CategoryOther           = "Other"
)

// Categories lists the accepted reason categories in display order.
var Categories = []string{
	CategoryExpired,
	CategoryDamaged,
	CategoryQualityIssue,
	CategoryProductionError,
	CategoryOther,
}

// DefaultListLimit is the history page size.
const DefaultListLimit = 50

// Record is one recorded loss.
type Record struct {
	ID             id.ID           `db:"id" json:"id"`
	ItemType       entity.ItemKind `db:"item_type" json:"itemType"`
	ItemID         id.ID           `db:"item_id" json:"itemId"`
	ItemName       string          `db:"item_name" json:"itemName"`
	Quantity       types.Quantity  `db:"quantity" json:"quantity"`
	Reason         string          `db:"reason" json:"reason"`
	RecordedBy     *id.ID          `db:"recorded_by" json:"recordedBy,omitempty"`
	RecordedByName *string         `db:"recorded_by_name" json:"recordedByName,omitempty"`
	Date           time.Time       `db:"date" json:"date"`
}

// RecordInput is the data for RecordWastage.
type RecordInput struct {
	ItemType entity.ItemKind
	ItemID   id.ID
	Quantity types.Quantity
	Category string
	Detail   string
}

// Validate checks the request before stock is touched.
func (in RecordInput) Validate() error {
	if !in.ItemType.Valid() {
		return apperror.NewValidation("item type must be raw or semi").WithDetail("field", "itemType")
	}
	if id.IsNil(in.ItemID) {
		return apperror.NewValidation("item is required").WithDetail("field", "itemId")
	}
	if !types.RoundQty(in.Quantity).IsPositive() {
		return apperror.NewValidation("quantity must be greater than zero").WithDetail("field", "quantity")
	}
	if !slices.Contains(Categories, in.Category) {
		return apperror.NewValidation("unknown wastage category").
			WithDetail("field", "category").
			WithDetail("allowed", Categories)
	}
	if strings.TrimSpace(in.Detail) == "" {
		return apperror.NewValidation("reason detail is required").WithDetail("field", "detail")
	}
	return nil
}

// Reason is the stored "Category: detail" text.
func (in RecordInput) Reason() string {
	return in.Category + ": " + strings.TrimSpace(in.Detail)
}
