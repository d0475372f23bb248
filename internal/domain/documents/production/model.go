// Package production records kitchen production runs: ingredients are
// consumed per recipe and semi-finished stock is increased.
package production

import (
	"time"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
)

// DefaultShelfLife is applied when a run is recorded without an expiry date.
const DefaultShelfLife = 3 * 24 * time.Hour

// Run is one recorded production of a semi-finished item.
type Run struct {
	ID             id.ID          `db:"id" json:"id"`
	SemiID         id.ID          `db:"semi_id" json:"semiId"`
	SemiName       string         `db:"semi_name" json:"semiName"`
	Quantity       int            `db:"quantity" json:"quantity"`
	Batches        types.Quantity `db:"batches" json:"batches"`
	ExpiryDate     time.Time      `db:"expiry_date" json:"expiryDate"`
	RecordedBy     *id.ID         `db:"recorded_by" json:"recordedBy,omitempty"`
	RecordedByName *string        `db:"recorded_by_name" json:"recordedByName,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
}

// Requirement is the consumption of one ingredient by a planned run.
type Requirement struct {
	IngredientID   id.ID          `json:"ingredientId"`
	IngredientName string         `json:"ingredientName"`
	PerBatch       types.Quantity `json:"quantityPerBatch"`
	Needed         types.Quantity `json:"needed"`
	Available      types.Quantity `json:"available"`
}

// Plan is the result of CheckIngredients.
type Plan struct {
	SemiID         id.ID          `json:"semiId"`
	SemiName       string         `json:"semiName"`
	Quantity       int            `json:"quantity"`
	OutputQuantity int            `json:"outputQuantity"`
	Batches        types.Quantity `json:"batches"`
	Requirements   []Requirement  `json:"requirements"`
}

// RecordInput is the data for RecordProduction.
type RecordInput struct {
	SemiID     id.ID
	Quantity   int
	ExpiryDate *time.Time
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return apperror.NewValidation("production quantity must be at least 1").WithDetail("field", "quantity")
	}
	return nil
}
