// Package ingredient provides the raw ingredient catalog managed by the warehouse.
// Quantities are grams, costs are per gram.
package ingredient

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
)

// Ingredient is a purchased stock item.
type Ingredient struct {
	ID          id.ID          `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	CostPerUnit types.Money    `db:"cost_per_unit" json:"costPerUnit"`
	ExpiryDate  *time.Time     `db:"expiry_date" json:"expiryDate,omitempty"`
	Version     int            `db:"version" json:"version"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// NewIngredient creates an ingredient with zero stock; the initial quantity
// is posted through the stock register.
func NewIngredient(name string, cost types.Money, expiry *time.Time) *Ingredient {
	now := time.Now().UTC()
	return &Ingredient{
		ID:          id.New(),
		Name:        strings.TrimSpace(name),
		Quantity:    decimal.Zero,
		CostPerUnit: cost,
		ExpiryDate:  expiry,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks the invariants of a stored ingredient.
func (i *Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if i.Quantity.IsNegative() {
		return apperror.NewValidation("quantity cannot be negative").WithDetail("field", "quantity")
	}
	if i.CostPerUnit.IsNegative() {
		return apperror.NewValidation("cost per unit cannot be negative").WithDetail("field", "costPerUnit")
	}
	return nil
}

// StockValue is quantity × cost.
func (i *Ingredient) StockValue() types.Money {
	return i.Quantity.Mul(i.CostPerUnit)
}

// Snapshot is the audited state of an ingredient.
func (i *Ingredient) Snapshot() map[string]any {
	return map[string]any{
		"name":        i.Name,
		"quantity":    i.Quantity,
		"costPerUnit": i.CostPerUnit,
		"expiryDate":  i.ExpiryDate,
	}
}

// StockOperation is the direction of a manual stock update.
type StockOperation string

const (
	OperationAdd      StockOperation = "add"
	OperationSubtract StockOperation = "subtract"
)

// CreateInput is the data for AddIngredient.
type CreateInput struct {
	Name        string
	Quantity    types.Quantity
	CostPerUnit types.Money
	ExpiryDate  *time.Time
}

// UpdateInput changes descriptive fields. Nil fields are left as is.
type UpdateInput struct {
	Name        *string
	CostPerUnit *types.Money
	ExpiryDate  *time.Time
	ClearExpiry bool
	Version     int
}
