// Package recipe provides semi-finished products and the recipes that produce them.
package recipe

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
)

// Expiry statuses of semi-finished stock.
const (
	StatusExpired      = "Expired"
	StatusExpiringSoon = "Expiring soon"
	StatusGood         = "Good"
	StatusNoExpiry     = "No expiry"
)

var minQuantityNeeded = decimal.RequireFromString("0.1")

// SemiFinished is an intermediate good produced in batches.
// OutputQuantity is the number of units one batch of the recipe yields.
type SemiFinished struct {
	ID             id.ID          `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Quantity       types.Quantity `db:"quantity" json:"quantity"`
	ExpiryDate     *time.Time     `db:"expiry_date" json:"expiryDate,omitempty"`
	OutputQuantity int            `db:"output_quantity" json:"outputQuantity"`
	Version        int            `db:"version" json:"version"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// Line is one ingredient of a recipe, joined with the ingredient row.
type Line struct {
	SemiID         id.ID          `db:"semi_id" json:"semiId"`
	IngredientID   id.ID          `db:"ingredient_id" json:"ingredientId"`
	IngredientName string         `db:"ingredient_name" json:"ingredientName"`
	QuantityNeeded types.Quantity `db:"quantity_needed" json:"quantityNeeded"`
	Available      types.Quantity `db:"available" json:"availableQuantity"`
	CostPerUnit    types.Money    `db:"cost_per_unit" json:"costPerUnit"`
}

// Label renders the line as "name (Xg)".
func (l Line) Label() string {
	return l.IngredientName + " (" + types.FormatQty(l.QuantityNeeded) + "g)"
}

// Details is a recipe with its semi-finished item.
type Details struct {
	SemiFinished
	Lines []Line `json:"ingredients"`
}

// Summary is one row of ListRecipes.
type Summary struct {
	ID             id.ID  `json:"id"`
	Name           string `json:"name"`
	Ingredients    string `json:"ingredients"`
	OutputQuantity int    `json:"outputQuantity"`
}

// InventoryRow is one row of ListSemiFinished.
type InventoryRow struct {
	ID           id.ID          `json:"id"`
	Name         string         `json:"name"`
	Quantity     types.Quantity `json:"quantity"`
	ExpiryDate   *time.Time     `json:"expiryDate,omitempty"`
	Recipe       string         `json:"recipe"`
	ExpiryStatus string         `json:"expiryStatus"`
}

// LineInput is one requested ingredient of a new recipe.
type LineInput struct {
	IngredientID   id.ID
	QuantityNeeded types.Quantity
}

// CreateInput is the data for CreateRecipe.
type CreateInput struct {
	Name           string
	OutputQuantity int
	Ingredients    []LineInput
}

// Validate checks the shape of the request; existence is checked by the service.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperror.NewValidation("recipe name is required").WithDetail("field", "name")
	}
	if in.OutputQuantity < 1 {
		return apperror.NewValidation("output quantity must be at least 1").WithDetail("field", "outputQuantity")
	}
	if len(in.Ingredients) == 0 {
		return apperror.NewValidation("recipe must have at least one ingredient").WithDetail("field", "ingredients")
	}
	seen := make(map[id.ID]struct{}, len(in.Ingredients))
	for i, l := range in.Ingredients {
		if id.IsNil(l.IngredientID) {
			return apperror.NewValidation("ingredient is required").WithDetail("index", i)
		}
		if l.QuantityNeeded.LessThan(minQuantityNeeded) {
			return apperror.NewValidation("quantity needed must be at least 0.1").WithDetail("index", i)
		}
		if _, dup := seen[l.IngredientID]; dup {
			return apperror.NewValidation("ingredient listed more than once").WithDetail("ingredientId", l.IngredientID.String())
		}
		seen[l.IngredientID] = struct{}{}
	}
	return nil
}

// RenderLines joins lines as "a (Xg), b (Yg)" ordered by ingredient name.
func RenderLines(lines []Line) string {
	sorted := make([]Line, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].IngredientName < sorted[j].IngredientName })

	parts := make([]string, len(sorted))
	for i, l := range sorted {
		parts[i] = l.Label()
	}
	return strings.Join(parts, ", ")
}

// DaysUntil is the number of calendar days from now to date, negative once past.
func DaysUntil(date, now time.Time) int {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(n).Hours() / 24)
}

// ExpiryStatus classifies an expiry date relative to now.
func ExpiryStatus(expiry *time.Time, now time.Time) string {
	if expiry == nil {
		return StatusNoExpiry
	}
	days := DaysUntil(*expiry, now)
	switch {
	case days < 0:
		return StatusExpired
	case days <= 1:
		return StatusExpiringSoon
	default:
		return StatusGood
	}
}

// BatchCost is Σ cost_per_unit × quantity_needed.
func BatchCost(lines []Line) types.Money {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.CostPerUnit.Mul(l.QuantityNeeded))
	}
	return total
}
