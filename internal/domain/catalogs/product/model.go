// Package product provides sellable final products and their composition
// from semi-finished items.
package product

import (
	"strconv"
	"strings"
	"time"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
)

// MaxComponentQuantity bounds the units of one semi-finished item per product.
const MaxComponentQuantity = 1000

// Product is a final good with a selling price.
type Product struct {
	ID           id.ID       `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	Description  string      `db:"description" json:"description"`
	SellingPrice types.Money `db:"selling_price" json:"sellingPrice"`
	Version      int         `db:"version" json:"version"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`
}

// Component is one semi-finished item of a product, with current stock.
type Component struct {
	ProductID      id.ID          `db:"product_id" json:"productId"`
	SemiID         id.ID          `db:"semi_id" json:"semiId"`
	SemiName       string         `db:"semi_name" json:"semiName"`
	QuantityNeeded int            `db:"quantity_needed" json:"quantityNeeded"`
	Available      types.Quantity `db:"available" json:"available"`
}

// Label renders the component as "name (N units)".
func (c Component) Label() string {
	return c.SemiName + " (" + strconv.Itoa(c.QuantityNeeded) + " units)"
}

// Details is a product with its components.
type Details struct {
	Product
	Components []Component `json:"components"`
}

// Summary is one row of ListProducts.
type Summary struct {
	ID           id.ID       `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	SellingPrice types.Money `json:"sellingPrice"`
	Recipe       string      `json:"recipe"`
}

// ComponentInput is one requested component.
type ComponentInput struct {
	SemiID   id.ID
	Quantity int
}

// CreateInput is the data for CreateProduct.
type CreateInput struct {
	Name         string
	Description  string
	SellingPrice types.Money
	Components   []ComponentInput
}

// Normalize validates the request and drops zero-quantity components.
func (in CreateInput) Normalize() (CreateInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, apperror.NewValidation("product name is required").WithDetail("field", "name")
	}
	if !in.SellingPrice.IsPositive() {
		return in, apperror.NewValidation("selling price must be greater than zero").WithDetail("field", "sellingPrice")
	}

	seen := make(map[id.ID]struct{}, len(in.Components))
	kept := make([]ComponentInput, 0, len(in.Components))
	for i, c := range in.Components {
		if c.Quantity < 0 || c.Quantity > MaxComponentQuantity {
			return in, apperror.NewValidation("component quantity must be between 0 and 1000").WithDetail("index", i)
		}
		if id.IsNil(c.SemiID) {
			return in, apperror.NewValidation("semi-finished item is required").WithDetail("index", i)
		}
		if _, dup := seen[c.SemiID]; dup {
			return in, apperror.NewValidation("semi-finished item listed more than once").WithDetail("semiId", c.SemiID.String())
		}
		seen[c.SemiID] = struct{}{}
		if c.Quantity > 0 {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return in, apperror.NewValidation("product must have at least one component").WithDetail("field", "components")
	}
	in.Components = kept
	return in, nil
}

// RenderComponents joins components as "a (N units), b (M units)".
func RenderComponents(components []Component) string {
	parts := make([]string, len(components))
	for i, c := range components {
		parts[i] = c.Label()
	}
	return strings.Join(parts, ", ")
}
