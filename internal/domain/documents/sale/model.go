// Package sale records sales of final products, consuming semi-finished stock.
package sale

import (
	"time"

	"github.com/shopspring/decimal"

	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/catalogs/product"
)

// Sale is one recorded sale. SalePrice is the selling price at the time of sale.
type Sale struct {
	ID             id.ID       `db:"id" json:"id"`
	ProductID      id.ID       `db:"product_id" json:"productId"`
	ProductName    string      `db:"product_name" json:"productName"`
	Quantity       int         `db:"quantity" json:"quantity"`
	SalePrice      types.Money `db:"sale_price" json:"salePrice"`
	Notes          *string     `db:"notes" json:"notes,omitempty"`
	SaleDate       time.Time   `db:"sale_date" json:"saleDate"`
	RecordedBy     *id.ID      `db:"recorded_by" json:"recordedBy,omitempty"`
	RecordedByName *string     `db:"recorded_by_name" json:"recordedByName,omitempty"`
}

// Total is quantity × sale price.
func (s Sale) Total() types.Money {
	return s.SalePrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

// AvailableProduct is a product that can currently be made at least once.
type AvailableProduct struct {
	ID               id.ID       `json:"id"`
	Name             string      `json:"name"`
	SellingPrice     types.Money `json:"sellingPrice"`
	MaxPossibleUnits int64       `json:"maxPossibleUnits"`
}

// MaxUnits is MIN over components of FLOOR(available / needed).
// A product without components yields zero.
func MaxUnits(components []product.Component) int64 {
	if len(components) == 0 {
		return 0
	}
	var limit int64 = -1
	for _, c := range components {
		units := types.FloorUnits(c.Available, decimal.NewFromInt(int64(c.QuantityNeeded)))
		if limit < 0 || units < limit {
			limit = units
		}
	}
	return limit
}

// RecordInput is the data for RecordSale.
type RecordInput struct {
	ProductID id.ID
	Quantity  int
	Notes     string
}

// DailyReport lists the sales of one day with totals.
type DailyReport struct {
	Date    time.Time   `json:"date"`
	Sales   []Sale      `json:"sales"`
	Revenue types.Money `json:"revenue"`
	Items   int         `json:"items"`
}
