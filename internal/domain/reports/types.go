package reports

import (
	"time"

	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
)

// Severity of an expiring item.
const (
	SeverityExpired = "expired"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Default report windows.
const (
	DefaultExpiringDays = 7
	DefaultWastageDays  = 30
	TopProductsLimit    = 5
)

// --- Cost analysis ---

// CostLine is one recipe line joined with ingredient cost.
type CostLine struct {
	SemiID         id.ID          `db:"semi_id"`
	SemiName       string         `db:"semi_name"`
	OutputQuantity int            `db:"output_quantity"`
	IngredientID   id.ID          `db:"ingredient_id"`
	IngredientName string         `db:"ingredient_name"`
	QuantityNeeded types.Quantity `db:"quantity_needed"`
	CostPerUnit    types.Money    `db:"cost_per_unit"`
}

// RecipeCost is the cost of one batch of a recipe.
type RecipeCost struct {
	SemiID         id.ID       `json:"semiId"`
	Name           string      `json:"name"`
	OutputQuantity int         `json:"outputQuantity"`
	BatchCost      types.Money `json:"totalCost"`
	CostPerUnit    types.Money `json:"costPerUnit"`
}

// CostSummary is the result of RecipeCosts.
type CostSummary struct {
	Recipes            []RecipeCost `json:"recipes"`
	AverageCostPerUnit types.Money  `json:"averageCostPerUnit"`
	MostExpensive      *RecipeCost  `json:"mostExpensive,omitempty"`
}

// BreakdownLine is the contribution of one ingredient to a batch.
type BreakdownLine struct {
	IngredientID id.ID          `json:"ingredientId"`
	Name         string         `json:"name"`
	Quantity     types.Quantity `json:"quantity"`
	UnitCost     types.Money    `json:"unitCost"`
	LineCost     types.Money    `json:"lineCost"`
	Share        types.Money    `json:"percentage"`
}

// Breakdown is the per-ingredient cost of a recipe.
type Breakdown struct {
	RecipeCost
	Lines []BreakdownLine `json:"lines"`
}

// UsageRow is the raw aggregate of an ingredient across recipes.
type UsageRow struct {
	IngredientID  id.ID          `db:"ingredient_id"`
	Name          string         `db:"name"`
	CostPerUnit   types.Money    `db:"cost_per_unit"`
	UsedInRecipes int            `db:"used_in_recipes"`
	TotalNeeded   types.Quantity `db:"total_needed"`
}

// IngredientUsage is one row of the ingredient usage analysis.
type IngredientUsage struct {
	IngredientID  id.ID          `json:"ingredientId"`
	Name          string         `json:"name"`
	CostPerUnit   types.Money    `json:"costPerUnit"`
	UsedInRecipes int            `json:"usedInRecipes"`
	TotalNeeded   types.Quantity `json:"totalNeeded"`
	TotalCost     types.Money    `json:"totalCost"`
	Share         types.Money    `json:"percentage"`
}

// --- Dashboard ---

// RawStockRow is the stock and cost of one ingredient.
type RawStockRow struct {
	ID          id.ID          `db:"id"`
	Name        string         `db:"name"`
	Quantity    types.Quantity `db:"quantity"`
	CostPerUnit types.Money    `db:"cost_per_unit"`
}

// SemiStockRow is the stock, expiry and batch cost of one semi-finished item.
type SemiStockRow struct {
	ID         id.ID          `db:"id"`
	Name       string         `db:"name"`
	Quantity   types.Quantity `db:"quantity"`
	ExpiryDate *time.Time     `db:"expiry_date"`
	BatchCost  types.Money    `db:"batch_cost"`
}

// LowStockItem is an ingredient matched by the low-stock rule.
type LowStockItem struct {
	ID       id.ID          `json:"id"`
	Name     string         `json:"name"`
	Quantity types.Quantity `json:"quantity"`
}

// InventoryValue summarizes the value of stock on hand.
type InventoryValue struct {
	RawValue      types.Money    `json:"rawValue"`
	TotalRawItems int            `json:"totalRawItems"`
	LowStockCount int            `json:"lowStockItems"`
	LowStock      []LowStockItem `json:"lowStock"`
	SemiValue     types.Money    `json:"semiValue"`
	TotalValue    types.Money    `json:"totalValue"`
}

// ExpiringItem is a semi-finished item close to or past its expiry date.
type ExpiringItem struct {
	ID         id.ID          `json:"id"`
	Name       string         `json:"name"`
	Quantity   types.Quantity `json:"quantity"`
	ExpiryDate time.Time      `json:"expiryDate"`
	DaysLeft   int            `json:"daysLeft"`
	Severity   string         `json:"severity"`
}

// WastageDay is the wastage of one item type on one day.
type WastageDay struct {
	Date     time.Time       `db:"waste_date" json:"date"`
	ItemType entity.ItemKind `db:"item_type" json:"itemType"`
	Quantity types.Quantity  `db:"total_quantity" json:"quantity"`
	Value    types.Money     `db:"total_value" json:"value"`
}

// WastageStats is the wastage over a window.
type WastageStats struct {
	Days       int          `json:"days"`
	Rows       []WastageDay `json:"rows"`
	TotalValue types.Money  `json:"totalValue"`
}

// SalesTotals are revenue and units of a period.
type SalesTotals struct {
	Revenue types.Money `db:"revenue" json:"revenue"`
	Units   int64       `db:"units" json:"units"`
}

// TopProduct is a product ranked by units sold.
type TopProduct struct {
	ProductID id.ID       `db:"product_id" json:"productId"`
	Name      string      `db:"name" json:"name"`
	UnitsSold int64       `db:"units_sold" json:"unitsSold"`
	Revenue   types.Money `db:"revenue" json:"revenue"`
}

// SalesMetrics are today's and this month's sales.
type SalesMetrics struct {
	Today       SalesTotals  `json:"today"`
	Month       SalesTotals  `json:"month"`
	TopProducts []TopProduct `json:"topProducts"`
}

// Summary is the whole operations dashboard.
type Summary struct {
	Inventory   InventoryValue `json:"inventory"`
	Expiring    []ExpiringItem `json:"expiring"`
	Wastage     WastageStats   `json:"wastage"`
	Sales       SalesMetrics   `json:"sales"`
	GeneratedAt time.Time      `json:"generatedAt"`
}
