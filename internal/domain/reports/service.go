// Package reports provides recipe cost analysis and the operations dashboard.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/catalogs/recipe"
	"bakehouse/pkg/logger"
)

// Service provides report generation operations.
type Service struct {
	repo      Repository
	txManager tx.ReadOnlyManager
	lowStock  *LowStockRule
	cache     SummaryCache
	now       func() time.Time
}

// NewService creates a new reports service. cache may be nil.
func NewService(repo Repository, txManager tx.ReadOnlyManager, lowStock *LowStockRule, cache SummaryCache) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		lowStock:  lowStock,
		cache:     cache,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// --- Costs ---

// RecipeCosts returns the batch and unit cost of every recipe with the
// average unit cost and the most expensive recipe.
func (s *Service) RecipeCosts(ctx context.Context) (*CostSummary, error) {
	lines, err := s.repo.CostLines(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load cost lines: %w", err)
	}

	summary := &CostSummary{Recipes: []RecipeCost{}, AverageCostPerUnit: decimal.Zero}
	index := make(map[id.ID]int)
	for _, l := range lines {
		i, ok := index[l.SemiID]
		if !ok {
			i = len(summary.Recipes)
			index[l.SemiID] = i
			summary.Recipes = append(summary.Recipes, RecipeCost{
				SemiID:         l.SemiID,
				Name:           l.SemiName,
				OutputQuantity: l.OutputQuantity,
				BatchCost:      decimal.Zero,
			})
		}
		summary.Recipes[i].BatchCost = summary.Recipes[i].BatchCost.Add(l.CostPerUnit.Mul(l.QuantityNeeded))
	}
	if len(summary.Recipes) == 0 {
		return summary, nil
	}

	total := decimal.Zero
	for i := range summary.Recipes {
		r := &summary.Recipes[i]
		r.CostPerUnit = unitCost(r.BatchCost, r.OutputQuantity)
		total = total.Add(r.CostPerUnit)
		if summary.MostExpensive == nil || r.CostPerUnit.GreaterThan(summary.MostExpensive.CostPerUnit) {
			summary.MostExpensive = r
		}
	}
	summary.AverageCostPerUnit = total.Div(decimal.NewFromInt(int64(len(summary.Recipes)))).Round(4)
	mostExpensive := *summary.MostExpensive
	summary.MostExpensive = &mostExpensive
	return summary, nil
}

// RecipeBreakdown returns each ingredient's share of a recipe's batch cost.
func (s *Service) RecipeBreakdown(ctx context.Context, semiID id.ID) (*Breakdown, error) {
	lines, err := s.repo.CostLines(ctx, &semiID)
	if err != nil {
		return nil, fmt.Errorf("load cost lines: %w", err)
	}
	if len(lines) == 0 {
		return nil, apperror.NewRecipeNotFound("Recipe not found!", semiID.String())
	}

	b := &Breakdown{
		RecipeCost: RecipeCost{
			SemiID:         semiID,
			Name:           lines[0].SemiName,
			OutputQuantity: lines[0].OutputQuantity,
			BatchCost:      decimal.Zero,
		},
		Lines: make([]BreakdownLine, 0, len(lines)),
	}
	for _, l := range lines {
		cost := l.CostPerUnit.Mul(l.QuantityNeeded)
		b.BatchCost = b.BatchCost.Add(cost)
		b.Lines = append(b.Lines, BreakdownLine{
			IngredientID: l.IngredientID,
			Name:         l.IngredientName,
			Quantity:     l.QuantityNeeded,
			UnitCost:     l.CostPerUnit,
			LineCost:     cost,
		})
	}
	for i := range b.Lines {
		b.Lines[i].Share = types.Percent(b.Lines[i].LineCost, b.BatchCost)
	}
	b.CostPerUnit = unitCost(b.BatchCost, b.OutputQuantity)
	return b, nil
}

// IngredientUsage returns each ingredient's contribution across all recipes,
// highest total quantity first.
func (s *Service) IngredientUsage(ctx context.Context) ([]IngredientUsage, error) {
	rows, err := s.repo.IngredientUsage(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ingredient usage: %w", err)
	}

	out := make([]IngredientUsage, 0, len(rows))
	total := decimal.Zero
	for _, r := range rows {
		cost := r.CostPerUnit.Mul(r.TotalNeeded)
		total = total.Add(cost)
		out = append(out, IngredientUsage{
			IngredientID:  r.IngredientID,
			Name:          r.Name,
			CostPerUnit:   r.CostPerUnit,
			UsedInRecipes: r.UsedInRecipes,
			TotalNeeded:   r.TotalNeeded,
			TotalCost:     cost,
		})
	}
	for i := range out {
		out[i].Share = types.Percent(out[i].TotalCost, total)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalNeeded.GreaterThan(out[j].TotalNeeded) })
	return out, nil
}

// --- Dashboard ---

// InventoryValue values raw and semi-finished stock. Semi-finished stock is
// valued at the cost of a whole recipe batch per unit.
func (s *Service) InventoryValue(ctx context.Context) (*InventoryValue, error) {
	raw, err := s.repo.RawStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("load raw stock: %w", err)
	}
	semi, err := s.repo.SemiStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("load semi-finished stock: %w", err)
	}
	return s.inventoryValue(raw, semi)
}

func (s *Service) inventoryValue(raw []RawStockRow, semi []SemiStockRow) (*InventoryValue, error) {
	v := &InventoryValue{
		RawValue:      decimal.Zero,
		SemiValue:     decimal.Zero,
		TotalRawItems: len(raw),
		LowStock:      []LowStockItem{},
	}
	for _, r := range raw {
		v.RawValue = v.RawValue.Add(r.Quantity.Mul(r.CostPerUnit))
		low, err := s.lowStock.Match(r.Quantity, r.CostPerUnit)
		if err != nil {
			return nil, err
		}
		if low {
			v.LowStock = append(v.LowStock, LowStockItem{ID: r.ID, Name: r.Name, Quantity: r.Quantity})
		}
	}
	v.LowStockCount = len(v.LowStock)
	for _, r := range semi {
		v.SemiValue = v.SemiValue.Add(r.Quantity.Mul(r.BatchCost))
	}
	v.TotalValue = v.RawValue.Add(v.SemiValue)
	return v, nil
}

// ExpiringItems returns stocked semi-finished items expiring within days, soonest first.
func (s *Service) ExpiringItems(ctx context.Context, days int) ([]ExpiringItem, error) {
	semi, err := s.repo.SemiStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("load semi-finished stock: %w", err)
	}
	return expiring(semi, days, s.now()), nil
}

func expiring(semi []SemiStockRow, days int, now time.Time) []ExpiringItem {
	if days <= 0 {
		days = DefaultExpiringDays
	}
	out := []ExpiringItem{}
	for _, r := range semi {
		if r.ExpiryDate == nil || !r.Quantity.IsPositive() {
			continue
		}
		left := recipe.DaysUntil(*r.ExpiryDate, now)
		if left > days {
			continue
		}
		out = append(out, ExpiringItem{
			ID:         r.ID,
			Name:       r.Name,
			Quantity:   r.Quantity,
			ExpiryDate: *r.ExpiryDate,
			DaysLeft:   left,
			Severity:   severity(left),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpiryDate.Before(out[j].ExpiryDate) })
	return out
}

func severity(daysLeft int) string {
	switch {
	case daysLeft <= 0:
		return SeverityExpired
	case daysLeft <= 2:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// WastageStats returns wastage value per day and item type over the last days.
func (s *Service) WastageStats(ctx context.Context, days int) (*WastageStats, error) {
	if days <= 0 {
		days = DefaultWastageDays
	}
	since := startOfDay(s.now()).AddDate(0, 0, -days)
	rows, err := s.repo.WastageByDay(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load wastage: %w", err)
	}
	stats := &WastageStats{Days: days, Rows: rows, TotalValue: decimal.Zero}
	if stats.Rows == nil {
		stats.Rows = []WastageDay{}
	}
	for _, r := range rows {
		stats.TotalValue = stats.TotalValue.Add(r.Value)
	}
	return stats, nil
}

// SalesMetrics returns today's and this month's totals and the month's top products.
func (s *Service) SalesMetrics(ctx context.Context) (*SalesMetrics, error) {
	today := startOfDay(s.now())
	month := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	var m SalesMetrics
	var err error
	if m.Today, err = s.repo.SalesTotals(ctx, today, tomorrow); err != nil {
		return nil, fmt.Errorf("load today's sales: %w", err)
	}
	if m.Month, err = s.repo.SalesTotals(ctx, month, month.AddDate(0, 1, 0)); err != nil {
		return nil, fmt.Errorf("load month's sales: %w", err)
	}
	if m.TopProducts, err = s.repo.TopProducts(ctx, month, month.AddDate(0, 1, 0), TopProductsLimit); err != nil {
		return nil, fmt.Errorf("load top products: %w", err)
	}
	sold := make([]TopProduct, 0, len(m.TopProducts))
	for _, p := range m.TopProducts {
		if p.UnitsSold > 0 {
			sold = append(sold, p)
		}
	}
	m.TopProducts = sold
	return &m, nil
}

// Summary returns the whole dashboard, from cache when possible. The
// sections are read in one read-only transaction.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var (
		generation int64
		cacheable  bool
	)
	if s.cache != nil {
		cached, gen, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			logger.Warn(ctx, "dashboard cache read failed", "error", err)
		case cached != nil:
			return cached, nil
		default:
			generation, cacheable = gen, true
		}
	}

	summary := &Summary{GeneratedAt: s.now()}
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		raw, err := s.repo.RawStock(ctx)
		if err != nil {
			return fmt.Errorf("load raw stock: %w", err)
		}
		semi, err := s.repo.SemiStock(ctx)
		if err != nil {
			return fmt.Errorf("load semi-finished stock: %w", err)
		}
		inv, err := s.inventoryValue(raw, semi)
		if err != nil {
			return err
		}
		summary.Inventory = *inv
		summary.Expiring = expiring(semi, DefaultExpiringDays, summary.GeneratedAt)

		wastage, err := s.WastageStats(ctx, DefaultWastageDays)
		if err != nil {
			return err
		}
		summary.Wastage = *wastage

		sales, err := s.SalesMetrics(ctx)
		if err != nil {
			return err
		}
		summary.Sales = *sales
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.cache.Set(ctx, generation, summary); err != nil {
			logger.Warn(ctx, "dashboard cache write failed", "error", err)
		}
	}
	return summary, nil
}

func unitCost(batch types.Money, output int) types.Money {
	if output <= 0 {
		return decimal.Zero
	}
	return batch.Div(decimal.NewFromInt(int64(output))).Round(4)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
