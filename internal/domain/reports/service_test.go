package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/core/types"
)

type fakeRepo struct {
	costLines  []CostLine
	usage      []UsageRow
	raw        []RawStockRow
	semi       []SemiStockRow
	wastage    []WastageDay
	totals     map[time.Time]SalesTotals
	top        []TopProduct
	wastedFrom time.Time
	calls      int
	onRawStock func()
}

func (f *fakeRepo) CostLines(_ context.Context, semiID *id.ID) ([]CostLine, error) {
	if semiID == nil {
		return f.costLines, nil
	}
	var out []CostLine
	for _, l := range f.costLines {
		if l.SemiID == *semiID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeRepo) IngredientUsage(context.Context) ([]UsageRow, error) { return f.usage, nil }

func (f *fakeRepo) RawStock(context.Context) ([]RawStockRow, error) {
	f.calls++
	if f.onRawStock != nil {
		f.onRawStock()
	}
	return f.raw, nil
}

func (f *fakeRepo) SemiStock(context.Context) ([]SemiStockRow, error) { return f.semi, nil }

func (f *fakeRepo) WastageByDay(_ context.Context, since time.Time) ([]WastageDay, error) {
	f.wastedFrom = since
	return f.wastage, nil
}

func (f *fakeRepo) SalesTotals(_ context.Context, from, _ time.Time) (SalesTotals, error) {
	return f.totals[from], nil
}

func (f *fakeRepo) TopProducts(context.Context, time.Time, time.Time, int) ([]TopProduct, error) {
	return f.top, nil
}

type memCache struct {
	summary *Summary
	gen     int64
	sets    int
	failGet bool
}

func (c *memCache) Get(context.Context) (*Summary, int64, error) {
	if c.failGet {
		return nil, 0, errors.New("redis down")
	}
	return c.summary, c.gen, nil
}

func (c *memCache) Set(_ context.Context, gen int64, s *Summary) error {
	c.sets++
	if gen == c.gen {
		c.summary = s
	}
	return nil
}

var now = time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, repo *fakeRepo, cache SummaryCache) *Service {
	t.Helper()
	rule, err := NewLowStockRule("")
	require.NoError(t, err)
	svc := NewService(repo, tx.Passthrough{}, rule, cache)
	svc.now = func() time.Time { return now }
	return svc
}

func costFixture() (*fakeRepo, id.ID, id.ID) {
	sponge, dough := id.New(), id.New()
	flour, sugar := id.New(), id.New()
	return &fakeRepo{costLines: []CostLine{
		{SemiID: dough, SemiName: "Dough", OutputQuantity: 2, IngredientID: flour, IngredientName: "Flour", QuantityNeeded: types.MustDecimal("500"), CostPerUnit: types.MustDecimal("0.002")},
		{SemiID: sponge, SemiName: "Sponge", OutputQuantity: 4, IngredientID: flour, IngredientName: "Flour", QuantityNeeded: types.MustDecimal("200"), CostPerUnit: types.MustDecimal("0.002")},
		{SemiID: sponge, SemiName: "Sponge", OutputQuantity: 4, IngredientID: sugar, IngredientName: "Sugar", QuantityNeeded: types.MustDecimal("100"), CostPerUnit: types.MustDecimal("0.036")},
	}}, sponge, dough
}

func TestRecipeCosts(t *testing.T) {
	repo, sponge, _ := costFixture()
	svc := newService(t, repo, nil)

	got, err := svc.RecipeCosts(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Recipes, 2)

	assert.Equal(t, "Dough", got.Recipes[0].Name)
	assert.Equal(t, "1", got.Recipes[0].BatchCost.String())
	assert.Equal(t, "0.5", got.Recipes[0].CostPerUnit.String())
	assert.Equal(t, "4", got.Recipes[1].BatchCost.String())
	assert.Equal(t, "1", got.Recipes[1].CostPerUnit.String())
	assert.Equal(t, "0.75", got.AverageCostPerUnit.String())
	require.NotNil(t, got.MostExpensive)
	assert.Equal(t, sponge, got.MostExpensive.SemiID)
}

func TestRecipeBreakdown(t *testing.T) {
	repo, sponge, _ := costFixture()
	svc := newService(t, repo, nil)

	b, err := svc.RecipeBreakdown(context.Background(), sponge)
	require.NoError(t, err)
	require.Len(t, b.Lines, 2)
	assert.Equal(t, "0.4", b.Lines[0].LineCost.String())
	assert.Equal(t, "10", b.Lines[0].Share.String())
	assert.Equal(t, "90", b.Lines[1].Share.String())

	_, err = svc.RecipeBreakdown(context.Background(), id.New())
	assert.True(t, apperror.HasCode(err, apperror.CodeRecipeNotFound))
}

func TestIngredientUsage(t *testing.T) {
	repo := &fakeRepo{usage: []UsageRow{
		{Name: "Salt", CostPerUnit: types.MustDecimal("0.01"), TotalNeeded: types.MustDecimal("0")},
		{Name: "Flour", CostPerUnit: types.MustDecimal("0.002"), UsedInRecipes: 2, TotalNeeded: types.MustDecimal("700")},
		{Name: "Sugar", CostPerUnit: types.MustDecimal("0.042"), UsedInRecipes: 1, TotalNeeded: types.MustDecimal("100")},
	}}
	svc := newService(t, repo, nil)

	got, err := svc.IngredientUsage(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Flour", got[0].Name)
	assert.Equal(t, "1.4", got[0].TotalCost.String())
	assert.Equal(t, "25", got[0].Share.String())
	assert.Equal(t, "75", got[1].Share.String())
	assert.Equal(t, "Salt", got[2].Name)
	assert.True(t, got[2].Share.IsZero())
}

func TestInventoryValue(t *testing.T) {
	repo := &fakeRepo{
		raw: []RawStockRow{
			{Name: "Flour", Quantity: types.MustDecimal("5000"), CostPerUnit: types.MustDecimal("0.002")},
			{Name: "Vanilla", Quantity: types.MustDecimal("50"), CostPerUnit: types.MustDecimal("1")},
		},
		semi: []SemiStockRow{{Name: "Sponge", Quantity: types.MustDecimal("3"), BatchCost: types.MustDecimal("4")}},
	}
	svc := newService(t, repo, nil)

	v, err := svc.InventoryValue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "60", v.RawValue.String())
	assert.Equal(t, 2, v.TotalRawItems)
	assert.Equal(t, 1, v.LowStockCount)
	assert.Equal(t, "Vanilla", v.LowStock[0].Name)
	assert.Equal(t, "12", v.SemiValue.String())
	assert.Equal(t, "72", v.TotalValue.String())
}

func TestExpiringItems(t *testing.T) {
	at := func(days int) *time.Time {
		d := time.Date(2026, 7, 15+days, 0, 0, 0, 0, time.UTC)
		return &d
	}
	repo := &fakeRepo{semi: []SemiStockRow{
		{Name: "Far", Quantity: types.MustDecimal("1"), ExpiryDate: at(8)},
		{Name: "Week", Quantity: types.MustDecimal("1"), ExpiryDate: at(7)},
		{Name: "Soon", Quantity: types.MustDecimal("1"), ExpiryDate: at(2)},
		{Name: "Gone", Quantity: types.MustDecimal("1"), ExpiryDate: at(-1)},
		{Name: "Empty", Quantity: types.MustDecimal("0"), ExpiryDate: at(1)},
		{Name: "Never", Quantity: types.MustDecimal("1")},
	}}
	svc := newService(t, repo, nil)

	items, err := svc.ExpiringItems(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Gone", items[0].Name)
	assert.Equal(t, SeverityExpired, items[0].Severity)
	assert.Equal(t, SeverityWarning, items[1].Severity)
	assert.Equal(t, SeverityInfo, items[2].Severity)
	assert.Equal(t, 7, items[2].DaysLeft)
}

func TestWastageStats(t *testing.T) {
	repo := &fakeRepo{wastage: []WastageDay{
		{ItemType: entity.ItemKindRaw, Value: types.MustDecimal("2.5")},
		{ItemType: entity.ItemKindSemi, Value: types.MustDecimal("8")},
	}}
	svc := newService(t, repo, nil)

	stats, err := svc.WastageStats(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultWastageDays, stats.Days)
	assert.Equal(t, "10.5", stats.TotalValue.String())
	assert.Equal(t, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), repo.wastedFrom)
}

func TestSalesMetrics(t *testing.T) {
	today := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	month := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{totals: map[time.Time]SalesTotals{
		today: {Revenue: types.MustDecimal("40"), Units: 4},
		month: {Revenue: types.MustDecimal("900"), Units: 70},
	}}
	svc := newService(t, repo, nil)

	m, err := svc.SalesMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), m.Today.Units)
	assert.Equal(t, "900", m.Month.Revenue.String())
	assert.NotNil(t, m.TopProducts)
}

func TestSalesMetrics_TopProductsSkipsUnsold(t *testing.T) {
	repo := &fakeRepo{top: []TopProduct{
		{Name: "Baguette", UnitsSold: 12, Revenue: types.MustDecimal("36")},
		{Name: "Brioche", UnitsSold: 0, Revenue: types.MustDecimal("0")},
	}}
	svc := newService(t, repo, nil)

	m, err := svc.SalesMetrics(context.Background())
	require.NoError(t, err)
	require.Len(t, m.TopProducts, 1)
	assert.Equal(t, "Baguette", m.TopProducts[0].Name)

	repo.top = []TopProduct{{Name: "Brioche"}}
	m, err = svc.SalesMetrics(context.Background())
	require.NoError(t, err)
	assert.Empty(t, m.TopProducts)
	assert.NotNil(t, m.TopProducts)
}

func TestSummary_UsesCache(t *testing.T) {
	repo := &fakeRepo{}
	cache := &memCache{}
	svc := newService(t, repo, cache)

	first, err := svc.Summary(context.Background())
	require.NoError(t, err)
	second, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, repo.calls)
}

func TestSummary_CacheFailureFallsBack(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(t, repo, &memCache{failGet: true})

	_, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
}

func TestSummary_StoresUnderGenerationReadFirst(t *testing.T) {
	repo := &fakeRepo{}
	cache := &memCache{gen: 3}
	svc := newService(t, repo, cache)

	// An invalidation lands while the summary is being built.
	repo.onRawStock = func() { cache.gen++ }

	_, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Nil(t, cache.summary)

	repo.onRawStock = nil
	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cache.summary)
	assert.Equal(t, 2, repo.calls)
}
