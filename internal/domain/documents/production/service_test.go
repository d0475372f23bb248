package production

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/audit"
	"bakehouse/internal/domain/catalogs/recipe"
	"bakehouse/internal/domain/events"
	"bakehouse/internal/domain/registers/stock"
)

type fakeRecipes struct {
	semi  recipe.SemiFinished
	lines []recipe.Line
	stock *stock.MemoryRepository
}

func (f *fakeRecipes) GetByID(_ context.Context, semiID id.ID) (*recipe.SemiFinished, error) {
	if semiID != f.semi.ID {
		return nil, apperror.NewNotFound("semi_finished", semiID.String())
	}
	cp := f.semi
	return &cp, nil
}

func (f *fakeRecipes) GetLines(_ context.Context, _ []id.ID) ([]recipe.Line, error) {
	out := make([]recipe.Line, len(f.lines))
	for i, l := range f.lines {
		l.Available = f.stock.Level(entity.ItemRef{Kind: entity.ItemKindRaw, ID: l.IngredientID})
		out[i] = l
	}
	return out, nil
}

func (f *fakeRecipes) SetExpiry(_ context.Context, _ id.ID, expiry *time.Time) error {
	f.semi.ExpiryDate = expiry
	return nil
}

type fakeRuns struct{ runs []Run }

func (f *fakeRuns) CreateRun(_ context.Context, run *Run) error {
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeRuns) ListRuns(_ context.Context, limit int) ([]Run, error) {
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

type fixture struct {
	svc     *Service
	stock   *stock.MemoryRepository
	recipes *fakeRecipes
	runs    *fakeRuns
	flour   id.ID
	sugar   id.ID
	events  []events.Event
}

func newFixture(t *testing.T, flourQty, sugarQty string) *fixture {
	t.Helper()
	st := stock.NewMemoryRepository()
	f := &fixture{stock: st, flour: id.New(), sugar: id.New(), runs: &fakeRuns{}}

	st.Put(entity.StockLevel{Kind: entity.ItemKindRaw, ID: f.flour, Name: "Flour", Quantity: types.MustDecimal(flourQty)})
	st.Put(entity.StockLevel{Kind: entity.ItemKindRaw, ID: f.sugar, Name: "Sugar", Quantity: types.MustDecimal(sugarQty)})

	semi := recipe.SemiFinished{ID: id.New(), Name: "Sponge", OutputQuantity: 4}
	st.Put(entity.StockLevel{Kind: entity.ItemKindSemi, ID: semi.ID, Name: semi.Name})

	f.recipes = &fakeRecipes{
		semi:  semi,
		stock: st,
		lines: []recipe.Line{
			{SemiID: semi.ID, IngredientID: f.flour, IngredientName: "Flour", QuantityNeeded: types.MustDecimal("200")},
			{SemiID: semi.ID, IngredientID: f.sugar, IngredientName: "Sugar", QuantityNeeded: types.MustDecimal("80")},
		},
	}

	pub := events.PublisherFunc(func(_ context.Context, e events.Event) error {
		f.events = append(f.events, e)
		return nil
	})
	f.svc = NewService(f.runs, f.recipes, tx.Passthrough{}, stock.NewService(st), pub, audit.Nop{})
	return f
}

func TestCheckIngredients(t *testing.T) {
	f := newFixture(t, "1000", "1000")

	plan, err := f.svc.CheckIngredients(context.Background(), f.recipes.semi.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, "2.5", plan.Batches.String())
	require.Len(t, plan.Requirements, 2)
	assert.Equal(t, "500", plan.Requirements[0].Needed.String())
	assert.Equal(t, "200", plan.Requirements[1].Needed.String())
}

func TestCheckIngredients_Shortage(t *testing.T) {
	f := newFixture(t, "300", "1000")

	_, err := f.svc.CheckIngredients(context.Background(), f.recipes.semi.ID, 10)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, "Not enough Flour. Need 500.00g but only 300.00g available.", appErr.Message)
}

func TestCheckIngredients_InvalidQuantity(t *testing.T) {
	f := newFixture(t, "1000", "1000")
	_, err := f.svc.CheckIngredients(context.Background(), f.recipes.semi.ID, 0)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRecord(t *testing.T) {
	f := newFixture(t, "1000", "1000")
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	userID := id.New()
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: userID.String(), Role: appctx.RoleKitchen})

	run, err := f.svc.Record(ctx, RecordInput{SemiID: f.recipes.semi.ID, Quantity: 6})
	require.NoError(t, err)

	assert.Equal(t, "1.5", run.Batches.String())
	assert.Equal(t, now.Add(DefaultShelfLife), run.ExpiryDate)
	require.NotNil(t, run.RecordedBy)
	assert.Equal(t, userID, *run.RecordedBy)

	assert.Equal(t, "700", f.stock.Level(entity.ItemRef{Kind: entity.ItemKindRaw, ID: f.flour}).String())
	assert.Equal(t, "880", f.stock.Level(entity.ItemRef{Kind: entity.ItemKindRaw, ID: f.sugar}).String())
	assert.Equal(t, "6", f.stock.Level(entity.ItemRef{Kind: entity.ItemKindSemi, ID: f.recipes.semi.ID}).String())
	require.NotNil(t, f.recipes.semi.ExpiryDate)
	assert.Equal(t, run.ExpiryDate, *f.recipes.semi.ExpiryDate)

	require.Len(t, f.stock.Movements, 3)
	for _, m := range f.stock.Movements {
		assert.Equal(t, run.ID, m.RecorderID)
		assert.Equal(t, entity.RecorderProduction, m.RecorderType)
	}
	require.Len(t, f.runs.runs, 1)
	require.Len(t, f.events, 1)
	assert.Equal(t, events.TypeProductionRecorded, f.events[0].Type)
}

func TestRecord_ShortageLeavesStockUntouched(t *testing.T) {
	f := newFixture(t, "1000", "100")

	_, err := f.svc.Record(context.Background(), RecordInput{SemiID: f.recipes.semi.ID, Quantity: 8})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Not enough Sugar. Need 160.00g but only 100.00g available.", appErr.Message)

	assert.Equal(t, "1000", f.stock.Level(entity.ItemRef{Kind: entity.ItemKindRaw, ID: f.flour}).String())
	assert.True(t, f.stock.Level(entity.ItemRef{Kind: entity.ItemKindSemi, ID: f.recipes.semi.ID}).IsZero())
	assert.Empty(t, f.stock.Movements)
	assert.Empty(t, f.runs.runs)
	assert.Empty(t, f.events)
}

func TestRecord_ExplicitExpiry(t *testing.T) {
	f := newFixture(t, "1000", "1000")
	expiry := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	run, err := f.svc.Record(context.Background(), RecordInput{SemiID: f.recipes.semi.ID, Quantity: 1, ExpiryDate: &expiry})
	require.NoError(t, err)
	assert.Equal(t, expiry, run.ExpiryDate)
}

func TestRecord_NoRecipe(t *testing.T) {
	f := newFixture(t, "1000", "1000")
	f.recipes.lines = nil

	_, err := f.svc.Record(context.Background(), RecordInput{SemiID: f.recipes.semi.ID, Quantity: 1})
	assert.True(t, apperror.HasCode(err, apperror.CodeRecipeNotFound))
}

func TestRecord_SubScaleRequirementPostsNothing(t *testing.T) {
	f := newFixture(t, "1000", "1000")
	f.recipes.semi.OutputQuantity = 1000
	f.recipes.lines[0].QuantityNeeded = types.MustDecimal("0.1")

	run, err := f.svc.Record(context.Background(), RecordInput{SemiID: f.recipes.semi.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "0.001", run.Batches.String())

	assert.Equal(t, "1000", f.stock.Level(entity.ItemRef{Kind: entity.ItemKindRaw, ID: f.flour}).String())
	assert.Equal(t, "999.92", f.stock.Level(entity.ItemRef{Kind: entity.ItemKindRaw, ID: f.sugar}).String())
	require.Len(t, f.stock.Movements, 2)
	for _, m := range f.stock.Movements {
		assert.True(t, m.Quantity.IsPositive())
		assert.True(t, m.Quantity.Equal(types.RoundQty(m.Quantity)))
	}
}
