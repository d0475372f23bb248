package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain"
	"bakehouse/internal/domain/catalogs/ingredient"
	"bakehouse/internal/domain/catalogs/recipe"
	"bakehouse/internal/domain/documents/sale"
	"bakehouse/internal/infrastructure/http/v1/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body middleware.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

// --- fakes ---

type ingredientFake struct {
	IngredientService
	createErr error
	lastOp    ingredient.StockOperation
	lastQty   types.Quantity
	available []ingredient.Ingredient
}

func (f *ingredientFake) Create(_ context.Context, in ingredient.CreateInput) (*ingredient.Ingredient, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &ingredient.Ingredient{ID: id.New(), Name: in.Name, Quantity: in.Quantity}, nil
}

func (f *ingredientFake) UpdateStock(_ context.Context, ingredientID id.ID, quantity types.Quantity, op ingredient.StockOperation) (*ingredient.Ingredient, error) {
	f.lastOp, f.lastQty = op, quantity
	return &ingredient.Ingredient{ID: ingredientID, Quantity: quantity}, nil
}

func (f *ingredientFake) List(_ context.Context, filter domain.ListFilter) (domain.ListResult[ingredient.Ingredient], error) {
	return domain.NewListResult(f.available, int64(len(f.available)), filter), nil
}

func (f *ingredientFake) ListAvailable(context.Context) ([]ingredient.Ingredient, error) {
	return f.available, nil
}

type recipeFake struct {
	RecipeService
	available []recipe.SemiFinished
}

func (f *recipeFake) ListAvailable(context.Context) ([]recipe.SemiFinished, error) {
	return f.available, nil
}

type saleFake struct {
	SaleService
	date time.Time
}

func (f *saleFake) Daily(_ context.Context, date time.Time) (*sale.DailyReport, error) {
	f.date = date
	return &sale.DailyReport{Date: date}, nil
}

// --- ingredients ---

func TestIngredientHandler_UpdateStock(t *testing.T) {
	svc := &ingredientFake{}
	h := NewIngredientHandler(NewBaseHandler(), svc)
	r := newEngine()
	r.POST("/ingredients/:id/stock", h.UpdateStock)

	ingID := id.New()
	rec := serve(r, http.MethodPost, "/ingredients/"+ingID.String()+"/stock", `{"quantity":"250.5","operation":"subtract"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ingredient.OperationSubtract, svc.lastOp)
	assert.True(t, decimal.RequireFromString("250.5").Equal(svc.lastQty))

	rec = serve(r, http.MethodPost, "/ingredients/"+ingID.String()+"/stock", `{"quantity":"1","operation":"multiply"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperror.CodeValidation, errorCode(t, rec))

	rec = serve(r, http.MethodPost, "/ingredients/not-an-id/stock", `{"quantity":"1","operation":"add"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngredientHandler_CreateDuplicate(t *testing.T) {
	svc := &ingredientFake{createErr: apperror.NewDuplicate("Ingredient already exists", "ingredient", "name", "Flour")}
	h := NewIngredientHandler(NewBaseHandler(), svc)
	r := newEngine()
	r.POST("/ingredients", h.Create)

	rec := serve(r, http.MethodPost, "/ingredients", `{"name":"Flour","quantity":"1000","costPerUnit":"0.002"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperror.CodeDuplicate, errorCode(t, rec))
}

func TestIngredientHandler_ListPaging(t *testing.T) {
	svc := &ingredientFake{available: []ingredient.Ingredient{{ID: id.New(), Name: "Butter"}}}
	h := NewIngredientHandler(NewBaseHandler(), svc)
	r := newEngine()
	r.GET("/ingredients", h.List)

	rec := serve(r, http.MethodGet, "/ingredients?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "limit is capped at 100")

	rec = serve(r, http.MethodGet, "/ingredients?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Butter")
}

// --- kitchen ---

func TestKitchenHandler_WastageCandidates(t *testing.T) {
	ingredients := &ingredientFake{available: []ingredient.Ingredient{{ID: id.New(), Name: "Flour", Quantity: decimal.NewFromInt(500)}}}
	recipes := &recipeFake{available: []recipe.SemiFinished{{ID: id.New(), Name: "Croissant dough", Quantity: decimal.NewFromInt(12)}}}
	h := NewKitchenHandler(NewBaseHandler(), recipes, nil, nil, ingredients)
	r := newEngine()
	r.GET("/wastage/candidates", h.WastageCandidates)

	tests := []struct {
		query    string
		wantCode int
		wantName string
	}{
		{"", http.StatusOK, "Flour"},
		{"?itemType=raw", http.StatusOK, "Flour"},
		{"?itemType=semi", http.StatusOK, "Croissant dough"},
		{"?itemType=product", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := serve(r, http.MethodGet, "/wastage/candidates"+tt.query, "")
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantName != "" {
				assert.Contains(t, rec.Body.String(), tt.wantName)
			}
		})
	}
}

// --- operations ---

func TestOperationsHandler_DailySales(t *testing.T) {
	sales := &saleFake{}
	h := NewOperationsHandler(NewBaseHandler(), nil, sales, nil)
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }
	r := newEngine()
	r.GET("/sales/daily", h.DailySales)

	rec := serve(r, http.MethodGet, "/sales/daily", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fixed, sales.date)

	rec = serve(r, http.MethodGet, "/sales/daily?date=2026-01-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), sales.date)

	rec = serve(r, http.MethodGet, "/sales/daily?date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- health ---

func TestHealthHandler_Ready(t *testing.T) {
	healthy := NewHealthHandler("1.0.0", map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return nil }),
	})
	failing := NewHealthHandler("1.0.0", map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	r := gin.New()
	r.GET("/ok", healthy.Ready)
	r.GET("/bad", failing.Ready)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ok", "").Code)

	rec := serve(r, http.MethodGet, "/bad", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
