package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/domain/catalogs/ingredient"
	"bakehouse/internal/domain/catalogs/recipe"
	"bakehouse/internal/domain/documents/production"
	"bakehouse/internal/domain/documents/wastage"
	"bakehouse/internal/infrastructure/http/v1/dto"
)

// RecipeService is the part of recipe.Service used over HTTP.
type RecipeService interface {
	Create(ctx context.Context, in recipe.CreateInput) (*recipe.Details, error)
	ListRecipes(ctx context.Context) ([]recipe.Summary, error)
	GetDetails(ctx context.Context, semiID id.ID) (*recipe.Details, error)
	ListInventory(ctx context.Context, search string) ([]recipe.InventoryRow, error)
	ListAvailable(ctx context.Context) ([]recipe.SemiFinished, error)
}

// ProductionService is the part of production.Service used over HTTP.
type ProductionService interface {
	CheckIngredients(ctx context.Context, semiID id.ID, quantity int) (*production.Plan, error)
	Record(ctx context.Context, in production.RecordInput) (*production.Run, error)
	ListRuns(ctx context.Context, limit int) ([]production.Run, error)
}

// WastageService is the part of wastage.Service used over HTTP.
type WastageService interface {
	Record(ctx context.Context, in wastage.RecordInput) (*wastage.Record, error)
	List(ctx context.Context, limit int) ([]wastage.Record, error)
}

// AvailableIngredients lists raw items with stock, for the wastage selector.
type AvailableIngredients interface {
	ListAvailable(ctx context.Context) ([]ingredient.Ingredient, error)
}

// KitchenHandler serves recipes, semi-finished inventory, production and wastage.
type KitchenHandler struct {
	*BaseHandler
	recipes     RecipeService
	production  ProductionService
	wastage     WastageService
	ingredients AvailableIngredients
}

func NewKitchenHandler(
	base *BaseHandler,
	recipes RecipeService,
	productionSvc ProductionService,
	wastageSvc WastageService,
	ingredients AvailableIngredients,
) *KitchenHandler {
	return &KitchenHandler{
		BaseHandler: base,
		recipes:     recipes,
		production:  productionSvc,
		wastage:     wastageSvc,
		ingredients: ingredients,
	}
}

// --- Recipes ---

// CreateRecipe handles POST /recipes
func (h *KitchenHandler) CreateRecipe(c *gin.Context) {
	var req dto.CreateRecipeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	details, err := h.recipes.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, details)
}

// ListRecipes handles GET /recipes
func (h *KitchenHandler) ListRecipes(c *gin.Context) {
	items, err := h.recipes.ListRecipes(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.Items(items))
}

// GetRecipe handles GET /recipes/:id
func (h *KitchenHandler) GetRecipe(c *gin.Context) {
	semiID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	details, err := h.recipes.GetDetails(c.Request.Context(), semiID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, details)
}

// ListSemiFinished handles GET /semi-finished?search=
func (h *KitchenHandler) ListSemiFinished(c *gin.Context) {
	items, err := h.recipes.ListInventory(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.Items(items))
}

// ListAvailableSemiFinished handles GET /semi-finished/available
func (h *KitchenHandler) ListAvailableSemiFinished(c *gin.Context) {
	items, err := h.recipes.ListAvailable(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.Items(items))
}

// --- Production ---

// CheckProduction handles POST /production/check
func (h *KitchenHandler) CheckProduction(c *gin.Context) {
	var req dto.CheckProductionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	plan, err := h.production.CheckIngredients(c.Request.Context(), req.SemiID, req.Quantity)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, plan)
}

// RecordProduction handles POST /production
func (h *KitchenHandler) RecordProduction(c *gin.Context) {
	var req dto.RecordProductionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	run, err := h.production.Record(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, run)
}

// ListProduction handles GET /production?limit=
func (h *KitchenHandler) ListProduction(c *gin.Context) {
	runs, err := h.production.ListRuns(c.Request.Context(), h.ParseIntQuery(c, "limit", 50))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.Items(runs))
}

// --- Wastage ---

// RecordWastage handles POST /wastage
func (h *KitchenHandler) RecordWastage(c *gin.Context) {
	var req dto.RecordWastageRequest
	if !h.BindJSON(c, &req) {
		return
	}
	rec, err := h.wastage.Record(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, rec)
}

// ListWastage handles GET /wastage?limit=
func (h *KitchenHandler) ListWastage(c *gin.Context) {
	records, err := h.wastage.List(c.Request.Context(), h.ParseIntQuery(c, "limit", 50))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.Items(records))
}

// WastageCandidates handles GET /wastage/candidates?itemType=raw|semi
func (h *KitchenHandler) WastageCandidates(c *gin.Context) {
	ctx := c.Request.Context()
	var out []dto.WastageCandidate

	switch entity.ItemKind(c.DefaultQuery("itemType", string(entity.ItemKindRaw))) {
	case entity.ItemKindRaw:
		items, err := h.ingredients.ListAvailable(ctx)
		if err != nil {
			h.Error(c, err)
			return
		}
		for _, it := range items {
			out = append(out, dto.WastageCandidate{ItemType: string(entity.ItemKindRaw), ID: it.ID, Name: it.Name, Quantity: it.Quantity})
		}
	case entity.ItemKindSemi:
		items, err := h.recipes.ListAvailable(ctx)
		if err != nil {
			h.Error(c, err)
			return
		}
		for _, it := range items {
			out = append(out, dto.WastageCandidate{ItemType: string(entity.ItemKindSemi), ID: it.ID, Name: it.Name, Quantity: it.Quantity})
		}
	default:
		h.Error(c, apperror.NewValidation("item type must be raw or semi").WithDetail("field", "itemType"))
		return
	}
	h.OK(c, dto.Items(out))
}
