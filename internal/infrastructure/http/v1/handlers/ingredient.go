package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain"
	"bakehouse/internal/domain/catalogs/ingredient"
	"bakehouse/internal/infrastructure/http/v1/dto"
)

// IngredientService is the part of ingredient.Service used over HTTP.
type IngredientService interface {
	Create(ctx context.Context, in ingredient.CreateInput) (*ingredient.Ingredient, error)
	UpdateStock(ctx context.Context, ingredientID id.ID, quantity types.Quantity, op ingredient.StockOperation) (*ingredient.Ingredient, error)
	Update(ctx context.Context, ingredientID id.ID, in ingredient.UpdateInput) (*ingredient.Ingredient, error)
	Delete(ctx context.Context, ingredientID id.ID) error
	GetByID(ctx context.Context, ingredientID id.ID) (*ingredient.Ingredient, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[ingredient.Ingredient], error)
	ListAvailable(ctx context.Context) ([]ingredient.Ingredient, error)
}

// IngredientHandler serves the raw stock endpoints.
type IngredientHandler struct {
	*BaseHandler
	service IngredientService
}

func NewIngredientHandler(base *BaseHandler, service IngredientService) *IngredientHandler {
	return &IngredientHandler{BaseHandler: base, service: service}
}

// List handles GET /ingredients?search=&limit=&offset=
func (h *IngredientHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// ListAvailable handles GET /ingredients/available
func (h *IngredientHandler) ListAvailable(c *gin.Context) {
	items, err := h.service.ListAvailable(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.Items(items))
}

// Get handles GET /ingredients/:id
func (h *IngredientHandler) Get(c *gin.Context) {
	ingredientID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	item, err := h.service.GetByID(c.Request.Context(), ingredientID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, item)
}

// Create handles POST /ingredients
func (h *IngredientHandler) Create(c *gin.Context) {
	var req dto.CreateIngredientRequest
	if !h.BindJSON(c, &req) {
		return
	}
	item, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, item)
}

// Update handles PUT /ingredients/:id
func (h *IngredientHandler) Update(c *gin.Context) {
	ingredientID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateIngredientRequest
	if !h.BindJSON(c, &req) {
		return
	}
	item, err := h.service.Update(c.Request.Context(), ingredientID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, item)
}

// UpdateStock handles POST /ingredients/:id/stock
func (h *IngredientHandler) UpdateStock(c *gin.Context) {
	ingredientID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	item, err := h.service.UpdateStock(c.Request.Context(), ingredientID, req.Quantity, ingredient.StockOperation(req.Operation))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, item)
}

// Delete handles DELETE /ingredients/:id
func (h *IngredientHandler) Delete(c *gin.Context) {
	ingredientID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), ingredientID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
