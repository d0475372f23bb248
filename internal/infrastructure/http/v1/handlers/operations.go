package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/id"
	"bakehouse/internal/domain/catalogs/product"
	"bakehouse/internal/domain/catalogs/recipe"
	"bakehouse/internal/domain/documents/sale"
	"bakehouse/internal/infrastructure/http/v1/dto"
)

// ProductService is the part of product.Service used over HTTP.
type ProductService interface {
	Create(ctx context.Context, in product.CreateInput) (*product.Details, error)
	Get(ctx context.Context, productID id.ID) (*product.Details, error)
	List(ctx context.Context) ([]product.Summary, error)
}

// SaleService is the part of sale.Service used over HTTP.
type SaleService interface {
	ListAvailableProducts(ctx context.Context) ([]sale.AvailableProduct, error)
	CheckAvailability(ctx context.Context, productID id.ID, quantity int) error
	Record(ctx context.Context, in sale.RecordInput) (*sale.Sale, error)
	Daily(ctx context.Context, date time.Time) (*sale.DailyReport, error)
}

// AvailableSemiFinished lists semi-finished items with stock, for the product form.
type AvailableSemiFinished interface {
	ListAvailable(ctx context.Context) ([]recipe.SemiFinished, error)
}

// OperationsHandler serves products and sales.
type OperationsHandler struct {
	*BaseHandler
	products ProductService
	sales    SaleService
	semis    AvailableSemiFinished
	now      func() time.Time
}

func NewOperationsHandler(base *BaseHandler, products ProductService, sales SaleService, semis AvailableSemiFinished) *OperationsHandler {
	return &OperationsHandler{
		BaseHandler: base,
		products:    products,
		sales:       sales,
		semis:       semis,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// --- Products ---

// CreateProduct handles POST /products
func (h *OperationsHandler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	details, err := h.products.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, details)
}

// ListProducts handles GET /products
func (h *OperationsHandler) ListProducts(c *gin.Context) {
	items, err := h.products.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.Items(items))
}

// GetProduct handles GET /products/:id
func (h *OperationsHandler) GetProduct(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	details, err := h.products.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, details)
}

// ListComponents handles GET /products/components
func (h *OperationsHandler) ListComponents(c *gin.Context) {
	items, err := h.semis.ListAvailable(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.Items(items))
}

// --- Sales ---

// ListAvailableProducts handles GET /sales/available
func (h *OperationsHandler) ListAvailableProducts(c *gin.Context) {
	items, err := h.sales.ListAvailableProducts(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.Items(items))
}

// CheckSale handles POST /sales/check
func (h *OperationsHandler) CheckSale(c *gin.Context) {
	var req dto.CheckSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.sales.CheckAvailability(c.Request.Context(), req.ProductID, req.Quantity); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.AvailabilityResponse{Available: true})
}

// RecordSale handles POST /sales
func (h *OperationsHandler) RecordSale(c *gin.Context) {
	var req dto.RecordSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	s, err := h.sales.Record(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, s)
}

// DailySales handles GET /sales/daily?date=YYYY-MM-DD
func (h *OperationsHandler) DailySales(c *gin.Context) {
	date := h.now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := dto.ParseTime(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation(err.Error()).WithDetail("field", "date"))
			return
		}
		date = parsed
	}

	report, err := h.sales.Daily(c.Request.Context(), date)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}
