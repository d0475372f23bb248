package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/core/id"
	"bakehouse/internal/domain/reports"
	"bakehouse/internal/infrastructure/http/v1/dto"
)

// ReportService is the part of reports.Service used over HTTP.
type ReportService interface {
	RecipeCosts(ctx context.Context) (*reports.CostSummary, error)
	RecipeBreakdown(ctx context.Context, semiID id.ID) (*reports.Breakdown, error)
	IngredientUsage(ctx context.Context) ([]reports.IngredientUsage, error)
	InventoryValue(ctx context.Context) (*reports.InventoryValue, error)
	ExpiringItems(ctx context.Context, days int) ([]reports.ExpiringItem, error)
	WastageStats(ctx context.Context, days int) (*reports.WastageStats, error)
	SalesMetrics(ctx context.Context) (*reports.SalesMetrics, error)
	Summary(ctx context.Context) (*reports.Summary, error)
}

// ReportsHandler serves cost analysis and dashboard endpoints.
type ReportsHandler struct {
	*BaseHandler
	service ReportService
}

func NewReportsHandler(base *BaseHandler, service ReportService) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// RecipeCosts handles GET /costs/recipes
func (h *ReportsHandler) RecipeCosts(c *gin.Context) {
	summary, err := h.service.RecipeCosts(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}

// RecipeBreakdown handles GET /costs/recipes/:id
func (h *ReportsHandler) RecipeBreakdown(c *gin.Context) {
	semiID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	b, err := h.service.RecipeBreakdown(c.Request.Context(), semiID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, b)
}

// IngredientUsage handles GET /costs/ingredients
func (h *ReportsHandler) IngredientUsage(c *gin.Context) {
	rows, err := h.service.IngredientUsage(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.Items(rows))
}

// Summary handles GET /dashboard
func (h *ReportsHandler) Summary(c *gin.Context) {
	s, err := h.service.Summary(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// InventoryValue handles GET /dashboard/inventory
func (h *ReportsHandler) InventoryValue(c *gin.Context) {
	v, err := h.service.InventoryValue(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, v)
}

// ExpiringItems handles GET /dashboard/expiring?days=
func (h *ReportsHandler) ExpiringItems(c *gin.Context) {
	items, err := h.service.ExpiringItems(c.Request.Context(), h.ParseIntQuery(c, "days", reports.DefaultExpiringDays))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.Items(items))
}

// WastageStats handles GET /dashboard/wastage?days=
func (h *ReportsHandler) WastageStats(c *gin.Context) {
	stats, err := h.service.WastageStats(c.Request.Context(), h.ParseIntQuery(c, "days", reports.DefaultWastageDays))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, stats)
}

// SalesMetrics handles GET /dashboard/sales
func (h *ReportsHandler) SalesMetrics(c *gin.Context) {
	m, err := h.service.SalesMetrics(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, m)
}
