package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/registers/stock"
	"bakehouse/internal/infrastructure/http/v1/dto"
)

// LedgerService is the read side of stock.Service.
type LedgerService interface {
	History(ctx context.Context, filter stock.MovementFilter) ([]entity.StockMovement, int64, error)
	BalanceAt(ctx context.Context, ref entity.ItemRef, at time.Time) (types.Quantity, error)
	Turnover(ctx context.Context, filter stock.TurnoverFilter) ([]stock.Turnover, error)
}

// LedgerHandler serves the movement register.
type LedgerHandler struct {
	*BaseHandler
	service LedgerService
	now     func() time.Time
}

func NewLedgerHandler(base *BaseHandler, service LedgerService) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service, now: func() time.Time { return time.Now().UTC() }}
}

// Movements handles GET /ledger/movements
func (h *LedgerHandler) Movements(c *gin.Context) {
	var q dto.MovementQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	items, total, err := h.service.History(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	if items == nil {
		items = []entity.StockMovement{}
	}
	h.OK(c, dto.MovementsResponse{Items: items, TotalCount: total, Limit: filter.Limit, Offset: filter.Offset})
}

// Balance handles GET /ledger/balance?itemKind=&itemId=&at=
func (h *LedgerHandler) Balance(c *gin.Context) {
	var q dto.BalanceQuery
	if !h.BindQuery(c, &q) {
		return
	}
	ref, at, err := q.Parse()
	if err != nil {
		h.Error(c, err)
		return
	}
	if at.IsZero() {
		at = h.now()
	}

	qty, err := h.service.BalanceAt(c.Request.Context(), ref, at)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.BalanceResponse{ItemKind: ref.Kind, ItemID: ref.ID, At: at, Quantity: qty})
}

// Turnover handles GET /ledger/turnover?from=&to=&itemKind=
func (h *LedgerHandler) Turnover(c *gin.Context) {
	var q dto.TurnoverQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	rows, err := h.service.Turnover(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.Items(rows))
}
