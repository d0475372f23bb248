package dto

import (
	"time"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/registers/stock"
)

// MovementQuery are the query parameters of GET /ledger/movements.
type MovementQuery struct {
	ItemKind     string `form:"itemKind"`
	ItemID       string `form:"itemId"`
	RecorderType string `form:"recorderType"`
	RecorderID   string `form:"recorderId"`
	From         string `form:"from"`
	To           string `form:"to"`
	Limit        int    `form:"limit" binding:"omitempty,min=1,max=1000"`
	Offset       int    `form:"offset" binding:"omitempty,min=0"`
}

func (q MovementQuery) ToFilter() (stock.MovementFilter, error) {
	f := stock.MovementFilter{Limit: q.Limit, Offset: q.Offset}
	if q.ItemKind != "" {
		k := entity.ItemKind(q.ItemKind)
		f.ItemKind = &k
	}
	if q.RecorderType != "" {
		r := entity.RecorderType(q.RecorderType)
		f.RecorderType = &r
	}
	var err error
	if f.ItemID, err = optionalID("itemId", q.ItemID); err != nil {
		return f, err
	}
	if f.RecorderID, err = optionalID("recorderId", q.RecorderID); err != nil {
		return f, err
	}
	if f.FromDate, err = optionalTime("from", q.From); err != nil {
		return f, err
	}
	if f.ToDate, err = optionalTime("to", q.To); err != nil {
		return f, err
	}
	return f, nil
}

// MovementsResponse is one page of ledger lines.
type MovementsResponse struct {
	Items      []entity.StockMovement `json:"items"`
	TotalCount int64                  `json:"totalCount"`
	Limit      int                    `json:"limit"`
	Offset     int                    `json:"offset"`
}

// BalanceQuery are the query parameters of GET /ledger/balance.
type BalanceQuery struct {
	ItemKind string `form:"itemKind" binding:"required"`
	ItemID   string `form:"itemId" binding:"required"`
	At       string `form:"at"`
}

func (q BalanceQuery) Parse() (entity.ItemRef, time.Time, error) {
	itemID, err := id.Parse(q.ItemID)
	if err != nil {
		return entity.ItemRef{}, time.Time{}, apperror.NewValidation("invalid itemId").WithDetail("field", "itemId")
	}
	at, err := optionalTime("at", q.At)
	if err != nil {
		return entity.ItemRef{}, time.Time{}, err
	}
	var t time.Time
	if at != nil {
		t = *at
	}
	return entity.ItemRef{Kind: entity.ItemKind(q.ItemKind), ID: itemID}, t, nil
}

type BalanceResponse struct {
	ItemKind entity.ItemKind `json:"itemKind"`
	ItemID   id.ID           `json:"itemId"`
	At       time.Time       `json:"at"`
	Quantity types.Quantity  `json:"quantity"`
}

// TurnoverQuery are the query parameters of GET /ledger/turnover.
type TurnoverQuery struct {
	ItemKind string `form:"itemKind"`
	From     string `form:"from" binding:"required"`
	To       string `form:"to" binding:"required"`
}

func (q TurnoverQuery) ToFilter() (stock.TurnoverFilter, error) {
	var f stock.TurnoverFilter
	from, err := ParseTime(q.From)
	if err != nil {
		return f, apperror.NewValidation(err.Error()).WithDetail("field", "from")
	}
	to, err := ParseTime(q.To)
	if err != nil {
		return f, apperror.NewValidation(err.Error()).WithDetail("field", "to")
	}
	f.FromDate, f.ToDate = from, to
	if q.ItemKind != "" {
		k := entity.ItemKind(q.ItemKind)
		f.ItemKind = &k
	}
	return f, nil
}

func optionalID(field, s string) (*id.ID, error) {
	if s == "" {
		return nil, nil
	}
	v, err := id.Parse(s)
	if err != nil {
		return nil, apperror.NewValidation("invalid " + field).WithDetail("field", field)
	}
	return &v, nil
}

func optionalTime(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := ParseTime(s)
	if err != nil {
		return nil, apperror.NewValidation(err.Error()).WithDetail("field", field)
	}
	return &t, nil
}
