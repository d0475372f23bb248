package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
	"bakehouse/pkg/logger"
)

// ShortageFunc builds the error returned when a change would drive a level below zero.
type ShortageFunc func(level entity.StockLevel, needed types.Quantity) error

// Change is a signed delta for one stock row. Positive is a receipt.
type Change struct {
	Item     entity.ItemRef
	Delta    decimal.Decimal
	Shortage ShortageFunc
}

// Posting groups the changes caused by one business operation.
type Posting struct {
	RecorderID   id.ID
	RecorderType entity.RecorderType
	Period       time.Time
	UserID       *id.ID
	Changes      []Change
}

// Service applies postings to stock levels and the ledger.
// Apply must run inside the caller's transaction; the register does not open its own.
type Service struct {
	repo Repository
}

// NewService creates a new stock register service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Apply locks every touched row, verifies no level goes negative, writes the
// new levels and appends one ledger line per change.
func (s *Service) Apply(ctx context.Context, p Posting) ([]entity.StockMovement, error) {
	if len(p.Changes) == 0 {
		return nil, nil
	}
	if id.IsNil(p.RecorderID) {
		return nil, apperror.NewValidation("recorder id is required")
	}
	if p.Period.IsZero() {
		p.Period = time.Now().UTC()
	}

	// Deltas below the stored scale round to zero and post nothing.
	changes := make([]Change, 0, len(p.Changes))
	for _, c := range p.Changes {
		c.Delta = types.RoundQty(c.Delta)
		changes = append(changes, c)
	}
	p.Changes = changes

	refs := make([]entity.ItemRef, 0, len(p.Changes))
	for _, c := range p.Changes {
		if c.Delta.IsZero() {
			continue
		}
		refs = append(refs, c.Item)
	}

	levels, err := s.repo.LockLevels(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("lock stock levels: %w", err)
	}

	movements := make([]entity.StockMovement, 0, len(refs))
	touched := make(map[entity.ItemRef]struct{}, len(refs))
	for _, c := range p.Changes {
		if c.Delta.IsZero() {
			continue
		}
		level, ok := levels[c.Item]
		if !ok {
			return nil, apperror.NewNotFound(itemEntity(c.Item.Kind), c.Item.ID.String())
		}

		next := level.Quantity.Add(c.Delta)
		if next.IsNegative() {
			needed := c.Delta.Neg()
			if c.Shortage != nil {
				return nil, c.Shortage(level, needed)
			}
			unit := unitSuffix(c.Item.Kind)
			return nil, apperror.NewInsufficientStock(
				fmt.Sprintf("Not enough %s. Need %s%s but only %s%s available.",
					level.Name, types.FormatQty(needed), unit, types.FormatQty(level.Quantity), unit),
				level.Name, needed, level.Quantity,
			)
		}
		level.Quantity = next
		levels[c.Item] = level
		touched[c.Item] = struct{}{}

		recordType := entity.RecordTypeReceipt
		if c.Delta.IsNegative() {
			recordType = entity.RecordTypeExpense
		}
		m := entity.NewStockMovement(p.RecorderID, p.RecorderType, p.Period, recordType, c.Item.Kind, c.Item.ID, c.Delta.Abs())
		m.BalanceAfter = next
		m.UserID = p.UserID
		movements = append(movements, m)
	}

	for ref := range touched {
		if err := s.repo.SetQuantity(ctx, ref, levels[ref].Quantity); err != nil {
			return nil, fmt.Errorf("set quantity of %s %s: %w", ref.Kind, ref.ID, err)
		}
	}

	if err := s.repo.CreateMovements(ctx, movements); err != nil {
		return nil, fmt.Errorf("create movements: %w", err)
	}

	logger.Debug(ctx, "stock posting applied",
		"recorder_type", p.RecorderType,
		"recorder_id", p.RecorderID,
		"lines", len(movements),
	)

	return movements, nil
}

// History returns ledger lines with default and maximum page sizes applied.
func (s *Service) History(ctx context.Context, filter MovementFilter) ([]entity.StockMovement, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	if filter.ItemKind != nil && !filter.ItemKind.Valid() {
		return nil, 0, apperror.NewValidation("unknown item kind").WithDetail("itemKind", *filter.ItemKind)
	}
	return s.repo.ListMovements(ctx, filter)
}

// BalanceAt reconstructs the quantity of an item at a point in time from the ledger.
func (s *Service) BalanceAt(ctx context.Context, ref entity.ItemRef, at time.Time) (types.Quantity, error) {
	if !ref.Kind.Valid() {
		return decimal.Zero, apperror.NewValidation("unknown item kind").WithDetail("itemKind", ref.Kind)
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return s.repo.SumUntil(ctx, ref, at)
}

// Turnover reports opening, receipt, expense and closing per item.
func (s *Service) Turnover(ctx context.Context, filter TurnoverFilter) ([]Turnover, error) {
	if filter.FromDate.IsZero() || filter.ToDate.IsZero() {
		return nil, apperror.NewValidation("from and to are required")
	}
	if filter.FromDate.After(filter.ToDate) {
		return nil, apperror.NewValidation("from must be before to")
	}
	return s.repo.GetTurnover(ctx, filter)
}

func itemEntity(kind entity.ItemKind) string {
	if kind == entity.ItemKindSemi {
		return "semi-finished product"
	}
	return "ingredient"
}

func unitSuffix(kind entity.ItemKind) string {
	if kind == entity.ItemKindRaw {
		return "g"
	}
	return " units"
}
