package stock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/types"
)

// MemoryRepository is an in-process Repository used by service tests.
type MemoryRepository struct {
	mu        sync.Mutex
	levels    map[entity.ItemRef]entity.StockLevel
	Movements []entity.StockMovement
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{levels: make(map[entity.ItemRef]entity.StockLevel)}
}

// Put sets a stock row.
func (r *MemoryRepository) Put(level entity.StockLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[entity.ItemRef{Kind: level.Kind, ID: level.ID}] = level
}

// Level returns the quantity of a row, zero when absent.
func (r *MemoryRepository) Level(ref entity.ItemRef) types.Quantity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.levels[ref].Quantity
}

func (r *MemoryRepository) LockLevels(_ context.Context, refs []entity.ItemRef) (map[entity.ItemRef]entity.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[entity.ItemRef]entity.StockLevel, len(refs))
	for _, ref := range refs {
		if l, ok := r.levels[ref]; ok {
			out[ref] = l
		}
	}
	return out, nil
}

func (r *MemoryRepository) SetQuantity(_ context.Context, ref entity.ItemRef, qty types.Quantity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.levels[ref]
	l.Quantity = qty
	r.levels[ref] = l
	return nil
}

func (r *MemoryRepository) CreateMovements(_ context.Context, movements []entity.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Movements = append(r.Movements, movements...)
	return nil
}

func (r *MemoryRepository) ListMovements(_ context.Context, filter MovementFilter) ([]entity.StockMovement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.StockMovement
	for _, m := range r.Movements {
		if filter.ItemKind != nil && m.ItemKind != *filter.ItemKind {
			continue
		}
		if filter.ItemID != nil && m.ItemID != *filter.ItemID {
			continue
		}
		if filter.RecorderType != nil && m.RecorderType != *filter.RecorderType {
			continue
		}
		if filter.RecorderID != nil && m.RecorderID != *filter.RecorderID {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period.After(out[j].Period) })
	total := int64(len(out))
	if filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else {
		out = nil
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (r *MemoryRepository) SumUntil(_ context.Context, ref entity.ItemRef, at time.Time) (types.Quantity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, m := range r.Movements {
		if m.ItemKind == ref.Kind && m.ItemID == ref.ID && !m.Period.After(at) {
			sum = sum.Add(m.SignedQuantity())
		}
	}
	return sum, nil
}

func (r *MemoryRepository) GetTurnover(_ context.Context, filter TurnoverFilter) ([]Turnover, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byItem := make(map[entity.ItemRef]*Turnover)
	var order []entity.ItemRef
	for _, m := range r.Movements {
		if filter.ItemKind != nil && m.ItemKind != *filter.ItemKind {
			continue
		}
		if m.Period.After(filter.ToDate) {
			continue
		}
		ref := entity.ItemRef{Kind: m.ItemKind, ID: m.ItemID}
		t, ok := byItem[ref]
		if !ok {
			t = &Turnover{ItemKind: m.ItemKind, ItemID: m.ItemID, ItemName: r.levels[ref].Name}
			byItem[ref] = t
			order = append(order, ref)
		}
		switch {
		case m.Period.Before(filter.FromDate):
			t.OpeningBalance = t.OpeningBalance.Add(m.SignedQuantity())
		case m.RecordType == entity.RecordTypeReceipt:
			t.Receipt = t.Receipt.Add(m.Quantity)
		default:
			t.Expense = t.Expense.Add(m.Quantity)
		}
	}
	out := make([]Turnover, 0, len(order))
	for _, ref := range order {
		t := byItem[ref]
		t.ClosingBalance = t.OpeningBalance.Add(t.Receipt).Sub(t.Expense)
		out = append(out, *t)
	}
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)
