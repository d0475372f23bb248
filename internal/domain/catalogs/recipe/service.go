package recipe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/domain/audit"
	"bakehouse/pkg/logger"
)

const entityName = "semi_finished"

// Service manages recipes and the semi-finished inventory.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     audit.Logger
	now       func() time.Time
}

// NewService creates a new recipe service.
func NewService(repo Repository, txManager tx.Manager, auditLog audit.Logger) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		audit:     auditLog,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a semi-finished item with zero stock and its recipe.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Details, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	now := s.now()
	semi := &SemiFinished{
		ID:             id.New(),
		Name:           name,
		Quantity:       decimal.Zero,
		OutputQuantity: in.OutputQuantity,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var lines []Line
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExistsByName(ctx, name)
		if err != nil {
			return fmt.Errorf("check name: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("Recipe already exists!", entityName, "name", name)
		}

		ids := make([]id.ID, len(in.Ingredients))
		for i, l := range in.Ingredients {
			ids[i] = l.IngredientID
		}
		names, err := s.repo.IngredientNames(ctx, ids)
		if err != nil {
			return fmt.Errorf("load ingredients: %w", err)
		}
		lines = make([]Line, 0, len(in.Ingredients))
		for _, l := range in.Ingredients {
			ingName, ok := names[l.IngredientID]
			if !ok {
				return apperror.NewNotFound("ingredient", l.IngredientID.String())
			}
			lines = append(lines, Line{
				SemiID:         semi.ID,
				IngredientID:   l.IngredientID,
				IngredientName: ingName,
				QuantityNeeded: l.QuantityNeeded,
			})
		}

		if err := s.repo.Create(ctx, semi, in.Ingredients); err != nil {
			return fmt.Errorf("create recipe: %w", err)
		}

		return s.audit.LogChange(ctx, entityName, semi.ID, audit.ActionCreate, map[string]any{
			"name":           semi.Name,
			"outputQuantity": semi.OutputQuantity,
			"ingredients":    RenderLines(lines),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "recipe created", "semi_id", semi.ID, "name", semi.Name, "lines", len(lines))
	return &Details{SemiFinished: *semi, Lines: lines}, nil
}

// ListRecipes returns every recipe with its ingredients rendered as text.
func (s *Service) ListRecipes(ctx context.Context) ([]Summary, error) {
	items, err := s.repo.ListWithRecipe(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	byItem, err := s.linesByItem(ctx, items)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(items))
	for _, it := range items {
		out = append(out, Summary{
			ID:             it.ID,
			Name:           it.Name,
			Ingredients:    RenderLines(byItem[it.ID]),
			OutputQuantity: it.OutputQuantity,
		})
	}
	return out, nil
}

// GetDetails returns the recipe of one item with current ingredient stock.
func (s *Service) GetDetails(ctx context.Context, semiID id.ID) (*Details, error) {
	semi, err := s.repo.GetByID(ctx, semiID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, []id.ID{semiID})
	if err != nil {
		return nil, fmt.Errorf("load recipe lines: %w", err)
	}
	if len(lines) == 0 {
		return nil, apperror.NewRecipeNotFound("Recipe not found!", semiID.String())
	}
	return &Details{SemiFinished: *semi, Lines: lines}, nil
}

// ListInventory returns semi-finished stock with recipe text and expiry status.
func (s *Service) ListInventory(ctx context.Context, search string) ([]InventoryRow, error) {
	items, err := s.repo.List(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("list semi-finished: %w", err)
	}
	byItem, err := s.linesByItem(ctx, items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]InventoryRow, 0, len(items))
	for _, it := range items {
		out = append(out, InventoryRow{
			ID:           it.ID,
			Name:         it.Name,
			Quantity:     it.Quantity,
			ExpiryDate:   it.ExpiryDate,
			Recipe:       RenderLines(byItem[it.ID]),
			ExpiryStatus: ExpiryStatus(it.ExpiryDate, now),
		})
	}
	return out, nil
}

// ListAvailable returns items with stock, for wastage and product selectors.
func (s *Service) ListAvailable(ctx context.Context) ([]SemiFinished, error) {
	return s.repo.ListAvailable(ctx)
}

func (s *Service) linesByItem(ctx context.Context, items []SemiFinished) (map[id.ID][]Line, error) {
	if len(items) == 0 {
		return nil, nil
	}
	ids := make([]id.ID, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	lines, err := s.repo.GetLines(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load recipe lines: %w", err)
	}
	out := make(map[id.ID][]Line, len(items))
	for _, l := range lines {
		out[l.SemiID] = append(out[l.SemiID], l)
	}
	return out, nil
}
