package ingredient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain"
	"bakehouse/internal/domain/audit"
	"bakehouse/internal/domain/events"
	"bakehouse/internal/domain/registers/stock"
	"bakehouse/pkg/logger"
)

const entityName = "ingredient"

// Service provides the warehouse operations on raw ingredients.
type Service struct {
	repo      Repository
	txManager tx.Manager
	stock     *stock.Service
	publisher events.Publisher
	audit     audit.Logger
}

// NewService creates a new ingredient service.
func NewService(repo Repository, txManager tx.Manager, stockSvc *stock.Service, publisher events.Publisher, auditLog audit.Logger) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		stock:     stockSvc,
		publisher: publisher,
		audit:     auditLog,
	}
}

// Create adds a new ingredient. A positive initial quantity is posted as an opening receipt.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Ingredient, error) {
	in.Quantity = types.RoundQty(in.Quantity)
	if in.Quantity.IsNegative() {
		return nil, apperror.NewValidation("quantity cannot be negative").WithDetail("field", "quantity")
	}

	ing := NewIngredient(in.Name, in.CostPerUnit, in.ExpiryDate)
	if err := ing.Validate(); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExistsByName(ctx, ing.Name, nil)
		if err != nil {
			return fmt.Errorf("check name: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("Ingredient already exists!", entityName, "name", ing.Name)
		}

		if err := s.repo.Create(ctx, ing); err != nil {
			return fmt.Errorf("create ingredient: %w", err)
		}

		if in.Quantity.IsPositive() {
			_, err := s.stock.Apply(ctx, stock.Posting{
				RecorderID:   ing.ID,
				RecorderType: entity.RecorderOpening,
				Period:       ing.CreatedAt,
				UserID:       appctx.ActorID(ctx),
				Changes:      []stock.Change{{Item: ref(ing.ID), Delta: in.Quantity}},
			})
			if err != nil {
				return err
			}
			ing.Quantity = in.Quantity
		}

		if err := s.audit.LogChange(ctx, entityName, ing.ID, audit.ActionCreate, ing.Snapshot()); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: entityName,
			AggregateID:   ing.ID,
			Type:          events.TypeIngredientCreated,
			Payload: map[string]any{
				"id":       ing.ID,
				"name":     ing.Name,
				"quantity": ing.Quantity,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "ingredient added", "ingredient_id", ing.ID, "name", ing.Name, "quantity", ing.Quantity)
	return ing, nil
}

// UpdateStock adds to or subtracts from the on-hand quantity.
func (s *Service) UpdateStock(ctx context.Context, ingredientID id.ID, quantity types.Quantity, op StockOperation) (*Ingredient, error) {
	quantity = types.RoundQty(quantity)
	if !quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be greater than zero").WithDetail("field", "quantity")
	}

	delta := quantity
	switch op {
	case OperationAdd:
	case OperationSubtract:
		delta = quantity.Neg()
	default:
		return nil, apperror.NewValidation("operation must be add or subtract").WithDetail("field", "operation")
	}

	var result *Ingredient
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		recorderID := id.New()
		movements, err := s.stock.Apply(ctx, stock.Posting{
			RecorderID:   recorderID,
			RecorderType: entity.RecorderAdjustment,
			UserID:       appctx.ActorID(ctx),
			Changes: []stock.Change{{
				Item:  ref(ingredientID),
				Delta: delta,
				Shortage: func(level entity.StockLevel, needed types.Quantity) error {
					return apperror.NewInsufficientStock("Cannot remove more than available stock!", level.Name, needed, level.Quantity)
				},
			}},
		})
		if err != nil {
			return err
		}

		result, err = s.repo.GetByID(ctx, ingredientID)
		if err != nil {
			return err
		}

		if err := s.audit.LogChange(ctx, entityName, ingredientID, audit.ActionAdjust, map[string]any{
			"operation": op,
			"quantity":  quantity,
			"balance":   result.Quantity,
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: entityName,
			AggregateID:   ingredientID,
			Type:          events.TypeStockAdjusted,
			Payload: map[string]any{
				"recorderId": recorderID,
				"name":       result.Name,
				"operation":  op,
				"quantity":   quantity,
				"balance":    movements[0].BalanceAfter,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "ingredient stock updated",
		"ingredient_id", ingredientID,
		"operation", op,
		"quantity", quantity,
		"balance", result.Quantity,
	)
	return result, nil
}

// Update changes name, cost or expiry date.
func (s *Service) Update(ctx context.Context, ingredientID id.ID, in UpdateInput) (*Ingredient, error) {
	var result *Ingredient
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ing, err := s.repo.GetByID(ctx, ingredientID)
		if err != nil {
			return err
		}
		if in.Version != 0 && in.Version != ing.Version {
			return apperror.NewConcurrentModification(entityName, ingredientID.String())
		}
		before := ing.Snapshot()

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if !strings.EqualFold(name, ing.Name) {
				exists, err := s.repo.ExistsByName(ctx, name, &ing.ID)
				if err != nil {
					return fmt.Errorf("check name: %w", err)
				}
				if exists {
					return apperror.NewDuplicate("Ingredient already exists!", entityName, "name", name)
				}
			}
			ing.Name = name
		}
		if in.CostPerUnit != nil {
			ing.CostPerUnit = *in.CostPerUnit
		}
		if in.ClearExpiry {
			ing.ExpiryDate = nil
		} else if in.ExpiryDate != nil {
			ing.ExpiryDate = in.ExpiryDate
		}
		if err := ing.Validate(); err != nil {
			return err
		}
		ing.UpdatedAt = time.Now().UTC()

		if err := s.repo.Update(ctx, ing); err != nil {
			return err
		}
		result = ing

		return s.audit.LogChange(ctx, entityName, ing.ID, audit.ActionUpdate, audit.Diff(before, ing.Snapshot()))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes an ingredient that no recipe uses.
func (s *Service) Delete(ctx context.Context, ingredientID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ing, err := s.repo.GetByID(ctx, ingredientID)
		if err != nil {
			return err
		}
		used, err := s.repo.IsUsedInRecipes(ctx, ingredientID)
		if err != nil {
			return fmt.Errorf("check recipe usage: %w", err)
		}
		if used {
			return apperror.NewInUse("Cannot delete: This ingredient is used in recipes!", entityName, ingredientID.String())
		}
		if err := s.repo.Delete(ctx, ingredientID); err != nil {
			return err
		}
		logger.Info(ctx, "ingredient deleted", "ingredient_id", ingredientID, "name", ing.Name)
		return s.audit.LogChange(ctx, entityName, ingredientID, audit.ActionDelete, ing.Snapshot())
	})
}

// GetByID returns one ingredient.
func (s *Service) GetByID(ctx context.Context, ingredientID id.ID) (*Ingredient, error) {
	return s.repo.GetByID(ctx, ingredientID)
}

// List returns a page of ingredients ordered by name.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[Ingredient], error) {
	filter = filter.Normalize()
	if filter.OrderBy == "" {
		filter.OrderBy = "name"
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[Ingredient]{}, fmt.Errorf("list ingredients: %w", err)
	}
	return domain.NewListResult(items, total, filter), nil
}

// ListAvailable returns ingredients that still have stock.
func (s *Service) ListAvailable(ctx context.Context) ([]Ingredient, error) {
	return s.repo.ListAvailable(ctx)
}

func ref(ingredientID id.ID) entity.ItemRef {
	return entity.ItemRef{Kind: entity.ItemKindRaw, ID: ingredientID}
}
