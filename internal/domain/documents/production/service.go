package production

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/audit"
	"bakehouse/internal/domain/catalogs/recipe"
	"bakehouse/internal/domain/events"
	"bakehouse/internal/domain/registers/stock"
	"bakehouse/pkg/logger"
)

const entityName = "production_run"

// Service plans and records production runs.
type Service struct {
	repo      Repository
	recipes   RecipeStore
	txManager tx.Manager
	stock     *stock.Service
	publisher events.Publisher
	audit     audit.Logger
	now       func() time.Time
}

// NewService creates a new production service.
func NewService(
	repo Repository,
	recipes RecipeStore,
	txManager tx.Manager,
	stockSvc *stock.Service,
	publisher events.Publisher,
	auditLog audit.Logger,
) *Service {
	return &Service{
		repo:      repo,
		recipes:   recipes,
		txManager: txManager,
		stock:     stockSvc,
		publisher: publisher,
		audit:     auditLog,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CheckIngredients computes what a run of quantity units consumes and fails
// on the first ingredient that is short.
func (s *Service) CheckIngredients(ctx context.Context, semiID id.ID, quantity int) (*Plan, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	plan, err := s.plan(ctx, semiID, quantity)
	if err != nil {
		return nil, err
	}
	for _, r := range plan.Requirements {
		if r.Needed.GreaterThan(r.Available) {
			return nil, shortage(r.IngredientName, r.Needed, r.Available)
		}
	}
	return plan, nil
}

// Record consumes ingredients and adds quantity units of the semi-finished item.
// Sufficiency is re-checked under row locks inside the transaction.
func (s *Service) Record(ctx context.Context, in RecordInput) (*Run, error) {
	if err := validateQuantity(in.Quantity); err != nil {
		return nil, err
	}

	now := s.now()
	expiry := now.Add(DefaultShelfLife)
	if in.ExpiryDate != nil {
		expiry = in.ExpiryDate.UTC()
	}

	var run *Run
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		plan, err := s.plan(ctx, in.SemiID, in.Quantity)
		if err != nil {
			return err
		}

		run = &Run{
			ID:         id.New(),
			SemiID:     plan.SemiID,
			SemiName:   plan.SemiName,
			Quantity:   in.Quantity,
			Batches:    plan.Batches,
			ExpiryDate: expiry,
			RecordedBy: appctx.ActorID(ctx),
			CreatedAt:  now,
		}

		changes := make([]stock.Change, 0, len(plan.Requirements)+1)
		for _, r := range plan.Requirements {
			changes = append(changes, stock.Change{
				Item:  entity.ItemRef{Kind: entity.ItemKindRaw, ID: r.IngredientID},
				Delta: r.Needed.Neg(),
			})
		}
		changes = append(changes, stock.Change{
			Item:  entity.ItemRef{Kind: entity.ItemKindSemi, ID: plan.SemiID},
			Delta: decimal.NewFromInt(int64(in.Quantity)),
		})

		if _, err := s.stock.Apply(ctx, stock.Posting{
			RecorderID:   run.ID,
			RecorderType: entity.RecorderProduction,
			Period:       now,
			UserID:       run.RecordedBy,
			Changes:      changes,
		}); err != nil {
			return err
		}

		if err := s.recipes.SetExpiry(ctx, plan.SemiID, &expiry); err != nil {
			return fmt.Errorf("set expiry: %w", err)
		}
		if err := s.repo.CreateRun(ctx, run); err != nil {
			return fmt.Errorf("create production run: %w", err)
		}

		if err := s.audit.LogChange(ctx, entityName, run.ID, audit.ActionProduce, map[string]any{
			"semiId":     run.SemiID,
			"quantity":   run.Quantity,
			"batches":    run.Batches,
			"expiryDate": run.ExpiryDate,
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: entityName,
			AggregateID:   run.ID,
			Type:          events.TypeProductionRecorded,
			Payload:       run,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "production recorded",
		"run_id", run.ID,
		"semi_id", run.SemiID,
		"quantity", run.Quantity,
		"batches", run.Batches,
	)
	return run, nil
}

// ListRuns returns recent production runs.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.ListRuns(ctx, limit)
}

func (s *Service) plan(ctx context.Context, semiID id.ID, quantity int) (*Plan, error) {
	semi, err := s.recipes.GetByID(ctx, semiID)
	if err != nil {
		return nil, err
	}
	lines, err := s.recipes.GetLines(ctx, []id.ID{semiID})
	if err != nil {
		return nil, fmt.Errorf("load recipe lines: %w", err)
	}
	if len(lines) == 0 || semi.OutputQuantity < 1 {
		return nil, apperror.NewRecipeNotFound("Recipe not found!", semiID.String())
	}

	batches := decimal.NewFromInt(int64(quantity)).Div(decimal.NewFromInt(int64(semi.OutputQuantity)))
	plan := &Plan{
		SemiID:         semi.ID,
		SemiName:       semi.Name,
		Quantity:       quantity,
		OutputQuantity: semi.OutputQuantity,
		Batches:        batches,
		Requirements:   make([]Requirement, 0, len(lines)),
	}
	for _, l := range lines {
		plan.Requirements = append(plan.Requirements, Requirement{
			IngredientID:   l.IngredientID,
			IngredientName: l.IngredientName,
			PerBatch:       l.QuantityNeeded,
			Needed:         types.RoundQty(batches.Mul(l.QuantityNeeded)),
			Available:      l.Available,
		})
	}
	return plan, nil
}

func shortage(name string, needed, available types.Quantity) error {
	return apperror.NewInsufficientStock(
		fmt.Sprintf("Not enough %s. Need %sg but only %sg available.", name, types.FormatQty(needed), types.FormatQty(available)),
		name, needed, available,
	)
}

// Ensure recipe.Repository can back production.
var _ RecipeStore = (recipe.Repository)(nil)
