package wastage

import (
	"context"
	"fmt"
	"time"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/audit"
	"bakehouse/internal/domain/events"
	"bakehouse/internal/domain/registers/stock"
	"bakehouse/pkg/logger"
)

const entityName = "wastage"

// Service records wastage.
type Service struct {
	repo      Repository
	txManager tx.Manager
	stock     *stock.Service
	publisher events.Publisher
	audit     audit.Logger
	now       func() time.Time
}

// NewService creates a new wastage service.
func NewService(repo Repository, txManager tx.Manager, stockSvc *stock.Service, publisher events.Publisher, auditLog audit.Logger) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		stock:     stockSvc,
		publisher: publisher,
		audit:     auditLog,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Record writes off quantity of an item. The item row is locked and the
// quantity may not exceed current stock.
func (s *Service) Record(ctx context.Context, in RecordInput) (*Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:         id.New(),
		ItemType:   in.ItemType,
		ItemID:     in.ItemID,
		Quantity:   types.RoundQty(in.Quantity),
		Reason:     in.Reason(),
		RecordedBy: appctx.ActorID(ctx),
		Date:       s.now(),
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		movements, err := s.stock.Apply(ctx, stock.Posting{
			RecorderID:   rec.ID,
			RecorderType: entity.RecorderWastage,
			Period:       rec.Date,
			UserID:       rec.RecordedBy,
			Changes: []stock.Change{{
				Item:  entity.ItemRef{Kind: in.ItemType, ID: in.ItemID},
				Delta: rec.Quantity.Neg(),
				Shortage: func(level entity.StockLevel, needed types.Quantity) error {
					return apperror.NewInsufficientStock(
						fmt.Sprintf("Cannot waste more than available stock! Only %s available.", types.FormatQty(level.Quantity)),
						level.Name, needed, level.Quantity,
					)
				},
			}},
		})
		if err != nil {
			return err
		}

		if err := s.repo.Create(ctx, rec); err != nil {
			return fmt.Errorf("create wastage: %w", err)
		}

		if err := s.audit.LogChange(ctx, entityName, rec.ID, audit.ActionWaste, map[string]any{
			"itemType": rec.ItemType,
			"itemId":   rec.ItemID,
			"quantity": rec.Quantity,
			"reason":   rec.Reason,
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: entityName,
			AggregateID:   rec.ID,
			Type:          events.TypeWastageRecorded,
			Payload: map[string]any{
				"id":       rec.ID,
				"itemType": rec.ItemType,
				"itemId":   rec.ItemID,
				"quantity": rec.Quantity,
				"reason":   rec.Reason,
				"balance":  movements[0].BalanceAfter,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "wastage recorded",
		"wastage_id", rec.ID,
		"item_type", rec.ItemType,
		"item_id", rec.ItemID,
		"quantity", rec.Quantity,
	)
	return rec, nil
}

// List returns the latest wastage records.
func (s *Service) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = DefaultListLimit
	}
	return s.repo.List(ctx, limit)
}
