package sale

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/entity"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/audit"
	"bakehouse/internal/domain/catalogs/product"
	"bakehouse/internal/domain/events"
	"bakehouse/internal/domain/registers/stock"
	"bakehouse/pkg/logger"
)

const entityName = "sale"

// Service records sales and reports on them.
type Service struct {
	repo      Repository
	products  ProductStore
	txManager tx.Manager
	stock     *stock.Service
	publisher events.Publisher
	audit     audit.Logger
	now       func() time.Time
}

// NewService creates a new sale service.
func NewService(
	repo Repository,
	products ProductStore,
	txManager tx.Manager,
	stockSvc *stock.Service,
	publisher events.Publisher,
	auditLog audit.Logger,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		txManager: txManager,
		stock:     stockSvc,
		publisher: publisher,
		audit:     auditLog,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListAvailableProducts returns products that can be made at least once, by name.
func (s *Service) ListAvailableProducts(ctx context.Context) ([]AvailableProduct, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return []AvailableProduct{}, nil
	}
	ids := make([]id.ID, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	components, err := s.products.GetComponents(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load components: %w", err)
	}
	byProduct := make(map[id.ID][]product.Component, len(products))
	for _, c := range components {
		byProduct[c.ProductID] = append(byProduct[c.ProductID], c)
	}

	out := make([]AvailableProduct, 0, len(products))
	for _, p := range products {
		units := MaxUnits(byProduct[p.ID])
		if units <= 0 {
			continue
		}
		out = append(out, AvailableProduct{ID: p.ID, Name: p.Name, SellingPrice: p.SellingPrice, MaxPossibleUnits: units})
	}
	return out, nil
}

// CheckAvailability verifies that quantity units of a product can be made from current stock.
func (s *Service) CheckAvailability(ctx context.Context, productID id.ID, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	components, err := s.products.GetComponents(ctx, []id.ID{productID})
	if err != nil {
		return fmt.Errorf("load components: %w", err)
	}
	if len(components) == 0 {
		return apperror.NewRecipeNotFound("Product recipe not found!", productID.String())
	}
	for _, c := range components {
		needed := decimal.NewFromInt(int64(c.QuantityNeeded) * int64(quantity))
		if c.Available.LessThan(needed) {
			return shortage(c.SemiName, needed, c.Available)
		}
	}
	return nil
}

// Record sells quantity units of a product at its current price. Semi-finished
// rows are locked and re-checked inside the transaction.
func (s *Service) Record(ctx context.Context, in RecordInput) (*Sale, error) {
	if err := validateQuantity(in.Quantity); err != nil {
		return nil, err
	}

	var sale *Sale
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			return err
		}
		components, err := s.products.GetComponents(ctx, []id.ID{p.ID})
		if err != nil {
			return fmt.Errorf("load components: %w", err)
		}
		if len(components) == 0 {
			return apperror.NewRecipeNotFound("Product recipe not found!", p.ID.String())
		}

		sale = &Sale{
			ID:          id.New(),
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    in.Quantity,
			SalePrice:   p.SellingPrice,
			SaleDate:    s.now(),
			RecordedBy:  appctx.ActorID(ctx),
		}
		if notes := strings.TrimSpace(in.Notes); notes != "" {
			sale.Notes = &notes
		}

		changes := make([]stock.Change, 0, len(components))
		for _, c := range components {
			changes = append(changes, stock.Change{
				Item:  entity.ItemRef{Kind: entity.ItemKindSemi, ID: c.SemiID},
				Delta: decimal.NewFromInt(int64(c.QuantityNeeded) * int64(in.Quantity)).Neg(),
				Shortage: func(level entity.StockLevel, needed types.Quantity) error {
					return shortage(level.Name, needed, level.Quantity)
				},
			})
		}
		if _, err := s.stock.Apply(ctx, stock.Posting{
			RecorderID:   sale.ID,
			RecorderType: entity.RecorderSale,
			Period:       sale.SaleDate,
			UserID:       sale.RecordedBy,
			Changes:      changes,
		}); err != nil {
			return err
		}

		if err := s.repo.Create(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		if err := s.audit.LogChange(ctx, entityName, sale.ID, audit.ActionSell, map[string]any{
			"productId": sale.ProductID,
			"quantity":  sale.Quantity,
			"salePrice": sale.SalePrice,
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: entityName,
			AggregateID:   sale.ID,
			Type:          events.TypeSaleRecorded,
			Payload: map[string]any{
				"id":          sale.ID,
				"productId":   sale.ProductID,
				"productName": sale.ProductName,
				"quantity":    sale.Quantity,
				"salePrice":   sale.SalePrice,
				"total":       sale.Total(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale recorded",
		"sale_id", sale.ID,
		"product_id", sale.ProductID,
		"quantity", sale.Quantity,
		"total", sale.Total(),
	)
	return sale, nil
}

// Daily returns the sales of the UTC day containing date with totals.
func (s *Service) Daily(ctx context.Context, date time.Time) (*DailyReport, error) {
	if date.IsZero() {
		date = s.now()
	}
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	sales, err := s.repo.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	report := &DailyReport{Date: from, Sales: sales, Revenue: decimal.Zero}
	if report.Sales == nil {
		report.Sales = []Sale{}
	}
	for _, sl := range sales {
		report.Revenue = report.Revenue.Add(sl.Total())
		report.Items += sl.Quantity
	}
	return report, nil
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return apperror.NewValidation("quantity must be at least 1").WithDetail("field", "quantity")
	}
	return nil
}

func shortage(name string, needed, available types.Quantity) error {
	return apperror.NewInsufficientStock(
		fmt.Sprintf("Not enough %s! Need %s but only %s available.", name, needed.String(), available.String()),
		name, needed, available,
	)
}
