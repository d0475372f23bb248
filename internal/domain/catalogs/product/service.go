package product

import (
	"context"
	"fmt"
	"time"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/id"
	"bakehouse/internal/core/tx"
	"bakehouse/internal/domain/audit"
	"bakehouse/pkg/logger"
)

const entityName = "product"

// Service manages final products.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     audit.Logger
}

// NewService creates a new product service.
func NewService(repo Repository, txManager tx.Manager, auditLog audit.Logger) *Service {
	return &Service{repo: repo, txManager: txManager, audit: auditLog}
}

// Create registers a product and its components.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Details, error) {
	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &Product{
		ID:           id.New(),
		Name:         in.Name,
		Description:  in.Description,
		SellingPrice: in.SellingPrice,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var components []Component
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExistsByName(ctx, p.Name)
		if err != nil {
			return fmt.Errorf("check name: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("Product already exists!", entityName, "name", p.Name)
		}

		ids := make([]id.ID, len(in.Components))
		for i, c := range in.Components {
			ids[i] = c.SemiID
		}
		names, err := s.repo.SemiNames(ctx, ids)
		if err != nil {
			return fmt.Errorf("load semi-finished items: %w", err)
		}
		for _, c := range in.Components {
			name, ok := names[c.SemiID]
			if !ok {
				return apperror.NewNotFound("semi_finished", c.SemiID.String())
			}
			components = append(components, Component{ProductID: p.ID, SemiID: c.SemiID, SemiName: name, QuantityNeeded: c.Quantity})
		}

		if err := s.repo.Create(ctx, p, in.Components); err != nil {
			return fmt.Errorf("create product: %w", err)
		}

		return s.audit.LogChange(ctx, entityName, p.ID, audit.ActionCreate, map[string]any{
			"name":         p.Name,
			"sellingPrice": p.SellingPrice,
			"recipe":       RenderComponents(components),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "product created", "product_id", p.ID, "name", p.Name)
	return &Details{Product: *p, Components: components}, nil
}

// Get returns a product with its components.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Details, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	components, err := s.repo.GetComponents(ctx, []id.ID{productID})
	if err != nil {
		return nil, fmt.Errorf("load components: %w", err)
	}
	return &Details{Product: *p, Components: components}, nil
}

// List returns every product with its recipe text.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	details, err := s.ListDetails(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(details))
	for _, d := range details {
		out = append(out, Summary{
			ID:           d.ID,
			Name:         d.Name,
			Description:  d.Description,
			SellingPrice: d.SellingPrice,
			Recipe:       RenderComponents(d.Components),
		})
	}
	return out, nil
}

// ListDetails returns every product with its components and their stock.
func (s *Service) ListDetails(ctx context.Context) ([]Details, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return nil, nil
	}

	ids := make([]id.ID, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	components, err := s.repo.GetComponents(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load components: %w", err)
	}
	byProduct := make(map[id.ID][]Component, len(products))
	for _, c := range components {
		byProduct[c.ProductID] = append(byProduct[c.ProductID], c)
	}

	out := make([]Details, 0, len(products))
	for _, p := range products {
		out = append(out, Details{Product: p, Components: byProduct[p.ID]})
	}
	return out, nil
}
