// Package app wires repositories and domain services for the bakehouse binaries.
package app

import (
	"context"
	"fmt"

	"bakehouse/internal/config"
	"bakehouse/internal/domain/auth"
	"bakehouse/internal/domain/catalogs/ingredient"
	"bakehouse/internal/domain/catalogs/product"
	"bakehouse/internal/domain/catalogs/recipe"
	"bakehouse/internal/domain/documents/production"
	"bakehouse/internal/domain/documents/sale"
	"bakehouse/internal/domain/documents/wastage"
	"bakehouse/internal/domain/events"
	"bakehouse/internal/domain/registers/stock"
	"bakehouse/internal/domain/reports"
	"bakehouse/internal/infrastructure/storage/postgres"
	"bakehouse/internal/infrastructure/storage/postgres/auth_repo"
	"bakehouse/internal/infrastructure/storage/postgres/catalog_repo"
	"bakehouse/internal/infrastructure/storage/postgres/document_repo"
	"bakehouse/internal/infrastructure/storage/postgres/migrations"
	"bakehouse/internal/infrastructure/storage/postgres/register_repo"
	"bakehouse/internal/infrastructure/storage/postgres/report_repo"
	"bakehouse/pkg/logger"
)

// Database is an open pool with its transaction manager.
type Database struct {
	Pool *postgres.Pool
	TxM  *postgres.TxManager
}

// OpenDatabase connects to PostgreSQL and optionally applies pending migrations.
func OpenDatabase(ctx context.Context, cfg *config.Config, appName string, migrate bool) (*Database, error) {
	pool, err := postgres.NewPool(ctx, cfg.Pool(appName))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if migrate {
		applied, err := migrations.Up(ctx, pool.Pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		if len(applied) > 0 {
			logger.Info(ctx, "migrations applied", "versions", applied)
		}
	}

	return &Database{Pool: pool, TxM: postgres.NewTxManager(pool)}, nil
}

// Close releases the pool.
func (d *Database) Close() {
	d.Pool.Close()
}

// Services holds every domain service.
type Services struct {
	Auth        *auth.Service
	Ingredients *ingredient.Service
	Recipes     *recipe.Service
	Products    *product.Service
	Production  *production.Service
	Sales       *sale.Service
	Wastage     *wastage.Service
	Stock       *stock.Service
	Reports     *reports.Service
	Audit       *postgres.AuditService
}

// Options are the pluggable parts of the service graph.
type Options struct {
	// Publisher receives domain events inside the business transaction.
	// Nil selects the outbox publisher.
	Publisher events.Publisher
	// Summaries caches the dashboard summary. Nil disables caching.
	Summaries reports.SummaryCache
}

// NewServices builds the service graph over db.
func NewServices(cfg *config.Config, db *Database, opts Options) (*Services, error) {
	txm := db.TxM

	publisher := opts.Publisher
	if publisher == nil {
		publisher = postgres.NewOutboxPublisher(txm)
	}

	auditSvc, err := postgres.NewAuditService(txm)
	if err != nil {
		return nil, fmt.Errorf("create audit service: %w", err)
	}

	lowStock, err := reports.NewLowStockRule(cfg.Reports.LowStockRule)
	if err != nil {
		return nil, fmt.Errorf("compile low-stock rule: %w", err)
	}

	jwtCfg := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
	jwtCfg.AccessTokenTTL = cfg.Auth.AccessTokenTTL
	authCfg := auth.DefaultServiceConfig()
	authCfg.RefreshTokenExpiry = cfg.Auth.RefreshTokenTTL

	recipeRepo := catalog_repo.NewRecipeRepo(txm)
	productRepo := catalog_repo.NewProductRepo(txm)
	stockSvc := stock.NewService(register_repo.NewStockRepo(txm))

	return &Services{
		Auth: auth.NewService(
			auth_repo.NewUserRepo(txm),
			auth_repo.NewTokenRepo(txm),
			txm,
			auth.NewJWTService(jwtCfg),
			auditSvc,
			authCfg,
		),
		Ingredients: ingredient.NewService(catalog_repo.NewIngredientRepo(txm), txm, stockSvc, publisher, auditSvc),
		Recipes:     recipe.NewService(recipeRepo, txm, auditSvc),
		Products:    product.NewService(productRepo, txm, auditSvc),
		Production:  production.NewService(document_repo.NewProductionRepo(txm), recipeRepo, txm, stockSvc, publisher, auditSvc),
		Sales:       sale.NewService(document_repo.NewSaleRepo(txm), productRepo, txm, stockSvc, publisher, auditSvc),
		Wastage:     wastage.NewService(document_repo.NewWastageRepo(txm), txm, stockSvc, publisher, auditSvc),
		Stock:       stockSvc,
		Reports:     reports.NewService(report_repo.NewReportRepo(txm), txm, lowStock, opts.Summaries),
		Audit:       auditSvc,
	}, nil
}
