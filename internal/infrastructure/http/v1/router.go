// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/domain/audit"
	"bakehouse/internal/infrastructure/http/v1/handlers"
	"bakehouse/internal/infrastructure/http/v1/middleware"
	"bakehouse/internal/infrastructure/metrics"
	"bakehouse/pkg/logger"
)

// RouterConfig holds the services exposed over HTTP.
type RouterConfig struct {
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Version string

	// HealthChecks are probed by /health/ready.
	HealthChecks map[string]handlers.Pinger

	JWTValidator middleware.JWTValidator
	Idempotency  middleware.IdempotencyStore

	Auth        handlers.AuthService
	Ingredients handlers.IngredientService
	Recipes     handlers.RecipeService
	Production  handlers.ProductionService
	Wastage     handlers.WastageService
	Products    handlers.ProductService
	Sales       handlers.SaleService
	Reports     handlers.ReportService
	Ledger      handlers.LedgerService
	Audit       audit.Reader
	Events      handlers.EventStream
}

// Role groups.
var (
	adminOnly      = []string{appctx.RoleAdmin}
	warehouseRoles = []string{appctx.RoleWarehouse, appctx.RoleAdmin}
	kitchenRoles   = []string{appctx.RoleKitchen, appctx.RoleAdmin}
	operationRoles = []string{appctx.RoleOperations, appctx.RoleAdmin}
	ledgerRoles    = []string{appctx.RoleAdmin, appctx.RoleWarehouse, appctx.RoleOperations}
)

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.Logger != nil {
		router.Use(middleware.Logger(cfg.Logger))
	}
	router.Use(middleware.ErrorHandler())

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, middleware.ErrorBody{Code: "NOT_FOUND", Message: "route not found"})
	})

	healthHandler := handlers.NewHealthHandler(cfg.Version, cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	base := handlers.NewBaseHandler()
	api := router.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(base, cfg.Auth)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	protected := api.Group("")
	protected.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.Idempotency != nil {
		protected.Use(middleware.Idempotency(cfg.Idempotency))
	}

	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/auth/me", authHandler.Me)

	registerUserRoutes(protected, authHandler)
	registerWarehouseRoutes(protected, base, cfg)
	registerKitchenRoutes(protected, base, cfg)
	registerOperationsRoutes(protected, base, cfg)
	registerLedgerRoutes(protected, base, cfg)

	if cfg.Audit != nil {
		auditHandler := handlers.NewAuditHandler(base, cfg.Audit)
		protected.GET("/audit/:entity/:id", middleware.RequireRole(adminOnly...), auditHandler.History)
	}
	if cfg.Events != nil {
		eventsHandler := handlers.NewEventsHandler(cfg.Events)
		protected.GET("/events/ws", middleware.RequireRole(operationRoles...), eventsHandler.Stream)
	}

	return router
}

func registerUserRoutes(rg *gin.RouterGroup, h *handlers.AuthHandler) {
	users := rg.Group("/users", middleware.RequireRole(adminOnly...))
	users.GET("", h.ListUsers)
	users.POST("", h.CreateUser)
	users.DELETE("/:id", h.DeleteUser)
}

func registerWarehouseRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewIngredientHandler(base, cfg.Ingredients)

	ingredients := rg.Group("/ingredients", middleware.RequireRole(warehouseRoles...))
	ingredients.GET("", h.List)
	ingredients.GET("/available", h.ListAvailable)
	ingredients.POST("", h.Create)
	ingredients.GET("/:id", h.Get)
	ingredients.PUT("/:id", h.Update)
	ingredients.POST("/:id/stock", h.UpdateStock)
	ingredients.DELETE("/:id", h.Delete)
}

func registerKitchenRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewKitchenHandler(base, cfg.Recipes, cfg.Production, cfg.Wastage, cfg.Ingredients)
	kitchen := rg.Group("", middleware.RequireRole(kitchenRoles...))

	recipes := kitchen.Group("/recipes")
	recipes.GET("", h.ListRecipes)
	recipes.POST("", h.CreateRecipe)
	recipes.GET("/:id", h.GetRecipe)

	semi := kitchen.Group("/semi-finished")
	semi.GET("", h.ListSemiFinished)
	semi.GET("/available", h.ListAvailableSemiFinished)

	production := kitchen.Group("/production")
	production.GET("", h.ListProduction)
	production.POST("", h.RecordProduction)
	production.POST("/check", h.CheckProduction)

	wastage := kitchen.Group("/wastage")
	wastage.GET("", h.ListWastage)
	wastage.POST("", h.RecordWastage)
	wastage.GET("/candidates", h.WastageCandidates)
}

func registerOperationsRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	ops := handlers.NewOperationsHandler(base, cfg.Products, cfg.Sales, cfg.Recipes)
	reports := handlers.NewReportsHandler(base, cfg.Reports)
	operations := rg.Group("", middleware.RequireRole(operationRoles...))

	products := operations.Group("/products")
	products.GET("", ops.ListProducts)
	products.POST("", ops.CreateProduct)
	products.GET("/components", ops.ListComponents)
	products.GET("/:id", ops.GetProduct)

	sales := operations.Group("/sales")
	sales.GET("/available", ops.ListAvailableProducts)
	sales.POST("/check", ops.CheckSale)
	sales.POST("", ops.RecordSale)
	sales.GET("/daily", ops.DailySales)

	costs := operations.Group("/costs")
	costs.GET("/recipes", reports.RecipeCosts)
	costs.GET("/recipes/:id", reports.RecipeBreakdown)
	costs.GET("/ingredients", reports.IngredientUsage)

	dashboard := operations.Group("/dashboard")
	dashboard.GET("", reports.Summary)
	dashboard.GET("/inventory", reports.InventoryValue)
	dashboard.GET("/expiring", reports.ExpiringItems)
	dashboard.GET("/wastage", reports.WastageStats)
	dashboard.GET("/sales", reports.SalesMetrics)
}

func registerLedgerRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewLedgerHandler(base, cfg.Ledger)
	ledger := rg.Group("/ledger", middleware.RequireRole(ledgerRoles...))
	ledger.GET("/movements", h.Movements)
	ledger.GET("/balance", h.Balance)
	ledger.GET("/turnover", h.Turnover)
}
