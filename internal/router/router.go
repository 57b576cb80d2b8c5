package router

import (
	"time"

	"stockledger/internal/config"
	"stockledger/internal/handler"
	"stockledger/internal/middleware"
	"stockledger/internal/repository"
	"stockledger/internal/service"
	"stockledger/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis.
// rdb may be nil: caching and alert publishing are then disabled.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, opts ...service.Option) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute))

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(db)
	logRepo := repository.NewInventoryLogRepository(db)
	cache := repository.NewProductCache(rdb, time.Duration(cfg.ProductCacheTTLMinutes)*time.Minute)

	// ── Services ─────────────────────────────────────────────────────────────
	var alerts service.StockAlertPublisher
	if rdb != nil {
		alerts = worker.NewDispatcher(rdb)
	}
	stockSvc := service.NewStockService(productRepo, logRepo, cache, alerts, opts...)
	productSvc := service.NewProductService(productRepo, cache)
	ledgerSvc := service.NewLedgerService(logRepo, productRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	productsH := handler.NewProductsHandler(productSvc, stockSvc, ledgerSvc)
	inventoryH := handler.NewInventoryHandler(ledgerSvc, productSvc)

	// ── Routes ───────────────────────────────────────────────────────────────
	r.GET("/health", handler.Health(db, rdb))

	anyRole := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleManager, middleware.RoleClerk)
	managers := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleManager)
	adminOnly := middleware.RequireRole(middleware.RoleAdmin)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		prods := v1.Group("/products")
		{
			prods.GET("", anyRole, productsH.List)
			prods.GET("/:id", anyRole, productsH.GetByID)
			prods.GET("/sku/:sku", anyRole, productsH.GetBySKU)
			prods.PATCH("/:id/stock", anyRole, productsH.AdjustStock)

			prods.POST("", managers, productsH.Create)
			prods.PUT("/:id", managers, productsH.Update)
			prods.GET("/:id/reconciliation", managers, productsH.Reconcile)

			prods.DELETE("/:id", adminOnly, productsH.Delete)
		}

		inv := v1.Group("/inventory", anyRole)
		{
			inv.GET("/logs", inventoryH.ListLogs)
			inv.GET("/alerts", inventoryH.Alerts)
		}
	}

	// Swagger UI, only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
