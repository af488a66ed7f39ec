package router

import (
	"time"

	"github.com/jrrjunior25/pdv-fiscal/internal/config"
	"github.com/jrrjunior25/pdv-fiscal/internal/handler"
	"github.com/jrrjunior25/pdv-fiscal/internal/infra"
	"github.com/jrrjunior25/pdv-fiscal/internal/middleware"
	"github.com/jrrjunior25/pdv-fiscal/internal/repository"
	"github.com/jrrjunior25/pdv-fiscal/internal/service"
	"github.com/jrrjunior25/pdv-fiscal/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// The SEFAZ circuit breaker is shared with the worker pool so that HTTP
// handlers and background retries see the same breaker state.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, sefazCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	sefazClient := infra.NewSefazClient(cfg.SefazBaseURL, time.Duration(cfg.SefazTimeoutSeconds)*time.Second)

	// ── Repositories ─────────────────────────────────────────────────────────
	reg := repository.NewRegistry(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(reg.Users, cfg)
	productSvc := service.NewProductService(reg.Products)
	shiftSvc := service.NewShiftService(reg.Shifts, cfg.AllowNegativeCash)
	commissionSvc := service.NewCommissionService(reg, cfg.CommissionBase)
	inventorySvc := service.NewInventoryService(reg)
	fiscalSvc := service.NewFiscalService(reg, sefazClient, sefazCB, cfg.XMLStoragePath, cfg.PDFStoragePath)
	saleSvc := service.NewSaleService(reg, commissionSvc, dispatcher)
	monitoringSvc := service.NewMonitoringService(db, rdb, sefazCB)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	productH := handler.NewProductHandler(productSvc)
	shiftH := handler.NewShiftHandler(shiftSvc)
	saleH := handler.NewSaleHandler(saleSvc)
	commissionH := handler.NewCommissionHandler(commissionSvc)
	fiscalH := handler.NewFiscalHandler(fiscalSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	monitoringH := handler.NewMonitoringHandler(monitoringSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, sefazCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: caixa, vendedor, supervisor, admin — declared per-endpoint
		anyStaff := middleware.RequireRole("caixa", "vendedor", "supervisor", "admin")
		cashier := middleware.RequireRole("caixa", "supervisor", "admin")
		manager := middleware.RequireRole("supervisor", "admin")
		adminOnly := middleware.RequireRole("admin")

		shifts := v1.Group("/shifts")
		{
			shifts.POST("", cashier, shiftH.Open)
			shifts.GET("/current", cashier, shiftH.Current)
			shifts.GET("", manager, shiftH.History)
			shifts.GET("/:id/summary", cashier, shiftH.Summary)
			shifts.POST("/:id/close", cashier, shiftH.Close)
			shifts.POST("/:id/movements", cashier, shiftH.Movement)
		}

		sales := v1.Group("/sales")
		{
			sales.POST("", cashier, saleH.Create)
			sales.GET("", cashier, saleH.List)
			sales.GET("/:id", cashier, saleH.Get)
			// Cancellation reverses stock, cash, and commission — supervisor up
			sales.POST("/:id/cancel", manager, saleH.Cancel)
		}

		commissions := v1.Group("/commissions", manager)
		{
			commissions.POST("", commissionH.Create)
			commissions.GET("", commissionH.List)
			commissions.GET("/report", commissionH.Report)
			commissions.POST("/pay", adminOnly, commissionH.Pay)
			commissions.POST("/:id/cancel", adminOnly, commissionH.Cancel)
		}

		fiscal := v1.Group("/fiscal")
		{
			fiscal.GET("/config", manager, fiscalH.GetConfig)
			fiscal.PUT("/config", adminOnly, fiscalH.SaveConfig)
			fiscal.POST("/certificate", adminOnly, fiscalH.UploadCertificate)

			fiscal.POST("/documents", cashier, fiscalH.Issue)
			fiscal.GET("/documents", manager, fiscalH.ListDocuments)
			fiscal.GET("/documents/:id", cashier, fiscalH.GetDocument)
			fiscal.GET("/documents/:id/pdf", cashier, fiscalH.DownloadPDF)
			fiscal.POST("/documents/:id/retry", manager, fiscalH.Retry)
			fiscal.DELETE("/documents/:id", manager, fiscalH.Cancel)
			fiscal.GET("/sales/:sale_id/document", cashier, fiscalH.GetDocumentBySale)

			fiscal.POST("/pix", cashier, fiscalH.GeneratePix)
			fiscal.GET("/sales/:sale_id/pix", cashier, fiscalH.ListPixBySale)
		}

		inventory := v1.Group("/inventory", manager)
		{
			inventory.POST("/movements", inventoryH.RecordMovement)
			inventory.GET("/movements", inventoryH.Movements)
			inventory.GET("/alerts", inventoryH.Alerts)
			inventory.POST("/alerts/:id/resolve", inventoryH.ResolveAlert)
			inventory.GET("/low-stock", inventoryH.LowStock)
		}

		products := v1.Group("/products")
		{
			products.GET("", anyStaff, productH.List)
			products.GET("/:id", anyStaff, productH.Get)
			products.GET("/code/:code", anyStaff, productH.GetByCode)
			products.POST("", adminOnly, productH.Create)
			products.PUT("/:id", adminOnly, productH.Update)
		}

		users := v1.Group("/users", adminOnly)
		{
			users.POST("", authH.CreateUser)
			users.GET("", authH.ListUsers)
		}

		v1.GET("/monitoring/metrics", adminOnly, monitoringH.Metrics)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
