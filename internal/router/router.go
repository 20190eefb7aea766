package router

import (
	"time"

	"github.com/zolijavos/KGC-3-sub017/internal/config"
	"github.com/zolijavos/KGC-3-sub017/internal/handler"
	"github.com/zolijavos/KGC-3-sub017/internal/infra"
	"github.com/zolijavos/KGC-3-sub017/internal/middleware"
	"github.com/zolijavos/KGC-3-sub017/internal/model"
	"github.com/zolijavos/KGC-3-sub017/internal/repository"
	"github.com/zolijavos/KGC-3-sub017/internal/service"
	"github.com/zolijavos/KGC-3-sub017/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, cardClient *infra.CardTerminalClient) *gin.Engine {
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

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	zreportRepo := repository.NewZReportRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpirationHours, cfg.JWTRefreshHours)
	productSvc := service.NewProductService(productRepo)
	inventory := service.NewStockService(productRepo)
	sessionSvc := service.NewSessionService(sessionRepo, transactionRepo, zreportRepo, sequenceRepo, auditRepo, dispatcher, cfg.VarianceToleranceHUF)
	paymentSvc := service.NewPaymentService(transactionRepo, paymentRepo, auditRepo, inventory, sessionSvc, cardClient, cfg.Currency)
	cartSvc := service.NewCartService(transactionRepo, productRepo, sequenceRepo, auditRepo, sessionSvc, paymentSvc, inventory)
	zreportSvc := service.NewZReportService(zreportRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	productH := handler.NewProductHandler(productSvc)
	sessionH := handler.NewSessionHandler(sessionSvc, zreportSvc)
	transactionH := handler.NewTransactionHandler(cartSvc)
	paymentH := handler.NewPaymentHandler(paymentSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, cardClient.Breaker()))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	anyRole := middleware.RequireRole(model.RoleCashier, model.RoleManager, model.RoleAdmin)
	managerUp := middleware.RequireRole(model.RoleManager, model.RoleAdmin)

	v1 := r.Group("/v1", jwtMW)
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", anyRole, sessionH.Open)
			sessions.GET("", anyRole, sessionH.List)
			sessions.POST("/close", anyRole, sessionH.Close)
			sessions.GET("/active/:location_id", anyRole, sessionH.GetActive)
			sessions.GET("/:id", anyRole, sessionH.Get)
			sessions.POST("/:id/suspend", anyRole, sessionH.Suspend)
			sessions.POST("/:id/resume", anyRole, sessionH.Resume)
			// Variance decisions are a manager-level operation.
			sessions.POST("/:id/approve", managerUp, sessionH.ApproveVariance)
			sessions.POST("/:id/reject", managerUp, sessionH.RejectVariance)
			sessions.POST("/:id/resubmit", anyRole, sessionH.ResubmitVariance)
			sessions.GET("/:id/zreport", anyRole, sessionH.GetZReport)
			sessions.GET("/:id/zreport/pdf", managerUp, sessionH.DownloadZReportPDF)
			sessions.GET("/:id/transactions", anyRole, transactionH.ListBySession)
		}

		transactions := v1.Group("/transactions")
		{
			transactions.POST("", anyRole, transactionH.Create)
			transactions.GET("/:id", anyRole, transactionH.Get)
			transactions.POST("/:id/items", anyRole, transactionH.AddItem)
			transactions.PATCH("/:id/items/:item_id", anyRole, transactionH.UpdateItem)
			transactions.DELETE("/:id/items/:item_id", anyRole, transactionH.RemoveItem)
			transactions.PUT("/:id/customer", anyRole, transactionH.SetCustomer)
			transactions.POST("/:id/pay/cash", anyRole, paymentH.Cash)
			transactions.POST("/:id/pay/card", anyRole, paymentH.Card)
			transactions.POST("/:id/pay/partial", anyRole, paymentH.Partial)
			transactions.POST("/:id/finalize", anyRole, paymentH.Finalize)
			// Voiding a sale requires manager approval.
			transactions.POST("/:id/void", managerUp, transactionH.Void)
		}

		v1.POST("/payments/:payment_id/refund", managerUp, paymentH.Refund)

		products := v1.Group("/products")
		{
			products.GET("", anyRole, productH.List)
			products.GET("/:id", anyRole, productH.Get)
			products.POST("", middleware.RequireRole(model.RoleAdmin), productH.Create)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
