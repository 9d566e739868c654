package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/terralotes/terralotes-api/docs" // Swagger docs
	"github.com/terralotes/terralotes-api/internal/config"
	"github.com/terralotes/terralotes-api/internal/database"
	"github.com/terralotes/terralotes-api/internal/handlers"
	"github.com/terralotes/terralotes-api/internal/jobs"
	"github.com/terralotes/terralotes-api/internal/middleware"
	"github.com/terralotes/terralotes-api/internal/repository"
	"github.com/terralotes/terralotes-api/internal/services"
	"github.com/terralotes/terralotes-api/internal/storage"
	"github.com/terralotes/terralotes-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// @title Terralotes API
// @version 1.0
// @description REST API for Terralotes Lot Inventory and Reservation System
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	if cfg.ResendAPIKey == "" || cfg.FromEmail == "" {
		logger.Warn("Resend email disabled: RESEND_API_KEY or FROM_EMAIL not set. Set them in .env and ensure the From domain is verified in Resend dashboard.")
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("Database schema up to date")

	// Initialize storage
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized local storage")

	// Optional Redis read cache
	rdb := config.NewRedisClient(cfg)
	if rdb != nil {
		logger.Info("Connected to Redis", "addr", cfg.RedisAddr)
	} else if cfg.RedisAddr != "" {
		logger.Warn("Redis unreachable, response cache disabled", "addr", cfg.RedisAddr)
	}

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, worker, cfg, db)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, cfg)

	// Initialize handlers
	h := handlers.NewHandlers(svcs, store)

	// Setup router
	router := setupRouter(h, cfg, rdb)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Shutdown background worker
	worker.Shutdown()
	logger.Info("Background worker stopped")

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config, rdb *redis.Client) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Uploaded files (map drawings and thumbnails)
	router.Static("/uploads", cfg.StoragePath+"/uploads")

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Redirect root to swagger
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})

		// Swagger documentation
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Authentication (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Cached inventory reads
			cached := protected.Group("")
			cached.Use(middleware.ResponseCache(rdb, cfg.CacheTTL))
			{
				cached.GET("/maps", h.Map.Index)
				cached.GET("/maps/:map_id", h.Map.Show)
				cached.GET("/maps/:map_id/blocks", h.Block.Index)
				cached.GET("/maps/:map_id/lots", h.Lot.Index)
				cached.GET("/maps/:map_id/lots/stats", h.Lot.GetStats)
			}

			// Admin-only routes (inventory management and lifecycle decisions)
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				// User management
				admin.GET("/users", h.User.Index)
				admin.POST("/users", h.User.Create)
				admin.PUT("/users/:user_id", h.User.Update)
				admin.DELETE("/users/:user_id", h.User.Delete)
				admin.PATCH("/users/:user_id/toggle_status", h.User.ToggleStatus)
				admin.PATCH("/users/:user_id/reset_password", h.User.ResetPassword)

				// Map management
				admin.POST("/maps", h.Map.Create)
				admin.PUT("/maps/:map_id", h.Map.Update)
				admin.DELETE("/maps/:map_id", h.Map.Delete)
				admin.POST("/maps/:map_id/image", h.Map.UploadImage)

				// Block management
				admin.POST("/maps/:map_id/blocks", h.Block.Create)
				admin.PUT("/maps/:map_id/blocks/:block_id", h.Block.Update)
				admin.DELETE("/maps/:map_id/blocks/:block_id", h.Block.Delete)

				// Lot management
				admin.POST("/maps/:map_id/lots", h.Lot.Create)
				admin.PUT("/maps/:map_id/lots/:lot_id", h.Lot.Update)
				admin.DELETE("/maps/:map_id/lots/:lot_id", h.Lot.Delete)
				admin.PATCH("/maps/:map_id/lots/:lot_id/rename", h.Lot.Rename)
				admin.PATCH("/maps/:map_id/lots/:lot_id/set_blocked", h.Lot.SetBlocked)
				admin.POST("/maps/:map_id/lots/import", h.Lot.Import)

				// Reservation lifecycle decisions
				admin.POST("/reservations/:reservation_id/approve", h.Reservation.Approve)
				admin.POST("/reservations/:reservation_id/reject", h.Reservation.Reject)
				admin.POST("/reservations/:reservation_id/cancel_sale", h.Reservation.CancelSale)

				// Audit trail and worker status
				admin.GET("/audit_logs", h.Audit.Index)
				admin.GET("/jobs/status", h.Job.Status)
			}

			// Seller + Admin routes
			sellerAdmin := protected.Group("")
			sellerAdmin.Use(middleware.RequireRole("admin", "dev", "seller"))
			{
				sellerAdmin.GET("/maps/:map_id/lots/:lot_id", h.Lot.Show)
				sellerAdmin.GET("/maps/:map_id/lots/export", h.Lot.Export)
				sellerAdmin.GET("/maps/:map_id/lots/inventory_pdf", h.Lot.InventoryPDF)

				sellerAdmin.GET("/reservations", h.Reservation.Index)
				sellerAdmin.GET("/reservations/stats", h.Reservation.GetStats)
				sellerAdmin.GET("/reservations/:reservation_id", h.Reservation.Show)
				sellerAdmin.POST("/reservations", h.Reservation.Create)
				sellerAdmin.PUT("/reservations/:reservation_id", h.Reservation.Edit)
				sellerAdmin.GET("/reservations/:reservation_id/agreement", h.Reservation.Agreement)
			}

			// All authenticated users
			protected.GET("/users/me", h.User.Me)
			protected.GET("/users/:user_id", middleware.RequireAdminOrOwner(), h.User.Show)
			protected.POST("/users/change_password", h.User.ChangePassword)

			// Notifications (static route first so read_all is not matched as :notification_id)
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.Index)
				notifications.PATCH("/read_all", h.Notification.MarkAllAsRead)
				notifications.PATCH("/:notification_id/read", h.Notification.MarkAsRead)
				notifications.DELETE("/:notification_id", h.Notification.Delete)
			}
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, cfg *config.Config) {
	// Release reservations that sat pending longer than the configured TTL.
	// Immediate so stale rows accumulated during downtime are swept right away.
	if cfg.ReservationTTLHours > 0 {
		worker.ScheduleEveryImmediate(1*time.Hour, func(ctx context.Context) error {
			logger.Info("[Job] Releasing stale reservations...", "ttl_hours", cfg.ReservationTTLHours)
			return svcs.Reservation.ReleaseStaleReservations(ctx, cfg.ReservationTTLHours)
		})
	} else {
		logger.Info("Stale reservation sweep disabled (RESERVATION_TTL_HOURS=0)")
	}

	// Expired refresh tokens pile up one per login; purge daily
	worker.ScheduleEvery(24*time.Hour, func(ctx context.Context) error {
		removed, err := svcs.Auth.PurgeExpiredTokens(ctx)
		if err != nil {
			return err
		}
		logger.Info("[Job] Purged expired refresh tokens", "removed", removed)
		return nil
	})

	logger.Info("Scheduled recurring jobs")
}
