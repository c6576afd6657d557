package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "smartsahuji/api/swagger" // swagger docs
	"smartsahuji/internal/auth"
	"smartsahuji/internal/cache"
	"smartsahuji/internal/config"
	"smartsahuji/internal/database"
	"smartsahuji/internal/handler"
	"smartsahuji/internal/metrics"
	"smartsahuji/internal/middleware"
	"smartsahuji/internal/repository"
	"smartsahuji/internal/repository/mongodb"
	"smartsahuji/internal/scheduler"
	"smartsahuji/internal/service"
	"smartsahuji/internal/websocket"
	"smartsahuji/pkg/logger"
	"smartsahuji/pkg/scratch"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default command)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.Database, logger.Named(log, "database"))
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	loc := cfg.Scheduler.Location()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	appCache := cache.New(ctx, cfg.Redis, logger.Named(log, "cache"))

	hub := websocket.NewHub(logger.Named(log, "websocket"))
	go hub.Run(ctx)

	uploads, err := scratch.New(cfg.Upload.Dir)
	if err != nil {
		return err
	}

	// Repository -> Service -> Handler
	userRepo := repository.NewUserRepository(db)
	invRepo := repository.NewInventoryRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	inventoryService := service.NewInventoryService(invRepo, auditRepo, txManager, appCache, hub, logger.Named(log, "svc.inventory"))
	transactionService := service.NewTransactionService(txRepo, invRepo, auditRepo, txManager, appCache, hub, logger.Named(log, "svc.transaction"))
	importService := service.NewImportService(inventoryService, transactionService, invRepo, auditRepo, hub, logger.Named(log, "svc.import"))
	insightsService := service.NewInsightsService(repository.NewInsightsRepository(db), invRepo, loc, logger.Named(log, "svc.insights"))
	auditService := service.NewAuditService(auditRepo)
	userService := service.NewUserService(userRepo, invRepo, txRepo, auditRepo, txManager, tokens, cfg.Auth, cfg.Server.PublicURL, logger.Named(log, "svc.user"))

	authLimit, err := middleware.RateLimit(cfg.RateLimit.AuthRate)
	if err != nil {
		return err
	}

	httpLog := logger.Named(log, "http")
	authenticate := middleware.Authenticate(tokens)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(httpLog), metrics.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", metrics.Handler())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(hub, c, tokens)
	})

	api := router.Group("/api")
	handler.NewUserHandler(userService, middleware.NewCookieSettings(cfg.Auth), authenticate, authLimit, httpLog).RegisterRoutes(api)

	protected := api.Group("", authenticate)
	handler.NewInventoryHandler(inventoryService, importService, uploads, cfg.Upload.MaxSizeBytes, httpLog).RegisterRoutes(protected)
	handler.NewTransactionHandler(transactionService, importService, uploads, cfg.Upload.MaxSizeBytes, httpLog).RegisterRoutes(protected)
	handler.NewInsightsHandler(insightsService, loc, httpLog).RegisterRoutes(protected)
	handler.NewAuditHandler(auditService, httpLog).RegisterRoutes(protected)

	if cfg.Scheduler.Enabled {
		jobs, closeReports, err := newScheduler(ctx, cfg, loc, insightsService, invRepo, hub, logger.Named(log, "scheduler"))
		if err != nil {
			return err
		}
		defer closeReports()
		if err := jobs.Start(); err != nil {
			return err
		}
		defer jobs.Stop()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newScheduler wires the daily report job. The MongoDB archive is optional;
// without it reports are still generated and low stock is still pushed.
func newScheduler(ctx context.Context, cfg *config.Config, loc *time.Location, insights service.InsightsService,
	invRepo repository.InventoryRepository, events service.EventPublisher, log *zap.Logger) (*scheduler.Scheduler, func(), error) {
	var reports mongodb.ReportRepository
	closeFn := func() {}

	if cfg.MongoDB.URI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		repo, err := mongodb.NewReportRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			return nil, nil, err
		}
		reports = repo
		closeFn = func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.Close(closeCtx); err != nil {
				log.Warn("failed to close mongodb", zap.Error(err))
			}
		}
	} else {
		log.Info("MONGODB_URI not set, daily reports will not be archived")
	}

	return scheduler.New(cfg.Scheduler, loc, insights, invRepo, reports, events, log), closeFn, nil
}
