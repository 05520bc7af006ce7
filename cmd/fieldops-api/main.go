package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/trushine/fieldops-api/api/swagger"
	"github.com/trushine/fieldops-api/internal/ghl"
	"github.com/trushine/fieldops-api/internal/handler"
	"github.com/trushine/fieldops-api/internal/middleware"
	"github.com/trushine/fieldops-api/internal/models"
	"github.com/trushine/fieldops-api/internal/repository"
	"github.com/trushine/fieldops-api/internal/schedule"
	"github.com/trushine/fieldops-api/internal/service"
	"github.com/trushine/fieldops-api/pkg/cache"
	"github.com/trushine/fieldops-api/pkg/config"
	"github.com/trushine/fieldops-api/pkg/database"
	"github.com/trushine/fieldops-api/pkg/jobs"
	"github.com/trushine/fieldops-api/pkg/logger"
	corsmiddleware "github.com/trushine/fieldops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/trushine/fieldops-api/pkg/middleware/requestid"
	"github.com/trushine/fieldops-api/pkg/storage"
)

// @title FieldOps API
// @version 1.0.0
// @description Field service operations backend for TruShine Window Cleaning
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	userRepo := repository.NewUserRepository(db)
	jobRepo := repository.NewJobRepository(db)
	occurrenceRepo := repository.NewOccurrenceRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	contactRepo := repository.NewContactRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	payrollRepo := repository.NewPayrollRepository(db)
	templateRepo := repository.NewServiceTemplateRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()
	metrics := service.NewMetricsService()
	ghlClient := ghl.NewClient(cfg.GHL, logr)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "fieldops-api",
	})
	accountService := service.NewAccountService(credentialRepo, cacheRepo, logr)
	reconciler := schedule.NewReconciler(appointmentRepo, cfg.Scheduler.RecurringCalendarName, logr)

	jobService := service.NewJobService(jobRepo, occurrenceRepo, validate, logr)
	jobService.SetMetrics(metrics)
	slotService := service.NewSlotService(jobService, accountService, reconciler, cfg.Scheduler.LookupTimeout, logr)

	syncService := service.NewSyncService(service.SyncServiceConfig{
		API:          ghlClient,
		Accounts:     accountService,
		Calendars:    calendarRepo,
		Appointments: appointmentRepo,
		Slots:        slotService,
		CalendarName: cfg.Scheduler.RecurringCalendarName,
		Enabled:      cfg.Sync.Enabled,
		QueueConfig: jobs.QueueConfig{
			Workers:    cfg.Sync.Workers,
			MaxRetries: cfg.Sync.MaxRetries,
			RetryDelay: cfg.Sync.RetryDelay,
			Logger:     logr,
		},
		Logger: logr,
	})
	syncService.SetMetrics(metrics)

	invoiceService := service.NewInvoiceService(ghlClient, accountService, cfg.Invoices, logr)
	archive, err := storage.NewArchive(cfg.Invoices.ArchiveDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare invoice archive", "error", err)
	}
	invoiceService.SetArchive(archive, storage.NewSigner(cfg.JWT.Secret, cfg.Invoices.DownloadTTL))
	payrollService := service.NewPayrollService(payrollRepo, contactRepo, cfg.Payroll, logr)
	templateService := service.NewServiceTemplateService(templateRepo, validate, logr)
	sweepService := service.NewSweepService(jobRepo, logr)

	jobService.AddListener(syncService)
	jobService.AddListener(invoiceService)
	jobService.AddListener(payrollService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncService.Start(ctx)
	defer syncService.Stop()

	scheduler := cron.New()
	if cfg.Scheduler.ServiceDueInterval > 0 {
		_, err = scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.Scheduler.ServiceDueInterval), func() {
			if _, err := sweepService.Run(context.Background()); err != nil {
				logr.Sugar().Errorw("service-due sweep failed", "error", err)
			}
		})
		if err != nil {
			logr.Sugar().Fatalw("failed to schedule service-due sweep", "error", err)
		}
	}
	if _, err = scheduler.AddFunc("@daily", invoiceService.CleanupArchive); err != nil {
		logr.Sugar().Fatalw("failed to schedule invoice archive cleanup", "error", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	authHandler := handler.NewAuthHandler(authService)
	jobHandler := handler.NewJobHandler(jobService)
	slotHandler := handler.NewSlotHandler(slotService)
	templateHandler := handler.NewServiceTemplateHandler(templateService)
	payrollHandler := handler.NewPayrollHandler(payrollService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, jobService)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// The signed token is the credential here, not a JWT.
	api.GET("/invoices/download", invoiceHandler.DownloadArchived)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	// GET /jobs/:id also serves /jobs/mine; gin's tree cannot hold both.
	protected.GET("/jobs", jobHandler.List)
	protected.POST("/jobs", adminOnly, jobHandler.Create)
	protected.POST("/jobs/series", adminOnly, jobHandler.CreateSeries)
	protected.GET("/jobs/:id", jobHandler.Get)
	protected.PUT("/jobs/:id", adminOnly, jobHandler.Update)
	protected.PATCH("/jobs/:id/status", adminOnly, jobHandler.UpdateStatus)
	protected.DELETE("/jobs/:id", adminOnly, jobHandler.Delete)
	protected.GET("/jobs/:id/occurrences", jobHandler.Occurrences)
	protected.GET("/jobs/:id/slot-info", slotHandler.Info)
	protected.GET("/jobs/:id/invoice/pdf", invoiceHandler.DownloadPDF)
	protected.GET("/jobs/:id/invoice-link", invoiceHandler.SignedLink)
	protected.GET("/series/:id", jobHandler.Series)
	protected.GET("/occurrences", jobHandler.Calendar)
	protected.GET("/locations/jobs", jobHandler.LocationRollups)
	protected.GET("/locations/jobs/detail", jobHandler.LocationDetail)

	protected.GET("/service-templates", templateHandler.List)
	protected.GET("/service-templates/:id", templateHandler.Get)
	protected.POST("/service-templates", adminOnly, templateHandler.Create)
	protected.PUT("/service-templates/:id", adminOnly, templateHandler.Update)
	protected.DELETE("/service-templates/:id", adminOnly, templateHandler.Delete)

	protected.GET("/payroll/payouts", adminOnly, payrollHandler.Payouts)
	protected.GET("/payroll/rates", adminOnly, payrollHandler.Rates)
	protected.GET("/ops/metrics", adminOnly, metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
