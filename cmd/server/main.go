package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulsecrm/internal/config"
	"pulsecrm/internal/handlers"
	"pulsecrm/internal/metrics"
	"pulsecrm/internal/middleware"
	"pulsecrm/internal/models"
	"pulsecrm/internal/observability"
	"pulsecrm/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

func main() {
	// Read configuration (default ./config.yml) and initialize logging.
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()
	if err := config.InitLogger(cfg); err != nil {
		logrus.Warnf("init logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	ctx := context.Background()
	shutdownTracing, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		appLogger.Warnf("init tracing: %v", err)
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if cfg.Monitoring.Tracing.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			appLogger.Warnf("init gorm tracing: %v", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(
		&models.User{}, &models.Contact{}, &models.Pipeline{}, &models.Stage{},
		&models.Deal{}, &models.CustomField{}, &models.EmailMessage{},
		&models.Automation{}, &models.AutomationEnrollment{}, &models.AutomationLog{},
	); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.EnsureAutomationIndexes(db); err != nil {
		appLogger.Fatalf("Failed to create automation indexes: %v", err)
	}

	// Business services.
	contactService := services.NewContactService(db, appLogger)
	dealService := services.NewDealService(db, appLogger, contactService)
	customFieldService := services.NewCustomFieldService(db)
	automationService := services.NewAutomationService(db, appLogger)
	emailService := services.NewEmailService(cfg.SMTP, db, appLogger)

	// Automation engine.
	audit := services.NewAuditLogger(db, appLogger)
	executor := services.NewActionExecutor(contactService, dealService, emailService, appLogger)
	enrollments := services.NewEnrollmentService(db, appLogger, executor, audit)
	dispatcher := services.NewEventDispatcher(db, appLogger, enrollments,
		cfg.Automation.QueueSize, cfg.Automation.Workers)
	dispatcher.Start()

	contactService.SetEventSink(dispatcher)
	dealService.SetEventSink(dispatcher)

	// Live execution feed.
	feedHub := services.NewFeedHub(appLogger)
	go feedHub.Run()
	enrollments.SetNotifier(feedHub)

	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	if cfg.Monitoring.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Monitoring.Tracing.ServiceName))
	}
	if cfg.Security.CORS.Enabled {
		r.Use(middleware.CORSMiddleware(cfg))
	}
	if cfg.Security.RateLimiting.Enabled {
		r.Use(middleware.RateLimitMiddleware(cfg))
	}

	healthHandler := handlers.NewHealthHandler(db, feedHub)
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	if cfg.Monitoring.Enabled {
		r.GET(cfg.Monitoring.MetricsPath, func(c *gin.Context) {
			c.JSON(http.StatusOK, metrics.Snapshot())
		})
	}

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	handlers.RegisterContactRoutes(api, handlers.NewContactHandler(contactService, appLogger))
	handlers.RegisterDealRoutes(api, handlers.NewDealHandler(dealService, appLogger))
	handlers.RegisterCustomFieldRoutes(api, handlers.NewCustomFieldHandler(customFieldService, appLogger))
	handlers.RegisterAutomationRoutes(api, handlers.NewAutomationHandler(automationService, appLogger))
	api.GET("/stats", healthHandler.Stats)
	api.GET("/feed", feedHub.HandleWebSocket)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: r}
	go func() {
		appLogger.Infof("Starting server on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorf("Server forced to shutdown: %v", err)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorf("Dispatcher shutdown: %v", err)
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			appLogger.Errorf("Tracing shutdown: %v", err)
		}
	}
	appLogger.Info("Server exited")
}
