package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "github.com/vendingmachine/backend/docs"
	"github.com/vendingmachine/backend/internal/auth"
	"github.com/vendingmachine/backend/internal/config"
	"github.com/vendingmachine/backend/internal/database"
	"github.com/vendingmachine/backend/internal/handlers"
	"github.com/vendingmachine/backend/internal/logger"
	"github.com/vendingmachine/backend/internal/metrics"
	"github.com/vendingmachine/backend/internal/middleware"
	"github.com/vendingmachine/backend/internal/repositories"
	"github.com/vendingmachine/backend/internal/scheduler"
	"github.com/vendingmachine/backend/internal/services"
	"go.uber.org/zap"
)

// @title Vending Machine API
// @version 1.0
// @description Multi-tenant vending machine backend: users, products, coin deposits and purchases

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logging.Level, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting vending machine service", zap.String("app", cfg.AppName), zap.Bool("debug", cfg.Debug))

	// Connect to database
	db, err := database.Connect(context.Background(), cfg.DSN())
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(db, database.MigrationsPath()); err != nil {
		appLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize JWT token generator
	tokenGenerator, err := auth.NewTokenGenerator(cfg.JWT.Secret, cfg.JWT.Algorithm)
	if err != nil {
		appLogger.Fatal("Failed to initialize token generator", zap.Error(err))
	}

	// Initialize repositories
	transactor := repositories.NewTransactor(db)
	userRepo := repositories.NewUserRepository(db, appLogger)
	productRepo := repositories.NewProductRepository(db, appLogger)
	sessionRepo := repositories.NewSessionRepository(db, appLogger)
	sessionProductRepo := repositories.NewSessionProductRepository(db, appLogger)
	statusRepo := repositories.NewStatusRepository(db, appLogger)

	// Initialize services
	authService := services.NewAuthService(transactor, userRepo, sessionRepo, sessionProductRepo, tokenGenerator, cfg.JWT.Timeout, appLogger)
	userService := services.NewUserService(userRepo, appLogger)
	productService := services.NewProductService(transactor, productRepo, appLogger)
	machineService := services.NewMachineService(transactor, userRepo, productRepo, sessionRepo, sessionProductRepo, appLogger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger, cfg.Debug)
	userHandler := handlers.NewUserHandler(userService, appLogger, cfg.Debug)
	productHandler := handlers.NewProductHandler(productService, appLogger, cfg.Debug)
	machineHandler := handlers.NewMachineHandler(machineService, authService, appLogger, cfg.Debug)
	statusHandler := handlers.NewStatusHandler(statusRepo, appLogger, cfg.Debug)

	// Initialize auth middleware
	authMiddleware := middleware.AuthMiddleware(authService, appLogger, cfg.Debug)
	loginLimiter := httprate.LimitByIP(cfg.RateLimit.LoginsPerMinute, time.Minute)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggerMiddleware(appLogger))
	r.Use(middleware.RecoveryMiddleware(appLogger))
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(metrics.InstrumentHandler)
	r.Use(httprate.LimitByIP(cfg.RateLimit.RequestsPerMinute, time.Minute))
	r.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))

	r.Handle("/metrics", metrics.Handler())

	// Swagger documentation
	if cfg.Debug {
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	}

	statusHandler.RegisterRoutes(r)
	authHandler.RegisterRoutes(r, authMiddleware, loginLimiter)
	userHandler.RegisterRoutes(r, authMiddleware)
	productHandler.RegisterRoutes(r, authMiddleware)
	machineHandler.RegisterRoutes(r, authMiddleware)

	// Expired session sweeper
	var sweeper *scheduler.Sweeper
	if cfg.Sweeper.Schedule != "" {
		sweeper, err = scheduler.NewSweeper(cfg.Sweeper.Schedule, authService, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize session sweeper", zap.Error(err))
		}
		sweeper.Start()
		appLogger.Info("Session sweeper started", zap.String("schedule", cfg.Sweeper.Schedule))
	}

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sweeper != nil {
		sweeper.Stop(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	appLogger.Info("Server exited")
}
