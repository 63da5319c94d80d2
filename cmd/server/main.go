package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/crednine/loan-engine/internal/accrual"
	"github.com/crednine/loan-engine/internal/config"
	"github.com/crednine/loan-engine/internal/handler"
	"github.com/crednine/loan-engine/internal/rate"
	"github.com/crednine/loan-engine/internal/repository"
	"github.com/crednine/loan-engine/internal/schedule"
	"github.com/crednine/loan-engine/internal/service"
	"github.com/crednine/loan-engine/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	loanRepo := repository.NewLoanRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	accrualRepo := repository.NewAccrualRepository(db)
	eclRepo := repository.NewECLRepository(db)

	// Initialize engines. Benchmark rates come from the rate store behind a
	// redis cache.
	benchmarks := rate.NewCachedProvider(
		repository.NewBenchmarkRepository(db), redisClient, cfg.Batch.RateCacheTTL)
	resolver := rate.NewResolver(benchmarks)
	generator := schedule.NewGenerator(resolver)
	accrualEngine := accrual.NewEngine(resolver)

	// Initialize service and handlers
	engineService := service.NewEngineService(
		loanRepo, scheduleRepo, paymentRepo, accrualRepo, eclRepo,
		generator, accrualEngine, redisClient, cfg)
	engineHandler := handler.NewEngineHandler(engineService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Setup routes
	router := setupRoutes(engineHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(engineHandler *handler.EngineHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	// Health checks
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/loans", engineHandler.DisburseLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/restructure", engineHandler.RestructureLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/recompute", engineHandler.RecomputeSchedule).Methods("POST")
	api.HandleFunc("/loans/{loanId}/schedule", engineHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/loans/{loanId}/outstanding", engineHandler.GetOutstanding).Methods("GET")
	api.HandleFunc("/loans/{loanId}/payment", engineHandler.MakePayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/accrue", engineHandler.Accrue).Methods("POST")
	api.HandleFunc("/loans/{loanId}/stage", engineHandler.GetStage).Methods("GET")
	api.HandleFunc("/loans/{loanId}/cure", engineHandler.CureLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/provision", engineHandler.GetProvision).Methods("GET")
	api.HandleFunc("/provisions/summary", engineHandler.PortfolioSummary).Methods("GET")

	return router
}
