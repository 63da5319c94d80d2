package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/crednine/loan-engine/internal/accrual"
	"github.com/crednine/loan-engine/internal/config"
	"github.com/crednine/loan-engine/internal/rate"
	"github.com/crednine/loan-engine/internal/repository"
	"github.com/crednine/loan-engine/internal/schedule"
	"github.com/crednine/loan-engine/internal/service"
)

func main() {
	log.Println("Starting engine scheduler...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	engineService := buildService(cfg, db, redisClient)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	setupCronJobs(c, cfg, engineService)

	// Start the scheduler
	c.Start()
	log.Println("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	ctx := c.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func buildService(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client) *service.EngineService {
	benchmarks := rate.NewCachedProvider(
		repository.NewBenchmarkRepository(db), redisClient, cfg.Batch.RateCacheTTL)
	resolver := rate.NewResolver(benchmarks)

	return service.NewEngineService(
		repository.NewLoanRepository(db),
		repository.NewScheduleRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewAccrualRepository(db),
		repository.NewECLRepository(db),
		schedule.NewGenerator(resolver),
		accrual.NewEngine(resolver),
		redisClient,
		cfg,
	)
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, engineService *service.EngineService) {
	// Daily accrual sweep over all active loans.
	_, err := c.AddFunc(cfg.Scheduler.AccrualSpec, func() {
		date := time.Now().Truncate(24 * time.Hour)
		log.Printf("Running daily accrual for %s...", date.Format("2006-01-02"))

		result, err := engineService.RunDailyAccrual(context.Background(), date)
		if err != nil {
			log.Printf("Daily accrual failed: %v", err)
			return
		}

		log.Printf("Daily accrual done: processed=%d skipped=%d errored=%d",
			result.Processed, result.Skipped, result.Errored)
		for _, itemErr := range result.Errors {
			log.Printf("Accrual error: %v", itemErr)
		}
	})
	if err != nil {
		log.Fatalf("Error scheduling daily accrual job: %v", err)
	}

	// Month-end staging and provisioning run.
	_, err = c.AddFunc(cfg.Scheduler.ProvisioningSpec, func() {
		// The run on the 1st provisions as of the prior month's last day.
		date := time.Now().Truncate(24*time.Hour).AddDate(0, 0, -1)
		log.Printf("Running provisioning for %s...", date.Format("2006-01-02"))

		result, err := engineService.RunProvisioning(context.Background(), date)
		if err != nil {
			log.Printf("Provisioning failed: %v", err)
			return
		}

		log.Printf("Provisioning done: processed=%d skipped=%d errored=%d",
			result.Processed, result.Skipped, result.Errored)
		for _, itemErr := range result.Errors {
			log.Printf("Provisioning error: %v", itemErr)
		}
	})
	if err != nil {
		log.Fatalf("Error scheduling provisioning job: %v", err)
	}

	log.Println("Cron jobs scheduled successfully")
}
