/**
 * @description
 * This is the main entry point for the onboarding service. It is responsible
 * for initializing all components of the service, including configuration,
 * database connection, message broker producer and consumers, repositories,
 * the core application service, the re-analysis scheduler, and the HTTP
 * server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/robfig/cron/v3 (via internal/app): re-analysis sweep scheduling.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/oliveiradevtech/onboarding-service/internal/api"
	"github.com/oliveiradevtech/onboarding-service/internal/app"
	"github.com/oliveiradevtech/onboarding-service/internal/config"
	"github.com/oliveiradevtech/onboarding-service/internal/store"
	"github.com/oliveiradevtech/onboarding-service/pkg/rabbitmq"
)

func main() {
	// Load a local .env file when present; production relies on real env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found, using environment\"")
	}

	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting onboarding-service\" addr=%s", cfg.HTTPAddr)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts behind poolers.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)
	if err := repository.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"schema setup failed\" err=%v", err)
	}

	// Initialize the RabbitMQ producer to publish events. Registration
	// publishes are best effort, but card issuance requires the broker, so a
	// producer failure at boot is fatal.
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"rabbitmq producer init failed\" err=%v", err)
	}
	defer producer.Close()
	log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")

	// Initialize the core application service with its dependencies.
	onboardingService := app.NewService(repository, producer, cfg)

	// Wire up the inbound consumers for analysis and issuance outcomes.
	consumers := app.NewEventConsumers(repository)

	rabbitConsumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"rabbitmq consumer init failed\" err=%v", err)
	}
	defer rabbitConsumer.Close()

	bindings := []struct {
		queue      string
		routingKey string
		handler    rabbitmq.Handler
	}{
		{cfg.AnalysisCompletedQueue, cfg.AnalysisCompletedKey, consumers.HandleCreditAnalysisCompleted},
		{cfg.AnalysisFailedQueue, cfg.AnalysisFailedKey, consumers.HandleCreditAnalysisFailed},
		{cfg.CardIssuedQueue, cfg.CardIssuedKey, consumers.HandleCardIssued},
		{cfg.CardIssuanceFailedQueue, cfg.CardIssuanceFailedKey, consumers.HandleCardIssuanceFailed},
	}
	for _, b := range bindings {
		if err := rabbitConsumer.Consume(cfg.EventsExchange, b.queue, b.routingKey, b.handler); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"consumer start failed\" queue=%s err=%v", b.queue, err)
		}
	}
	log.Println("level=info component=bootstrap msg=\"rabbitmq consumers listening\"")

	// Start the re-analysis sweep scheduler.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	jobs := app.NewJobs(repository, onboardingService, logger, cfg)
	scheduler := app.NewScheduler(jobs, logger, cfg)
	scheduler.Start()
	defer scheduler.Stop()

	// Set up the HTTP router and start the server.
	handler := api.NewHandler(onboardingService)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		log.Printf("level=info component=http msg=\"server listening\" addr=%s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
