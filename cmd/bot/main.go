package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"topicrelay/internal/config"
	"topicrelay/internal/handler"
	"topicrelay/internal/metrics"
	"topicrelay/internal/platform"
	"topicrelay/internal/repository"
	"topicrelay/internal/repository/memory"
	"topicrelay/internal/repository/postgres"
	"topicrelay/internal/server"
	"topicrelay/internal/service"
	"topicrelay/internal/turnstile"
	"topicrelay/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const (
	cleanupInterval = time.Hour
	shutdownTimeout = 15 * time.Second
)

// store bundles the selected key-value backend with its lifecycle hooks
type store struct {
	kv     repository.KVStore
	purger repository.Purger
	ping   func(ctx context.Context) error
	close  func() error
}

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting topic relay")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Configuration loaded successfully",
		zap.String("store", cfg.StoreDriver),
		zap.Bool("verification", cfg.VerificationEnabled()),
	)

	// Open the key-value store
	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize Telegram bot; updates arrive through the webhook
	bot, err := tele.NewBot(tele.Settings{
		Token:       cfg.BotToken,
		Synchronous: true,
		Client:      &http.Client{Timeout: cfg.CallTimeout + 5*time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Error("Bot handler error", zap.Error(err))
		},
	})
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	logger.Info("Telegram bot initialized", zap.String("username", bot.Me.Username))

	api := platform.NewClient(bot, cfg.CallTimeout, logger)
	scheduler := worker.NewScheduler(m, logger)

	// Initialize repositories
	users := repository.NewUserRepo(st.kv)
	bindings := repository.NewBindingRepo(st.kv)
	ticketRepo := repository.NewTicketRepo(st.kv)
	batches := repository.NewBatchRepo(st.kv)
	settings := repository.NewSettingsRepo(st.kv)

	// Initialize services
	var verifier service.ChallengeVerifier
	if cfg.VerificationEnabled() {
		verifier = turnstile.NewClient(cfg.Turnstile.Secret)
	}

	directory := service.NewDirectory(bindings, api, cfg.GroupID, m, logger)
	acks := service.NewAcknowledger(api, scheduler, m, logger)
	aggregator := service.NewAggregator(batches, api, scheduler, m, logger)
	tickets := service.NewTickets(ticketRepo, users, settings, verifier, service.TicketsConfig{
		PublicURL: cfg.PublicURL,
		TicketTTL: cfg.TicketTTL,
		VerifyTTL: cfg.VerifyTTL,
	}, m, logger)
	relay := service.NewRelay(users, directory, acks, aggregator, tickets, api, cfg.GroupID, m, logger)
	admin := service.NewAdmin(users, settings, directory, tickets, logger)
	maintenance := service.NewMaintenanceService(st.purger, logger)

	// Initialize handler
	h := handler.NewHandler(bot, relay, admin, tickets, api, cfg.GroupID, logger)
	h.RegisterHandlers()

	logger.Info("Handlers registered")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RegisterWebhook {
		hook := strings.TrimRight(cfg.PublicURL, "/") + "/"
		if res := api.SetWebhook(ctx, hook, cfg.WebhookSecret); !res.OK {
			logger.Fatal("Failed to register webhook", zap.Error(res.Err()))
		}
		logger.Info("Webhook registered", zap.String("url", hook))
	}

	// Start cleanup job in background
	go runCleanupJob(ctx, maintenance, logger)

	// Start HTTP server in background
	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.Options{
		WebhookSecret:   cfg.WebhookSecret,
		SiteKey:         cfg.Turnstile.SiteKey,
		VerifyRateLimit: cfg.VerifyRateLimit,
		Presence: server.ConfigPresence{
			BotToken:      cfg.BotToken != "",
			GroupID:       cfg.GroupID != 0,
			WebhookSecret: cfg.WebhookSecret != "",
			Turnstile:     cfg.VerificationEnabled(),
			PublicURL:     cfg.PublicURL != "",
		},
	}, server.Deps{
		Bot:       bot,
		Tickets:   tickets,
		Relay:     relay,
		Scheduler: scheduler,
		Gatherer:  registry,
		Metrics:   m,
		Logger:    logger,
		Ping:      st.ping,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info("Shutdown signal received, stopping server...")

	// Graceful shutdown: stop taking requests, then let deferred work finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := scheduler.Wait(shutdownCtx); err != nil {
		logger.Warn("Deferred tasks still running at exit", zap.Error(err))
	}
	cancel()

	logger.Info("Relay stopped gracefully")
}

// openStore selects the key-value backend configured in STORE_DRIVER
func openStore(cfg *config.Config, logger *zap.Logger) (*store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		kv, err := memory.NewKVStore(memory.DefaultSize)
		if err != nil {
			return nil, err
		}
		logger.Warn("Using in-memory store; state is lost on restart and writes fail once it is full of durable records")
		return &store{kv: kv, purger: kv, close: func() error { return nil }}, nil
	}

	// Connect to database with retries
	db, err := connectDatabase(cfg.DSN(), logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Database connection established")

	// Run migrations
	if err := runMigrations(db, cfg.MigrationsPath, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Database migrations completed")

	kv := postgres.NewKVStore(db)
	return &store{kv: kv, purger: kv, ping: db.PingContext, close: db.Close}, nil
}

// connectDatabase connects to PostgreSQL with retries
func connectDatabase(dsn string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Warn("Failed to open database connection",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
			continue
		}

		// Test connection
		if err = db.Ping(); err != nil {
			logger.Warn("Failed to ping database",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			db.Close()
			time.Sleep(retryDelay)
			continue
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// runMigrations applies the kv schema
func runMigrations(db *sql.DB, source string, logger *zap.Logger) error {
	driver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("No new migrations to apply")
	case err != nil:
		return fmt.Errorf("failed to run migrations: %w", err)
	default:
		logger.Info("Migrations applied successfully")
	}
	return nil
}

// runCleanupJob periodically drops expired tickets, batches and other TTL'd records
func runCleanupJob(ctx context.Context, maintenance *service.MaintenanceService, logger *zap.Logger) {
	// Run cleanup once at startup
	if err := maintenance.CleanupExpired(ctx); err != nil {
		logger.Error("Failed to run initial cleanup", zap.Error(err))
	}

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup job stopped")
			return
		case <-ticker.C:
			logger.Info("Running scheduled cleanup")
			if err := maintenance.CleanupExpired(ctx); err != nil {
				logger.Error("Failed to run scheduled cleanup", zap.Error(err))
			}
		}
	}
}
