// Package main provides the main entry point for the invitation dispatch engine
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glowdesk/invite-engine/app/handlers"
	"github.com/glowdesk/invite-engine/app/middleware"
	"github.com/glowdesk/invite-engine/app/router"
	"github.com/glowdesk/invite-engine/app/scheduler"
	"github.com/glowdesk/invite-engine/app/services"
	businessflow "github.com/glowdesk/invite-engine/business_flow"
	"github.com/glowdesk/invite-engine/config"
	"github.com/glowdesk/invite-engine/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router       *router.FiberRouter
	config       *config.ProductionConfig
	server       *fiber.App
	campaignFlow businessflow.InviteCampaignFlow
	stopFuncs    []func()
}

func main() {
	log.Println("Starting invite engine...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Let in-flight campaign dispatch loops persist their position
	app.campaignFlow.WaitDispatch()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeMessageGateway creates the message gateway based on configuration
func initializeMessageGateway(cfg *config.ProductionConfig) services.MessageGateway {
	if cfg.SMS.ProviderDomain == "mock" && cfg.Chat.ProviderDomain == "mock" {
		return services.NewMockMessageGateway()
	}
	return services.NewMessageGateway(&cfg.SMS, &cfg.Chat)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	salonRepo := repository.NewSalonRepository(db)
	operatorRepo := repository.NewOperatorRepository(db)
	customerRepo := repository.NewImportedCustomerRepository(db)
	campaignRepo := repository.NewInviteCampaignRepository(db)
	messageRepo := repository.NewInviteMessageRepository(db)
	offerRepo := repository.NewWelcomeOfferRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Initialize services
	gateway := initializeMessageGateway(cfg)
	statsCache := services.NewRedisStatsCache(rc, cfg.Cache.RedisPrefix)

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	loginFlow := businessflow.NewLoginFlow(
		operatorRepo,
		salonRepo,
		auditRepo,
		tokenService,
		cfg.JWT.AccessTokenTTL,
	)

	campaignFlow := businessflow.NewInviteCampaignFlow(
		campaignRepo,
		customerRepo,
		messageRepo,
		offerRepo,
		salonRepo,
		auditRepo,
		gateway,
		statsCache,
		db,
		cfg.Dispatch,
		cfg.Cache.StatsTTL,
	)

	deliveryFlow := businessflow.NewDeliveryReportFlow(
		messageRepo,
		campaignRepo,
		db,
	)

	customerFlow := businessflow.NewCustomerFlow(
		customerRepo,
		auditRepo,
		db,
	)

	offerFlow := businessflow.NewWelcomeOfferFlow(offerRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(loginFlow)
	campaignHandler := handlers.NewInviteCampaignHandler(campaignFlow)
	customerHandler := handlers.NewCustomerHandler(customerFlow)
	offerHandler := handlers.NewWelcomeOfferHandler(offerFlow)
	webhookHandler := handlers.NewDeliveryWebhookHandler(deliveryFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService, operatorRepo)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		authHandler,
		campaignHandler,
		customerHandler,
		offerHandler,
		webhookHandler,
		authMiddleware,
	)

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewInviteScheduler(campaignRepo, campaignFlow, cfg.Scheduler, cfg.Logging)
		stopScheduler := sched.Start(context.Background())
		stopFuncs = append(stopFuncs, stopScheduler)
	}

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:       fiberRouter,
		config:       cfg,
		server:       fiberRouter.GetApp(),
		campaignFlow: campaignFlow,
		stopFuncs:    stopFuncs,
	}

	return application, nil
}
