package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mondokter/mondokter-backend/internal/adapters/cache"
	"github.com/mondokter/mondokter-backend/internal/adapters/database"
	"github.com/mondokter/mondokter-backend/internal/adapters/events"
	"github.com/mondokter/mondokter-backend/internal/adapters/providers/scheduling"
	"github.com/mondokter/mondokter-backend/internal/adapters/search"
	"github.com/mondokter/mondokter-backend/internal/api/handlers"
	"github.com/mondokter/mondokter-backend/internal/api/middleware"
	"github.com/mondokter/mondokter-backend/internal/api/routes"
	"github.com/mondokter/mondokter-backend/internal/application/services"
	"github.com/mondokter/mondokter-backend/internal/domain/providers"
	"github.com/mondokter/mondokter-backend/internal/domain/repositories"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/clients/postgres"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/clients/redis"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/clients/typesense"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/notifications"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/observability"
	"github.com/mondokter/mondokter-backend/pkg/config"
	"github.com/mondokter/mondokter-backend/pkg/secrets"
)

func main() {
	// Hydrate environment from Vault before reading configuration, so the
	// scheduling API key can live outside deploy manifests.
	vaultResult, err := secrets.ApplyVaultSecrets(context.Background(), secrets.LoadVaultConfigFromEnv())
	if err != nil {
		log.Printf("Warning: Vault secrets not applied: %v", err)
	} else if vaultResult.Enabled {
		log.Printf("Vault secrets applied from %s (loaded %d, skipped %d)", vaultResult.Path, vaultResult.Loaded, vaultResult.Skipped)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var shutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize Redis client
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
		// Continue without Redis - caching and the event feed degrade gracefully
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Println("Redis client initialized successfully")
	}

	// Initialize Typesense client
	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Printf("Warning: Failed to initialize Typesense client: %v", err)
		typesenseClient = nil
	} else {
		log.Println("Typesense client initialized successfully")
	}

	// Initialize adapters
	bookingAdapter := database.NewBookingAdapter(pgClient)
	serviceAdapter := database.NewServiceAdapter(pgClient)
	providerAdapter := database.NewProviderAdapter(pgClient)
	clinicAdapter := database.NewClinicAdapter(pgClient)

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		log.Println("Event bus initialized successfully")
	} else {
		log.Println("Event bus disabled (Redis not available)")
	}

	var searchRepo repositories.DirectorySearchRepository
	if typesenseClient != nil {
		adapter := search.NewTypesenseAdapter(typesenseClient)
		if err := adapter.EnsureCollections(context.Background()); err != nil {
			log.Printf("Warning: Failed to init Typesense schema: %v", err)
		}
		searchRepo = adapter
	}

	schedulingProvider := scheduling.NewSchedulingProvider(&cfg.Simplybook)
	log.Printf("Scheduling provider: %s", schedulingProvider.Name())

	// Initialize notifications
	var notificationService *services.NotificationService
	whatsappSender, err := notifications.NewWhatsAppCloudSender(&cfg.WhatsApp)
	if err != nil {
		log.Printf("Warning: WhatsApp notifications disabled: %v", err)
		notificationService = services.NewNotificationService(nil)
	} else {
		notificationService = services.NewNotificationService(whatsappSender)
		log.Println("WhatsApp notifications enabled")
	}

	// Initialize services
	bookingService := services.NewBookingService(
		bookingAdapter,
		serviceAdapter,
		providerAdapter,
		schedulingProvider,
		eventBus,
		notificationService,
		metrics,
	)

	var directoryService *services.DirectoryService
	if searchRepo != nil {
		directoryService = services.NewDirectoryService(clinicAdapter, providerAdapter, searchRepo, cacheProvider)
	}

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService)

	var directoryHandler *handlers.DirectoryHandler
	if directoryService != nil {
		directoryHandler = handlers.NewDirectoryHandler(directoryService)
	}

	webhookHandler := handlers.NewSimplybookWebhookHandler(
		pgClient.Sqlx(),
		notificationService,
		eventBus,
		metrics,
		&cfg.Webhook,
	)

	var sseHandler *handlers.SSEHandler
	if eventBus != nil {
		sseHandler = handlers.NewSSEHandler(eventBus)
	}

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
		log.Println("Cache middleware initialized successfully")
	}

	// Set up router
	router := routes.NewRouter(
		bookingHandler,
		directoryHandler,
		webhookHandler,
		sseHandler,
		cacheMiddleware,
		metrics,
	)

	handler := router.SetupRoutes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Printf("Error closing event bus: %v", err)
		}
	}

	log.Println("Server stopped")
}
