package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	_ "github.com/freshmarket/freshmarket-api/docs" // Swagger docs (generated)
	"github.com/freshmarket/freshmarket-api/internal/auth"
	"github.com/freshmarket/freshmarket-api/internal/cart"
	"github.com/freshmarket/freshmarket-api/internal/config"
	"github.com/freshmarket/freshmarket-api/internal/database"
	"github.com/freshmarket/freshmarket-api/internal/email"
	httpServer "github.com/freshmarket/freshmarket-api/internal/http"
	"github.com/freshmarket/freshmarket-api/internal/logging"
	"github.com/freshmarket/freshmarket-api/internal/order"
	"github.com/freshmarket/freshmarket-api/internal/product"
	"github.com/freshmarket/freshmarket-api/internal/ratelimit"
	"github.com/freshmarket/freshmarket-api/internal/session"
	"github.com/freshmarket/freshmarket-api/internal/storage"
	"github.com/freshmarket/freshmarket-api/internal/user"
)

// @title           FreshMarket API
// @version         1.0
// @description     REST backend for the FreshMarket farm-to-table marketplace: accounts, catalog, cart and orders.

// @contact.name   API Support
// @contact.email  support@freshmarket.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8000
// @BasePath  /

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	// Initialize database connection
	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Initialize Redis connection
	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	userRepo := user.NewBunRepository(db)
	productRepo := product.NewBunRepository(db)
	cartRepo := cart.NewBunRepository(db)
	orderRepo := order.NewBunRepository(db)

	// Initialize session store and cookie signing
	sessionStore := session.NewRedisStore(redisClient, cfg.Session.TTL)
	cookieManager := session.NewCookieManager(
		cfg.Session.Secret,
		cfg.Session.TTL,
		!cfg.Server.IsDevelopment(), // isProduction
	)

	// Initialize rate limiter
	rateLimiter := ratelimit.NewLimiter(redisClient)

	// Initialize email service
	emailService := email.NewService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
		cfg.Server.ClientURL,
	)

	// Initialize image storage. Optional: without a bucket, product
	// image uploads are rejected but everything else works.
	var uploader storage.Uploader
	if cfg.Storage.Bucket != "" {
		s3Service, err := storage.NewS3Service(context.Background(), storage.Options{
			Bucket:        cfg.Storage.Bucket,
			Region:        cfg.Storage.Region,
			Endpoint:      cfg.Storage.Endpoint,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		uploader = s3Service
	} else {
		logger.Warn("S3_BUCKET not set, product image uploads disabled")
	}

	// Initialize auth service and access guard
	authService := auth.NewService(userRepo, sessionStore, emailService, logger)
	guard := auth.NewGuard(cookieManager, sessionStore, userRepo)

	// Initialize HTTP handlers
	handlers := httpServer.Handlers{
		Auth:    auth.NewHandler(authService, cookieManager, rateLimiter, logger),
		Product: product.NewHandler(productRepo, uploader, emailService, logger),
		Cart:    cart.NewHandler(cartRepo, productRepo, logger),
		Order:   order.NewHandler(orderRepo, logger),
	}

	// Initialize router
	router := httpServer.NewRouter(cfg, handlers, guard, logger)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Printf("Received signal: %v", sig)

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initDB initializes the database connection and returns a Bun DB instance
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return database.NewBunDB(sqlDB), nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
