package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/roshiend/retail-Link-sub000/internal/config"
	"github.com/roshiend/retail-Link-sub000/internal/events"
	"github.com/roshiend/retail-Link-sub000/internal/handlers"
	"github.com/roshiend/retail-Link-sub000/internal/middleware"
	"github.com/roshiend/retail-Link-sub000/internal/models"
	"github.com/roshiend/retail-Link-sub000/internal/repository"
)

// @title Retail Link Admin API
// @version 1.0.0
// @description Multi-tenant shop administration: catalog, products, variants and bulk uploads

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	bootLog := logrus.New()
	bootLog.SetFormatter(&logrus.JSONFormatter{})

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		bootLog.Info("No .env file found, using system environment variables")
	}

	cfg := config.Load(context.Background(), logrus.NewEntry(bootLog).WithField("component", "config"))
	logger := cfg.NewLogger()
	log := logger.WithField("component", "main")

	db, err := config.InitDB(cfg, logger.WithField("component", "database"))
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Redis is optional; without it products are read straight from postgres
	var redisClient *redis.Client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("Failed to parse Redis URL, caching disabled")
	} else {
		if cfg.RedisPassword != "" {
			redisOpts.Password = cfg.RedisPassword
		}
		redisClient = redis.NewClient(redisOpts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("Failed to connect to Redis, caching disabled")
			redisClient.Close()
			redisClient = nil
		} else {
			log.Info("Redis connected")
		}
		cancel()
	}

	var publisher handlers.ProductPublisher
	if cfg.NATSURL != "" {
		p, err := events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize events publisher, continuing without events")
		} else {
			log.Info("Events publisher initialized")
			publisher = p
			defer p.Close()
		}
	} else {
		log.Info("NATS_URL not set, skipping event publishing")
	}

	shopsRepo := repository.NewShopsRepository(db)
	stores := handlers.CatalogStores{
		Vendors:        repository.NewCatalogRepository[models.Vendor](db),
		ProductTypes:   repository.NewCatalogRepository[models.ProductType](db),
		ListingTypes:   repository.NewCatalogRepository[models.ListingType](db),
		ShopLocations:  repository.NewCatalogRepository[models.ShopLocation](db),
		Categories:     repository.NewCatalogRepository[models.Category](db),
		Subcategories:  repository.NewCatalogRepository[models.Subcategory](db),
		OptionTypeSets: repository.NewCatalogRepository[models.OptionTypeSet](db),
		Products:       repository.NewProductsRepository(db, redisClient, cfg.ProductCacheTTL, logger.WithField("component", "products-repository")),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Accounts:    shopsRepo,
		Members:     shopsRepo,
		Stores:      stores,
		Tokens:      middleware.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL),
		Events:      publisher,
		Metrics:     middleware.NewMetrics("retail_link"),
		LoginLimit:  middleware.NewRateLimiter(cfg.LoginRPS, cfg.LoginBurst),
		Health:      handlers.NewHealthHandler(db, redisClient),
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
		Swagger:     !cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Retail Link service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("Retail Link service stopped")
}
