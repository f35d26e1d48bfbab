package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/roshiend/retail-Link-sub000/internal/models"
	"github.com/roshiend/retail-Link-sub000/internal/secrets"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL      string
	RedisPassword string

	// NATS
	NATSURL string

	// Server
	Port        string
	Environment string
	LogLevel    string

	// Auth
	JWTSecret   string
	JWTTTL      time.Duration
	LoginRPS    float64
	LoginBurst  int
	CORSOrigins []string

	// Cache
	ProductCacheTTL time.Duration

	// GCP Secret Manager
	GCPProjectID     string
	UseGCPSecrets    bool
	DBPasswordSecret string
	JWTSecretName    string
	RedisSecretName  string
}

// Load reads configuration from the environment. When USE_GCP_SECRETS is set
// the database password, JWT secret and Redis password are fetched from
// Secret Manager, falling back to their environment values.
func Load(ctx context.Context, log *logrus.Entry) *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtTTL, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		jwtTTL = 24 * time.Hour
	}
	cacheTTL, err := time.ParseDuration(getEnv("PRODUCT_CACHE_TTL", "5m"))
	if err != nil {
		cacheTTL = 5 * time.Minute
	}
	loginRPS, _ := strconv.ParseFloat(getEnv("LOGIN_RATE_PER_SECOND", "1"), 64)
	loginBurst, _ := strconv.Atoi(getEnv("LOGIN_BURST", "5"))
	useGCP, _ := strconv.ParseBool(getEnv("USE_GCP_SECRETS", "false"))

	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "retail_link"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		NATSURL: os.Getenv("NATS_URL"),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    os.Getenv("LOG_LEVEL"),

		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key"),
		JWTTTL:      jwtTTL,
		LoginRPS:    loginRPS,
		LoginBurst:  loginBurst,
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),

		GCPProjectID:     os.Getenv("GCP_PROJECT_ID"),
		UseGCPSecrets:    useGCP,
		DBPasswordSecret: getEnv("DB_PASSWORD_SECRET_NAME", "retail-link-db-password"),
		JWTSecretName:    getEnv("JWT_SECRET_NAME", "retail-link-jwt-secret"),
		RedisSecretName:  os.Getenv("REDIS_PASSWORD_SECRET_NAME"),
		ProductCacheTTL:  cacheTTL,
	}

	if cfg.UseGCPSecrets && cfg.GCPProjectID != "" {
		manager, err := secrets.NewGCPSecretManager(ctx, cfg.GCPProjectID)
		if err != nil {
			log.WithError(err).Warn("Secret Manager unavailable, using environment values")
			return cfg
		}
		defer manager.Close()
		cfg.ApplySecrets(ctx, manager, log)
	}
	return cfg
}

// ApplySecrets overrides credentials with values from a secret store
func (c *Config) ApplySecrets(ctx context.Context, a secrets.Accessor, log *logrus.Entry) {
	c.DBPassword = secrets.Resolve(ctx, a, c.DBPasswordSecret, c.DBPassword, log)
	c.JWTSecret = secrets.Resolve(ctx, a, c.JWTSecretName, c.JWTSecret, log)
	c.RedisPassword = secrets.Resolve(ctx, a, c.RedisSecretName, c.RedisPassword, log)
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// NewLogger builds the JSON logger used across the service
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	level := logrus.DebugLevel
	if c.IsProduction() {
		level = logrus.InfoLevel
	}
	if c.LogLevel != "" {
		if parsed, err := logrus.ParseLevel(c.LogLevel); err == nil {
			level = parsed
		}
	}
	log.SetLevel(level)
	return log
}

// DSN is the postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func InitDB(cfg *Config, log *logrus.Entry) (*gorm.DB, error) {
	logLevel := logger.Info
	if cfg.IsProduction() {
		logLevel = logger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Adds missing tables and columns, never drops
	log.Info("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.User{},
		&models.Shop{},
		&models.ShopMember{},
		&models.ShopInvite{},
		&models.Vendor{},
		&models.ProductType{},
		&models.ListingType{},
		&models.ShopLocation{},
		&models.Category{},
		&models.Subcategory{},
		&models.OptionTypeSet{},
		&models.Product{},
		&models.OptionType{},
		&models.ProductVariant{},
	); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "does not exist") && strings.Contains(errStr, "constraint") {
			log.WithError(err).Warn("Migration constraint warning (safe to ignore)")
		} else {
			return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
		}
	}
	log.Info("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
