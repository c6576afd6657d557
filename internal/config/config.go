package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on minimal images

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Env       string
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Redis     RedisConfig
	MongoDB   MongoDBConfig
	Scheduler SchedulerConfig
	Logger    LoggerConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Upload    UploadConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	PublicURL       string
}

// DatabaseConfig selects the gorm dialector and tunes the pool.
type DatabaseConfig struct {
	Driver       string // postgres | sqlite
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	LogQueries   bool
}

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetTokenTTL   time.Duration
	SecureCookies   bool
}

// RedisConfig is optional; an empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// MongoDBConfig is optional; an empty URI disables the report archive.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SchedulerConfig controls the daily report job.
type SchedulerConfig struct {
	Enabled      bool
	CronSchedule string
	Timezone     string
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type CORSConfig struct {
	AllowOrigins []string
}

type RateLimitConfig struct {
	AuthRate string // ulule formatted rate, e.g. "20-M"
}

type UploadConfig struct {
	Dir          string
	MaxSizeBytes int64
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// a missing .env is fine when everything comes from the environment
		_ = godotenv.Load()
	}

	cfg := &Config{
		Env: getenvWithDefault("APP_ENV", "development"),
		Server: ServerConfig{
			Port:            getenvWithDefault("PORT", "8080"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			PublicURL:       getenvWithDefault("PUBLIC_URL", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getenvWithDefault("DB_DRIVER", "postgres")),
			DSN:          getenvWithDefault("DB_DSN", postgresDSNFromParts()),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxLifetime:  getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			LogQueries:   getEnvBool("DB_LOG_QUERIES", false),
		},
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", time.Hour),
			RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
			ResetTokenTTL:   getEnvDuration("RESET_TOKEN_TTL", 15*time.Minute),
			SecureCookies:   getEnvBool("SECURE_COOKIES", false),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "smartsahuji"),
		},
		Scheduler: SchedulerConfig{
			Enabled:      getEnvBool("SCHEDULER_ENABLED", true),
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 21 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Kolkata"),
		},
		Logger: LoggerConfig{
			Level:    getenvWithDefault("LOG_LEVEL", "info"),
			Encoding: getenvWithDefault("LOG_ENCODING", "json"),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnvSlice("CORS_ALLOW_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		},
		RateLimit: RateLimitConfig{
			AuthRate: getenvWithDefault("AUTH_RATE_LIMIT", "20-M"),
		},
		Upload: UploadConfig{
			Dir:          getenvWithDefault("UPLOAD_DIR", "uploads"),
			MaxSizeBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 10<<20)),
		},
	}

	if cfg.Auth.JWTSecret == "" && !cfg.IsProduction() {
		// development fallback only
		cfg.Auth.JWTSecret = "dev_only_insecure_secret"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location resolves Timezone; Validate has already rejected unknown zones.
func (c SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("PORT must be provided")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (supported: postgres, sqlite)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("DB_DSN must be provided")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be provided in production")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 || c.Auth.ResetTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}

	if c.Scheduler.Enabled && c.Scheduler.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must not be empty when the scheduler is enabled")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Scheduler.Timezone, err)
	}

	if c.RateLimit.AuthRate == "" {
		return errors.New("AUTH_RATE_LIMIT must not be empty")
	}

	return nil
}

func postgresDSNFromParts() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getenvWithDefault("DB_USER", "postgres"),
		getenvWithDefault("DB_PASSWORD", "postgres"),
		getenvWithDefault("DB_HOST", "localhost"),
		getenvWithDefault("DB_PORT", "5432"),
		getenvWithDefault("DB_NAME", "smartsahuji"),
		getenvWithDefault("DB_SSLMODE", "disable"),
	)
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
