package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default token lifetimes. A freshly issued token lives for TokenTTL; when it
// is rotated the superseded token stays honorable for OldTokenTTL.
const (
	DefaultTokenTTL    = 2 * time.Hour
	DefaultOldTokenTTL = 1 * time.Hour
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	OldTokenTTL  time.Duration
	StoreTimeout time.Duration
	BcryptCost   int
}

// RateLimitConfig bounds credential endpoints per client IP.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 1200))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "dionysus"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:         redisAddr(),
			Password:     os.Getenv("REDIS_PASSWORD"),
			DB:           redisDB,
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MaxRetries:   getEnvAsInt("REDIS_MAX_RETRIES", 1),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_FILE_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", 28),
		},
		Auth: AuthConfig{
			JWTSecret:    os.Getenv("AUTH_JWT_SECRET"),
			TokenTTL:     getEnvAsDuration("AUTH_TOKEN_TTL", DefaultTokenTTL),
			OldTokenTTL:  getEnvAsDuration("AUTH_OLD_TOKEN_TTL", DefaultOldTokenTTL),
			StoreTimeout: getEnvAsDuration("AUTH_STORE_TIMEOUT", 500*time.Millisecond),
			BcryptCost:   getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvAsInt("RATELIMIT_AUTH_REQUESTS", 5),
			Window:            getEnvAsDuration("RATELIMIT_AUTH_WINDOW", time.Minute),
			Burst:             getEnvAsInt("RATELIMIT_AUTH_BURST", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or inconsistent setting in one error.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_TTL must be positive"))
	}
	if c.Auth.OldTokenTTL <= 0 {
		errs = append(errs, errors.New("AUTH_OLD_TOKEN_TTL must be positive"))
	}
	if c.Auth.OldTokenTTL > c.Auth.TokenTTL {
		errs = append(errs, errors.New("AUTH_OLD_TOKEN_TTL must not exceed AUTH_TOKEN_TTL"))
	}
	if c.Auth.StoreTimeout <= 0 {
		errs = append(errs, errors.New("AUTH_STORE_TIMEOUT must be positive"))
	}
	if strings.TrimSpace(c.Redis.Addr) == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required"))
	} else if _, _, err := net.SplitHostPort(c.Redis.Addr); err != nil {
		errs = append(errs, fmt.Errorf("invalid REDIS_ADDR %q: %w", c.Redis.Addr, err))
	}
	if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit requests and window must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// redisAddr prefers REDIS_ADDR and falls back to REDIS_HOST/REDIS_PORT.
func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	host := getEnv("REDIS_HOST", "127.0.0.1")
	port := getEnv("REDIS_PORT", "6379")
	return net.JoinHostPort(host, port)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
