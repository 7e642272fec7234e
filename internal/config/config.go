package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Throttle ThrottleConfig
	Metrics  MetricsConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	URL               string
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

type AuthConfig struct {
	JWTSecret              string
	PasswordResetSecret    string
	AccessTokenExpiry      time.Duration
	PasswordResetExpiry    time.Duration
	BcryptCost             int
	TimingDelayBaseMs      int
	TimingDelayRandomMs    int
	LoginRequestsPerMinute int
}

// ThrottleConfig controls the login attempt throttle shared by the IP and user scopes
type ThrottleConfig struct {
	Window        time.Duration
	MaxAttempts   int
	Lockout       time.Duration
	SweepInterval time.Duration
}

type MetricsConfig struct {
	SummaryWindow time.Duration
}

type EmailConfig struct {
	AWSRegion    string // empty disables SES and logs reset tokens instead
	FromAddress  string
	ResetURLBase string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	resetSecret := getEnv("PASSWORD_RESET_SECRET", "")
	if resetSecret == "" {
		return nil, fmt.Errorf("PASSWORD_RESET_SECRET is required")
	}

	cfg := &Config{
		Database: loadDatabaseConfig(),
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseList(getEnv("CORS_ORIGINS", "*")),
			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:              jwtSecret,
			PasswordResetSecret:    resetSecret,
			AccessTokenExpiry:      getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 2*time.Hour),
			PasswordResetExpiry:    getEnvAsDuration("PASSWORD_RESET_EXPIRY", 30*time.Minute),
			BcryptCost:             getEnvAsInt("BCRYPT_COST", 12),
			TimingDelayBaseMs:      getEnvAsInt("TIMING_DELAY_BASE_MS", 100),
			TimingDelayRandomMs:    getEnvAsInt("TIMING_DELAY_RANDOM_MS", 50),
			LoginRequestsPerMinute: getEnvAsInt("LOGIN_REQUESTS_PER_MINUTE", 20),
		},
		Throttle: ThrottleConfig{
			Window:        getEnvAsDuration("THROTTLE_WINDOW", 10*time.Minute),
			MaxAttempts:   getEnvAsInt("THROTTLE_MAX_ATTEMPTS", 5),
			Lockout:       getEnvAsDuration("THROTTLE_LOCKOUT", 15*time.Minute),
			SweepInterval: getEnvAsDuration("THROTTLE_SWEEP_INTERVAL", 5*time.Minute),
		},
		Metrics: MetricsConfig{
			SummaryWindow: getEnvAsDuration("METRICS_SUMMARY_WINDOW", 7*24*time.Hour),
		},
		Email: EmailConfig{
			AWSRegion:    getEnv("EMAIL_AWS_REGION", ""),
			FromAddress:  getEnv("EMAIL_FROM_ADDRESS", "noreply@vectradex.local"),
			ResetURLBase: getEnv("PASSWORD_RESET_URL_BASE", "http://localhost:8080"),
		},
	}

	if err := cfg.Database.validate(); err != nil {
		return nil, err
	}

	if err := validateSecret("JWT_SECRET", jwtSecret, env); err != nil {
		return nil, err
	}
	if err := validateSecret("PASSWORD_RESET_SECRET", resetSecret, env); err != nil {
		return nil, err
	}
	if resetSecret == jwtSecret {
		return nil, fmt.Errorf("PASSWORD_RESET_SECRET must differ from JWT_SECRET")
	}

	if cfg.Throttle.MaxAttempts < 1 {
		return nil, fmt.Errorf("THROTTLE_MAX_ATTEMPTS must be at least 1 (got %d)", cfg.Throttle.MaxAttempts)
	}
	if cfg.Throttle.Window <= 0 || cfg.Throttle.Lockout <= 0 {
		return nil, fmt.Errorf("THROTTLE_WINDOW and THROTTLE_LOCKOUT must be positive")
	}
	if cfg.Throttle.SweepInterval <= 0 {
		return nil, fmt.Errorf("THROTTLE_SWEEP_INTERVAL must be positive (got %s)", cfg.Throttle.SweepInterval)
	}
	if cfg.Metrics.SummaryWindow <= 0 {
		return nil, fmt.Errorf("METRICS_SUMMARY_WINDOW must be positive (got %s)", cfg.Metrics.SummaryWindow)
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings, for tools that never serve requests
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	cfg := loadDatabaseConfig()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:               getEnv("DATABASE_URL", ""),
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "vectradex"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
	}
}

func (c *DatabaseConfig) validate() error {
	if c.URL == "" && c.Password == "" {
		return fmt.Errorf("DATABASE_URL or DB_PASSWORD is required")
	}
	return nil
}

// validateSecret enforces minimum strength for signing secrets
func validateSecret(name, secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("%s must be at least %d characters in %s environment (got %d)",
			name, minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme", "change-me",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("%s cannot be a common weak value", name)
		}
	}

	return nil
}

// DSN returns DATABASE_URL when set, otherwise a keyword/value connection string
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info
func (c *ServerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

// parseList splits a comma separated value, dropping blanks
func parseList(raw string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
