package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Lockout store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Provider ProviderConfig
	Auth     AuthConfig
	Lockout  LockoutConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
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
}

// ProviderConfig locates the hosted identity provider
type ProviderConfig struct {
	URL     string
	AnonKey string
	Timeout time.Duration
}

type AuthConfig struct {
	JWTSecret                string
	JWTAudience              string
	PasswordResetRedirectURL string
	TimingBaseDelay          time.Duration
	TimingRandomDelay        time.Duration
	TimingDelayOnSuccess     bool
}

type LockoutConfig struct {
	MaxAttempts     int
	Duration        time.Duration
	Store           string
	HashKey         string
	CleanupInterval time.Duration
}

// EmailConfig controls the optional lockout notification email
type EmailConfig struct {
	Enabled     bool
	AWSRegion   string
	FromAddress string
	SupportURL  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "irdebg"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Provider: ProviderConfig{
			URL:     strings.TrimRight(getEnv("PROVIDER_URL", ""), "/"),
			AnonKey: getEnv("PROVIDER_ANON_KEY", ""),
			Timeout: getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:                getEnv("AUTH_JWT_SECRET", ""),
			JWTAudience:              getEnv("AUTH_JWT_AUDIENCE", "authenticated"),
			PasswordResetRedirectURL: getEnv("PASSWORD_RESET_REDIRECT_URL", ""),
			TimingBaseDelay:          getEnvAsDuration("TIMING_BASE_DELAY", 500*time.Millisecond),
			TimingRandomDelay:        getEnvAsDuration("TIMING_RANDOM_DELAY", 100*time.Millisecond),
			TimingDelayOnSuccess:     getEnvAsBool("TIMING_DELAY_ON_SUCCESS", false),
		},
		Lockout: LockoutConfig{
			MaxAttempts:     getEnvAsInt("LOCKOUT_MAX_ATTEMPTS", 5),
			Duration:        getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
			Store:           strings.ToLower(getEnv("LOCKOUT_STORE", StoreMemory)),
			HashKey:         getEnv("LOCKOUT_HASH_KEY", ""),
			CleanupInterval: getEnvAsDuration("LOCKOUT_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Email: EmailConfig{
			Enabled:     getEnvAsBool("EMAIL_NOTIFICATIONS_ENABLED", false),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
			SupportURL:  getEnv("EMAIL_SUPPORT_URL", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Provider.URL == "" {
		return fmt.Errorf("PROVIDER_URL is required")
	}
	if u, err := url.Parse(c.Provider.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PROVIDER_URL must be an absolute URL")
	}
	if c.Provider.AnonKey == "" {
		return fmt.Errorf("PROVIDER_ANON_KEY is required")
	}

	if err := validateJWTSecret(c.Auth.JWTSecret, c.Server.Env); err != nil {
		return err
	}

	if c.Lockout.MaxAttempts < 1 {
		return fmt.Errorf("LOCKOUT_MAX_ATTEMPTS must be at least 1 (got %d)", c.Lockout.MaxAttempts)
	}
	if c.Lockout.Duration < time.Minute {
		return fmt.Errorf("LOCKOUT_DURATION must be at least 1m (got %s)", c.Lockout.Duration)
	}

	switch c.Lockout.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required when LOCKOUT_STORE=postgres")
		}
		if len(c.Lockout.HashKey) < 32 {
			return fmt.Errorf("LOCKOUT_HASH_KEY must be at least 32 characters when LOCKOUT_STORE=postgres")
		}
		if len(c.Lockout.HashKey) > 64 {
			return fmt.Errorf("LOCKOUT_HASH_KEY must be at most 64 characters")
		}
		if c.Lockout.CleanupInterval <= 0 {
			return fmt.Errorf("LOCKOUT_CLEANUP_INTERVAL must be positive")
		}
	default:
		return fmt.Errorf("LOCKOUT_STORE must be %q or %q (got %q)", StoreMemory, StorePostgres, c.Lockout.Store)
	}

	if c.Email.Enabled && c.Email.FromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when EMAIL_NOTIFICATIONS_ENABLED=true")
	}

	return nil
}

// validateJWTSecret enforces minimum security standards for the shared token secret
func validateJWTSecret(secret, env string) error {
	if secret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}

	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("AUTH_JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
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

// getEnvAsList splits a comma separated variable, dropping empty entries
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if origins := getEnvAsList("ALLOWED_ORIGINS"); len(origins) > 0 {
		return origins
	}
	if env == "production" {
		return []string{}
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:5000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5000",
		"http://127.0.0.1:5173",
	}
}
