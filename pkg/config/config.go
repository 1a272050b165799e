package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Typesense   TypesenseConfig
	Chat        ChatConfig
	Email       EmailConfig
	Auth        AuthConfig
	Storage     StorageConfig
	Booking     BookingConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	SSEPort        int
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration. An empty URL disables search indexing.
type TypesenseConfig struct {
	URL    string
	APIKey string
}

// ChatConfig holds the chat-completions gateway configuration
type ChatConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Timeout        time.Duration
	RateLimitRPM   int
	RateLimitBurst int
}

// EmailConfig holds the transactional email provider configuration
type EmailConfig struct {
	APIKey          string
	BaseURL         string
	FromAddress     string
	DefaultFromName string
	Timeout         time.Duration
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret    string
	Issuer       string
	RoleCacheTTL time.Duration
}

// StorageConfig holds the image bucket configuration
type StorageConfig struct {
	Root          string
	PublicBaseURL string
}

// BookingConfig holds appointment scheduling rules
type BookingConfig struct {
	Timezone       string
	Slots          []string
	ExclusiveSlots bool
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables, reading a .env file first when present
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			SSEPort:        getEnvAsInt("SSE_PORT", 8081),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", nil),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "spa_booking"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:    getEnv("TYPESENSE_URL", ""),
			APIKey: getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		Chat: ChatConfig{
			APIKey:         getEnv("CHAT_API_KEY", ""),
			BaseURL:        getEnv("CHAT_BASE_URL", "https://ai.gateway.lovable.dev/v1"),
			Model:          getEnv("CHAT_MODEL", "google/gemini-2.5-flash"),
			Timeout:        getEnvAsDuration("CHAT_TIMEOUT", 30*time.Second),
			RateLimitRPM:   getEnvAsInt("CHAT_RATE_LIMIT_RPM", 60),
			RateLimitBurst: getEnvAsInt("CHAT_RATE_LIMIT_BURST", 5),
		},
		Email: EmailConfig{
			APIKey:          getEnv("RESEND_API_KEY", ""),
			BaseURL:         getEnv("RESEND_BASE_URL", "https://api.resend.com"),
			FromAddress:     getEnv("EMAIL_FROM_ADDRESS", "team@bondushy.pruebascr.online"),
			DefaultFromName: getEnv("EMAIL_FROM_NAME", "Bondusy Spa"),
			Timeout:         getEnvAsDuration("EMAIL_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			Issuer:       getEnv("JWT_ISSUER", ""),
			RoleCacheTTL: getEnvAsDuration("ROLE_CACHE_TTL", time.Minute),
		},
		Storage: StorageConfig{
			Root:          getEnv("STORAGE_ROOT", "./data/storage"),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_URL", "http://localhost:8080/storage/v1/object/public"),
		},
		Booking: BookingConfig{
			Timezone:       getEnv("BOOKING_TIMEZONE", "UTC"),
			Slots:          getEnvAsList("BOOKING_SLOTS", []string{"09:00", "10:00", "11:00", "12:00", "14:00", "15:00", "16:00", "17:00", "18:00"}),
			ExclusiveSlots: getEnvAsBool("BOOKING_EXCLUSIVE_SLOTS", true),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "spa-booking"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if _, err := cfg.Booking.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Location resolves the spa's local time zone
func (c *BookingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
