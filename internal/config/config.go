// Package config lê a configuração do serviço a partir de variáveis de ambiente.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/matheusmosca/bookverse/internal/storage/postgres"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config agrupa toda a configuração do serviço
type Config struct {
	Port        string
	ServiceName string

	Storage  string
	Database postgres.Config

	RedisAddr  string
	SessionTTL time.Duration

	TelemetryEnabled bool
	OTLPEndpoint     string

	LowStockThreshold    int
	OrderCleanupCutoff   time.Duration
	OrderCleanupSchedule string

	NotificationWebhookURL     string
	NotificationWebhookTimeout time.Duration

	AdminUsername string
}

// Load monta a configuração com os valores padrão
func Load() Config {
	return Config{
		Port:        getEnv("PORT", "8080"),
		ServiceName: getEnv("SERVICE_NAME", "bookverse"),

		Storage: strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		Database: postgres.Config{
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     getEnv("DATABASE_PORT", "5432"),
			User:     getEnv("DATABASE_USER", "root"),
			Password: getEnv("DATABASE_PASSWORD", "pass"),
			Name:     getEnv("DATABASE_NAME", "bookverse"),
			MaxConns: int32(getEnvInt("DATABASE_MAX_CONNS", 25)),
			MinConns: int32(getEnvInt("DATABASE_MIN_CONNS", 5)),
		},

		RedisAddr:  getEnv("REDIS_ADDR", ""),
		SessionTTL: getEnvDuration("SESSION_TTL", 24*time.Hour),

		TelemetryEnabled: getEnvBool("TELEMETRY_ENABLED", true),
		OTLPEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),

		LowStockThreshold:    getEnvInt("LOW_STOCK_THRESHOLD", 10),
		OrderCleanupCutoff:   getEnvDuration("ORDER_CLEANUP_CUTOFF", 7*24*time.Hour),
		OrderCleanupSchedule: getEnv("ORDER_CLEANUP_SCHEDULE", "0 2 * * *"),

		NotificationWebhookURL:     getEnv("NOTIFICATION_WEBHOOK_URL", ""),
		NotificationWebhookTimeout: getEnvDuration("NOTIFICATION_WEBHOOK_TIMEOUT", 5*time.Second),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("invalid boolean in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}
