package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "default-secret-key-change-in-production"

type Config struct {
	Port string

	DBDriver     string
	DBUrl        string
	MaxOpenConns int
	MaxIdleConns int

	JWTSecret string
	JWTTTL    time.Duration
	TripTTL   time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string

	LogLevel  string
	LogFormat string

	RabbitMQURL      string
	RabbitMQExchange string

	MigrateOnStart bool
}

// UsingDevSecret reports whether no JWT_SECRET was configured.
func (c Config) UsingDevSecret() bool {
	return c.JWTSecret == devJWTSecret
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using environment and defaults")
	}

	return Config{
		Port: getEnv("PORT", "8080"),

		DBDriver:     getEnv("DB_DRIVER", "mysql"),
		DBUrl:        getEnv("DB_URL", "metro:metro@tcp(localhost:3306)/metro"),
		MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		JWTSecret: getEnv("JWT_SECRET", devJWTSecret),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
		TripTTL:   getEnvDuration("TRIP_TTL", 24*time.Hour),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "metro.events"),

		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
