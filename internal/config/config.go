// Package config loads runtime configuration from environment variables,
// with .env support for development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/revisaosegura/copartbr-sub000/utils"
)

// Config holds all runtime settings. Optional integrations (MySQL, Redis,
// RabbitMQ) are off when their variables are unset; the server then runs
// on the in-memory store with no snapshot fallback or event publishing.
type Config struct {
	Port         string // HTTP port, ":8080" form
	JWTSecret    string // secret verifying session tokens
	HistoryLimit int    // per-room recent-bid cap

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL string
}

// Load reads configuration from the environment. A missing .env file is
// not an error.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:         port(),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		HistoryLimit: intEnv("BID_HISTORY_LIMIT", 100),

		DBUser: os.Getenv("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: os.Getenv("DB_HOST"),
		DBPort: envOr("DB_PORT", "3306"),
		DBName: os.Getenv("DB_NAME"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       intEnv("REDIS_DB", 0),

		AMQPURL: os.Getenv("AMQP_URL"),
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "insecure-dev-secret"
		utils.Warn("JWT_SECRET not set, using development secret", nil)
	}
	return cfg
}

// MySQLConfigured reports whether a durable store was configured.
func (c Config) MySQLConfigured() bool {
	return c.DBUser != "" && c.DBHost != "" && c.DBName != ""
}

// port returns the server port from env or defaults to ":8080"
func port() string {
	if p := os.Getenv("PORT"); p != "" {
		return ":" + p
	}
	return ":8080"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		utils.Warn("invalid integer env var, using default", map[string]any{
			"key":   key,
			"value": v,
		})
		return fallback
	}
	return n
}
