// internal/config/config.go
package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"classquiz/pkg/database"
)

type Config struct {
	Env         string
	HTTPAddr    string
	DB          database.Config
	RedisAddr   string
	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	cfg := Config{
		Env:      envOr("APP_ENV", "development"),
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),
		DB: database.Config{
			Host:     envOr("DB_HOST", "localhost"),
			Port:     envOr("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
			SSLMode:  envOr("DB_SSLMODE", "disable"),
		},
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}

	ttl, err := time.ParseDuration(envOr("TOKEN_TTL", "24h"))
	if err != nil {
		return Config{}, errors.New("TOKEN_TTL must be a Go duration such as 24h")
	}
	cfg.TokenTTL = ttl

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func csvOr(key, def string) []string {
	raw := envOr(key, def)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
