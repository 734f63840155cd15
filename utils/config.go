package utils

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env             string
	Addr            string
	DatabaseURL     string
	RedisURL        string
	SessionTTL      time.Duration
	CookieSecure    bool
	CSRFEnabled     bool
	TaskOrder       TaskOrder
	SendGridAPIKey  string
	MailFromName    string
	MailFromAddress string
}

// LoadConfig reads the environment, loading a .env file first outside of
// production.
func LoadConfig() (Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, continuing..")
		}
	}

	cfg := Config{
		Env:             os.Getenv("APP_ENV"),
		Addr:            getenv("ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		SendGridAPIKey:  os.Getenv("SENDGRID_API_KEY"),
		MailFromName:    getenv("MAIL_FROM_NAME", "taskr support"),
		MailFromAddress: getenv("MAIL_FROM_ADDRESS", "donotreply@taskr.local"),
	}

	var err error
	if cfg.SessionTTL, err = time.ParseDuration(getenv("SESSION_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("parsing SESSION_TTL: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	if cfg.CookieSecure, err = strconv.ParseBool(getenv("COOKIE_SECURE", "false")); err != nil {
		return Config{}, fmt.Errorf("parsing COOKIE_SECURE: %w", err)
	}
	if cfg.CSRFEnabled, err = strconv.ParseBool(getenv("CSRF_ENABLED", "true")); err != nil {
		return Config{}, fmt.Errorf("parsing CSRF_ENABLED: %w", err)
	}
	if cfg.TaskOrder, err = ParseTaskOrder(getenv("TASK_ORDER", string(OrderByID))); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL is required")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
