package main

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds the server settings. Values come from defaults, then
// PASSWAY_* environment variables, then command-line flags.
type Config struct {
	Addr        string
	DatabaseDSN string
	Secret      string
	BaseURL     string
	BasePath    string
	TokenMaxAge time.Duration

	LogLevel  string
	LogFormat string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      string
}

func loadConfig() (*Config, error) {
	cfg := &Config{
		Addr:      ":8080",
		BasePath:  "/auth",
		BaseURL:   "http://localhost:8080",
		LogLevel:  "info",
		LogFormat: "text",
		SMTPPort:  587,
		SMTPTLS:   "starttls",
	}

	envString(&cfg.Addr, "PASSWAY_ADDR")
	envString(&cfg.DatabaseDSN, "PASSWAY_DATABASE_DSN")
	envString(&cfg.Secret, "PASSWAY_SECRET")
	envString(&cfg.BaseURL, "PASSWAY_BASE_URL")
	envString(&cfg.BasePath, "PASSWAY_BASE_PATH")
	envDuration(&cfg.TokenMaxAge, "PASSWAY_TOKEN_MAX_AGE")
	envString(&cfg.LogLevel, "PASSWAY_LOG_LEVEL")
	envString(&cfg.LogFormat, "PASSWAY_LOG_FORMAT")
	envString(&cfg.SMTPHost, "PASSWAY_SMTP_HOST")
	envInt(&cfg.SMTPPort, "PASSWAY_SMTP_PORT")
	envString(&cfg.SMTPUsername, "PASSWAY_SMTP_USERNAME")
	envString(&cfg.SMTPPassword, "PASSWAY_SMTP_PASSWORD")
	envString(&cfg.SMTPFrom, "PASSWAY_SMTP_FROM")
	envString(&cfg.SMTPFromName, "PASSWAY_SMTP_FROM_NAME")
	envString(&cfg.SMTPTLS, "PASSWAY_SMTP_TLS")

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "address to listen on")
	flag.StringVar(&cfg.DatabaseDSN, "database-dsn", cfg.DatabaseDSN, "postgres connection string")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "public base URL used in emailed links")
	flag.StringVar(&cfg.BasePath, "base-path", cfg.BasePath, "path prefix for auth routes")
	flag.DurationVar(&cfg.TokenMaxAge, "token-max-age", cfg.TokenMaxAge, "token lifetime, 0 means no expiry")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	flag.Parse()

	return cfg, nil
}

func envString(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*target = v
	}
}

func envInt(target *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func envDuration(target *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}
