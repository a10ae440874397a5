// Command passwayd runs the account service as a standalone HTTP server
// backed by PostgreSQL.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keralabs/passway"
	fiberadapter "github.com/keralabs/passway/adapters/fiber"
	"github.com/keralabs/passway/adapters/mail"
	pgxadapter "github.com/keralabs/passway/adapters/pgx"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, log *slog.Logger) error {
	if cfg.DatabaseDSN == "" {
		return errors.New("database DSN is required (set PASSWAY_DATABASE_DSN)")
	}

	log.Info("running migrations")
	if err := pgxadapter.RunMigrations(ctx, cfg.DatabaseDSN); err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	app := fiber.New()
	app.Use(logger.New())

	var notifier passway.Notifier
	if cfg.SMTPHost != "" {
		notifier, err = mail.New(mail.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			TLS:      cfg.SMTPTLS,
		})
		if err != nil {
			return err
		}
	} else {
		log.Warn("SMTP not configured, verification emails are disabled")
	}

	tokenConfig := passway.DefaultTokenConfig()
	tokenConfig.MaxAge = cfg.TokenMaxAge

	_, err = passway.New(passway.Config{
		Secret:      cfg.Secret,
		Storage:     pgxadapter.New(pool),
		HTTP:        fiberadapter.New(app),
		Notifier:    notifier,
		TokenConfig: &tokenConfig,
		BasePath:    cfg.BasePath,
		BaseURL:     cfg.BaseURL,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr)
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	}
}
