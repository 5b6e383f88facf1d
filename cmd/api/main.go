package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/zatca-gateway/internal/canon"
	"github.com/jhoicas/zatca-gateway/internal/clearance"
	"github.com/jhoicas/zatca-gateway/internal/enrollment"
	"github.com/jhoicas/zatca-gateway/internal/gcrypto"
	"github.com/jhoicas/zatca-gateway/internal/httpapi"
	"github.com/jhoicas/zatca-gateway/internal/pih"
	"github.com/jhoicas/zatca-gateway/internal/postgres"
	"github.com/jhoicas/zatca-gateway/pkg/config"
	"github.com/jhoicas/zatca-gateway/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("starting application")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgresql")
	}
	defer pool.Close()

	ca, err := gcrypto.LoadCAMaterial([]byte(cfg.CA.PrivateKeyB64), []byte(cfg.CA.CertificateB64))
	if err != nil {
		log.Fatal().Err(err).Msg("load ca material")
	}

	invoiceRepo := postgres.NewInvoiceRepository(pool)
	challengeRepo := postgres.NewChallengeRepository(pool)

	clearanceEngine := clearance.NewEngine(ca, canon.C14N11{}, pih.NewLocker())
	enrollmentEngine := enrollment.NewEngine(challengeRepo, ca, cfg.App.EnrollmentTokenTTL)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    256 * 1024,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	})
	app.Use(recover.New())

	httpapi.Router(app, httpapi.RouterDeps{
		Clearance:        clearanceEngine,
		Enrollment:       enrollmentEngine,
		Invoices:         invoiceRepo,
		AdminTokenSecret: cfg.App.AdminTokenSecret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received, closing server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("application stopped")
}
