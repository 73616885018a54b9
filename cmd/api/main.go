package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homestay-booking/internal/booking"
	"homestay-booking/internal/config"
	"homestay-booking/internal/database"
	"homestay-booking/internal/idempotency"
	"homestay-booking/internal/logger"
	"homestay-booking/internal/notify"
	"homestay-booking/internal/pricing"
	"homestay-booking/internal/server"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}

	if err := run(cfg, logg); err != nil {
		logg.WithError(err).Fatal("Server stopped with error")
	}
}

func run(cfg config.Config, logg *logrus.Logger) error {
	db, err := database.New(cfg.DB, logg)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.MigrationsDir != "" {
		if sqlDB, ok := database.DB(db); ok {
			if err := database.Migrate(sqlDB, cfg.MigrationsDir, true); err != nil {
				return err
			}
		}
	}

	prices, err := pricing.LoadTable(cfg.PricingFile)
	if err != nil {
		return err
	}

	var notifier booking.Notifier
	if cfg.SMTP.Enabled() {
		notifier = notify.NewMailer(cfg.SMTP, logg)
	} else {
		logg.Warn("SMTP not configured, confirmation emails are disabled")
	}

	processor := booking.NewProcessor(db, prices, notifier, logg)

	deps := server.Deps{
		DB:        db,
		Bookings:  processor,
		Log:       logg,
		RateLimit: rate.Limit(cfg.RateLimitRPS),
		Burst:     cfg.RateLimitBurst,
	}
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := idempotency.Connect(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps.Idempotency = idempotency.NewStore(rdb, cfg.IdempotencyTTL, cfg.PendingTTL)
	}

	// Create a new server instance
	srv := server.NewServer(cfg.Port, deps)

	// Create a listener on the desired address
	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}

	// Channel to receive errors from the server
	errChan := make(chan error, 1)

	go func() {
		logg.Infof("Server started on %s...", srv.Addr)
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Wait for an interrupt or server error
	select {
	case err := <-errChan:
		return err
	case sig := <-stop:
		logg.Infof("Received signal %s, initiating graceful shutdown", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return err
		}

		// Let queued confirmation emails finish before the pool closes.
		processor.Wait()
		logg.Info("Server gracefully stopped")
	}
	return nil
}
