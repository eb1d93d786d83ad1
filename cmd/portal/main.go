package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medsuy/patient-portal/internal/api/router"
	"github.com/medsuy/patient-portal/internal/booking"
	"github.com/medsuy/patient-portal/internal/clinicapi"
	appconfig "github.com/medsuy/patient-portal/internal/config"
	"github.com/medsuy/patient-portal/internal/messaging"
	"github.com/medsuy/patient-portal/internal/observability/metrics"
	"github.com/medsuy/patient-portal/internal/session"
	"github.com/medsuy/patient-portal/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting patient-portal server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.SessionJWTSecret == "" {
		logger.Error("SESSION_JWT_SECRET is required")
		os.Exit(1)
	}

	portalMetrics := metrics.NewPortalMetrics(prometheus.DefaultRegisterer)

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	clinic, err := clinicapi.New(clinicapi.Config{
		BaseURL:    cfg.ClinicAPIBaseURL,
		APIKey:     cfg.ClinicAPIKey,
		Timeout:    cfg.ClinicAPITimeout,
		MaxRetries: cfg.ClinicAPIMaxRetries,
		Backoff:    cfg.ClinicAPIRetryDelay,
		Logger:     logger.Logger,
	})
	if err != nil {
		logger.Error("failed to create clinic API client", "error", err)
		os.Exit(1)
	}

	sessionStore := session.NewStore(redisClient, cfg.SessionTTL)
	sessionSvc, err := session.NewService(cfg.SessionJWTSecret, sessionStore, cfg.SessionTTL)
	if err != nil {
		logger.Error("failed to create session service", "error", err)
		os.Exit(1)
	}

	bookingSvc := booking.NewService(clinic, booking.NewProjector(cfg.DisplayTimezone), portalMetrics, logger)
	messagingSvc := messaging.NewService(clinic, messaging.NewProjector(cfg.DisplayTimezone), portalMetrics, logger)

	routerCfg := &router.Config{
		Logger:             logger,
		SessionHandler:     session.NewHandler(sessionSvc, clinic, logger),
		SessionVerifier:    sessionSvc,
		BookingHandler:     booking.NewHandler(bookingSvc, logger),
		MessagingHandler:   messaging.NewHandler(messagingSvc, logger),
		ChatStream:         messaging.NewStream(messagingSvc, logger),
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
