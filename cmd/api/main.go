package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sos-api/internal/application/fanout"
	"github.com/sos-api/internal/config"
	"github.com/sos-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/sos-api/internal/infrastructure/jwt"
	"github.com/sos-api/internal/infrastructure/sns"
	"github.com/sos-api/internal/logging"
	"github.com/sos-api/internal/metrics"
	transporthttp "github.com/sos-api/internal/transport/http"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(logging.NewLogger(cfg.LogLevel, cfg.AppEnv))
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		slog.Error("jwt provider unavailable", "err", err)
		os.Exit(1)
	}

	// Without SNS every alert is still stored and each recipient is recorded
	// as logged for manual follow-up.
	var notifier fanout.Notifier
	smsConfigured := false
	if n, err := sns.NewNotifier(cfg); err == nil {
		notifier = n
		smsConfigured = true
	} else {
		slog.Warn("sms transport not configured, notifications will be logged only", "err", err)
		notifier = sns.Unconfigured{}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := &transporthttp.Deps{
		UserRepo:      dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		SessionRepo:   dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		AlertRepo:     dynamo.NewAlertRepo(dynamoClient, cfg.DynamoTables.Alerts),
		Notifier:      notifier,
		SMSConfigured: smsConfigured,
		JWTProvider:   jwtProvider,
		Metrics:       metrics.New(reg),
		Gatherer:      reg,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// WriteTimeout covers a full broadcast fan-out on alert creation.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
