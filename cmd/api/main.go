package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/logbook-api/internal/application/feedback"
	"github.com/logbook-api/internal/application/verification"
	"github.com/logbook-api/internal/config"
	"github.com/logbook-api/internal/infrastructure/dynamo"
	"github.com/logbook-api/internal/infrastructure/email"
	"github.com/logbook-api/internal/infrastructure/metrics"
	"github.com/logbook-api/internal/infrastructure/redislock"
	"github.com/logbook-api/internal/infrastructure/supabase"
	"github.com/logbook-api/internal/pkg/logger"
	transporthttp "github.com/logbook-api/internal/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const redeemLockTTL = 30 * time.Second

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.AppEnv, cfg.LogLevel)
	defer func() { _ = log.Sync() }()
	if envErr != nil {
		log.Info("no .env file found, reading from environment")
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal("register metrics", zap.Error(err))
	}

	ctx := context.Background()
	accounts, codes := buildStores(ctx, cfg, log)

	// Fixed priority: resend, then sendgrid, then smtp.
	dispatcher := email.NewDispatcher(log,
		email.NewResendProvider(cfg.ResendAPIKey, cfg.EmailFrom, cfg.EmailFromName, nil),
		email.NewSendGridProvider(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName, nil),
		email.NewSMTPProvider(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom, cfg.EmailFromName),
	)
	if dispatcher.ConfiguredProviders() == 0 {
		log.Warn("no email provider configured, codes will not be delivered")
	}

	// Redis lock (optional, graceful fallback to store-level CAS only).
	var locker verification.Locker
	if cfg.RedisURL != "" {
		if client, err := redislock.Connect(ctx, cfg.RedisURL); err == nil {
			locker = redislock.New(client, redeemLockTTL, log)
			defer func() { _ = client.Close() }()
		} else {
			log.Warn("redis lock not available", zap.Error(err))
		}
	}

	deps := &transporthttp.Deps{
		Verification: verification.NewService(verification.ServiceDeps{
			Accounts:              accounts,
			Codes:                 codes,
			Mailer:                dispatcher,
			Locker:                locker,
			Log:                   log,
			CodeTTL:               cfg.CodeTTL,
			TrialPeriod:           cfg.TrialPeriod,
			DefaultPlan:           cfg.DefaultPlan,
			FailOnDeliveryFailure: cfg.FailOnDeliveryFailure(),
		}),
		Feedback: feedback.NewService(dispatcher, cfg.FeedbackTo, log),
		Gatherer: prometheus.DefaultGatherer,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
		return
	}
	log.Info("server stopped")
}

// buildStores returns nil stores when the selected backend is not configured,
// so every request fails with a configuration error instead of the process exiting.
func buildStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (verification.AccountStore, verification.CodeStore) {
	switch cfg.StoreBackend {
	case config.BackendDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			log.Warn("dynamo store not available", zap.Error(err))
			return nil, nil
		}
		if cfg.DynamoBootstrap {
			dynamo.Bootstrap(ctx, client, cfg.DynamoTables, log)
		}
		st := dynamo.NewStore(client, cfg.DynamoTables)
		return st, st
	case config.BackendSupabase:
		st := supabase.NewStore(cfg.SupabaseURL, cfg.SupabaseKey, nil)
		if !st.Configured() {
			log.Warn("supabase store not configured, SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required")
			return nil, nil
		}
		return st, st
	default:
		log.Warn("unknown store backend", zap.String("backend", cfg.StoreBackend))
		return nil, nil
	}
}
