package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"commerce-payment-providers/internal/config"
	"commerce-payment-providers/internal/domain/ports/adapter"
	"commerce-payment-providers/internal/infra/api"
	pg "commerce-payment-providers/internal/infra/db/postgres"
	"commerce-payment-providers/internal/infra/gateway/monnify"
	"commerce-payment-providers/internal/infra/gateway/paystack"
	"commerce-payment-providers/internal/infra/logging"
	"commerce-payment-providers/internal/infra/metrics"
	red "commerce-payment-providers/internal/infra/redis"
	"commerce-payment-providers/internal/infra/sched"
	"commerce-payment-providers/internal/infra/web"
	"commerce-payment-providers/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, insecure cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	txRepo := pg.NewTransactionRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Gateways ----
	gateways := map[string]adapter.GatewayClient{}
	if cfg.Providers.Monnify.APIKey != "" {
		mc, err := monnify.NewClient(cfg.Providers.Monnify, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("monnify client")
		}
		gateways[mc.Name()] = mc
		logger.Info().Bool("sandbox", cfg.Providers.Monnify.Sandbox).Msg("monnify gateway configured")
	}
	if cfg.Providers.Paystack.SecretKey != "" {
		pc, err := paystack.NewClient(cfg.Providers.Paystack, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("paystack client")
		}
		gateways[pc.Name()] = pc
		logger.Info().Msg("paystack gateway configured")
	}
	if len(gateways) == 0 {
		logger.Fatal().Msgf("no payment provider configured: set providers.monnify or providers.paystack in %s", *cfgPath)
	}

	// ---- Use cases ----
	base := strings.TrimRight(cfg.Server.BaseURL, "/")
	returnURL := func(provider string) string {
		return base + "/payment/" + provider + "/return"
	}
	checkoutUC := usecase.NewCheckoutUseCase(txRepo, gateways, returnURL, logger)
	reconcileUC := usecase.NewReconcileUseCase(txRepo, txManager, gateways, locker, usecase.ReconcileOptions{
		LockTTL:       cfg.Redis.LockTTL,
		VerifyRetries: cfg.Reconcile.VerifyRetries,
		VerifyBackoff: cfg.Reconcile.VerifyBackoff,
	}, logger)

	// ---- Metrics ----
	metrics.MustRegister()

	// ---- HTTP ----
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return api.Chain(next, api.Recover(logger), api.TraceID(), api.RequestLog(logger))
	})

	apiSrv := api.NewServer(checkoutUC, reconcileUC, txRepo, logger)
	apiSrv.Register(r)

	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	webSrv := web.NewServer(txRepo, reconcileUC, cfg.Admin.APIKey, auth, logger)
	webSrv.Register(r)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Verify worker ----
	worker := sched.NewVerifyWorker(reconcileUC, txRepo, cfg.Reconcile.Interval, cfg.Reconcile.StaleAfter, logger)
	go worker.Start(ctx)

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
