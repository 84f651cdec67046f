package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-marketplace/internal/config"
	"course-marketplace/internal/infra/api"
	pg "course-marketplace/internal/infra/db/postgres"
	"course-marketplace/internal/infra/logging"
	"course-marketplace/internal/infra/metrics"
	red "course-marketplace/internal/infra/redis"
	"course-marketplace/internal/infra/sched"
	"course-marketplace/internal/infra/web"
	"course-marketplace/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

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
	tierRepo := pg.NewTierRepoCacheDecorator(pg.NewTierRepo(pool), redisClient, cfg.Redis.TTL)
	promoRepo := pg.NewPromoRepo(pool)
	purchaseRepo := pg.NewPurchaseRepo(pool)
	referralRepo := pg.NewReferralRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Use cases ----
	pricingUC := usecase.NewPricingUseCase(tierRepo, promoRepo, purchaseRepo, cfg.Payment, logger)
	checkoutUC := usecase.NewCheckoutUseCase(tierRepo, promoRepo, purchaseRepo, referralRepo, tm, locker, cfg.Payment, logger)
	purchaseUC := usecase.NewPurchaseUseCase(purchaseRepo, promoRepo, referralRepo, tm, cfg.Sweep.Batch, logger)
	accessUC := usecase.NewAccessUseCase(purchaseRepo)
	catalogUC := usecase.NewCatalogUseCase(tierRepo, logger)
	promoUC := usecase.NewPromoUseCase(promoRepo, logger)
	statsUC := usecase.NewStatsUseCase(purchaseRepo)
	referralUC := usecase.NewReferralUseCase(referralRepo)

	// ---- Public checkout API ----
	apiSrv := api.NewServer(pricingUC, checkoutUC, purchaseUC, accessUC, catalogUC, cfg.API.JWTSecret, logger)
	publicSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.Port),
		Handler: apiSrv.Router(),
	}
	go func() {
		logger.Info().Int("port", cfg.API.Port).Msg("public API listening")
		if err := publicSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("public API server")
		}
	}()

	// ---- Admin console API ----
	adminMux := http.NewServeMux()
	web.NewServer(purchaseUC, promoUC, catalogUC, statsUC, referralUC, cfg.Admin.APIKey, logger).RegisterRoutes(adminMux)
	adminSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler: adminMux,
	}
	go func() {
		logger.Info().Int("port", cfg.Admin.Port).Msg("admin API listening")
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("admin API server")
		}
	}()

	// ---- Payment-window sweep ----
	sweeper := sched.NewSweepWorker(cfg.Sweep.Interval, purchaseUC, logger)
	go func() {
		if err := sweeper.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("sweep worker stopped")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = publicSrv.Shutdown(shutdownCtx)
	_ = adminSrv.Shutdown(shutdownCtx)
}
