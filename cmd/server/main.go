package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrrjunior25/pdv-fiscal/internal/config"
	"github.com/jrrjunior25/pdv-fiscal/internal/infra"
	"github.com/jrrjunior25/pdv-fiscal/internal/repository"
	"github.com/jrrjunior25/pdv-fiscal/internal/router"
	"github.com/jrrjunior25/pdv-fiscal/internal/service"
	"github.com/jrrjunior25/pdv-fiscal/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SEFAZ circuit breaker — shared between HTTP handlers, the worker pool,
	// and the retry cron so all of them see the same breaker state.
	sefazCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	sefazClient := infra.NewSefazClient(cfg.SefazBaseURL, time.Duration(cfg.SefazTimeoutSeconds)*time.Second)
	mailer := infra.NewMailer(cfg)

	// Worker handlers are wired here (composition root) so the pool has full
	// access to infrastructure: NFC-e issuance after each sale, email delivery,
	// scheduled SEFAZ retries, and database exports.
	reg := repository.NewRegistry(db)
	fiscalSvc := service.NewFiscalService(reg, sefazClient, sefazCB, cfg.XMLStoragePath, cfg.PDFStoragePath)

	handlers := map[string]worker.Handler{
		worker.QueueFiscal: worker.NewFiscalWorker(fiscalSvc).Process,
		worker.QueueEmail:  worker.NewEmailWorker(mailer).Process,
	}
	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, handlers)
	worker.StartRetryCron(ctx, fiscalSvc, sefazCB)
	worker.StartBackupCron(ctx, db, worker.BackupConfig{
		Path:      cfg.BackupPath,
		Interval:  time.Duration(cfg.BackupIntervalHours) * time.Hour,
		Retention: cfg.BackupRetention,
	})

	r := router.New(cfg, db, rdb, sefazCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("pdv-fiscal backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
