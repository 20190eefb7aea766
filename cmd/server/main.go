package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zolijavos/KGC-3-sub017/internal/config"
	"github.com/zolijavos/KGC-3-sub017/internal/infra"
	"github.com/zolijavos/KGC-3-sub017/internal/repository"
	"github.com/zolijavos/KGC-3-sub017/internal/router"
	"github.com/zolijavos/KGC-3-sub017/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
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

	// The card terminal sits behind a circuit breaker so a downed sidecar
	// degrades card payments without taking the register down.
	cardCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	cardClient := infra.NewCardTerminalClient(cfg.CardTerminalURL, cardCB)

	// Async pipeline: session close enqueues a Z-report render job; the
	// worker renders the PDF and mails it to the back office. A retry cron
	// re-enqueues renders that got lost or failed.
	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)
	zreportRepo := repository.NewZReportRepository(db)

	handlers := &worker.WorkerHandlers{
		ZReport: worker.NewZReportWorker(zreportRepo, dispatcher, cfg.PDFStoragePath, cfg.ReportEmail),
		Email:   worker.NewEmailWorker(mailer),
	}
	worker.StartWorkerPool(ctx, rdb, handlers, cfg.WorkerPoolSize)
	worker.StartRetryCron(ctx, worker.RetryCronConfig{
		ZReportRepo: zreportRepo,
		Dispatcher:  dispatcher,
		RDB:         rdb,
	})

	r := router.New(cfg, db, rdb, cardClient)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("POS backend listening on :%d", cfg.Port)
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
