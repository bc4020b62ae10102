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

	"gestionventas/internal/config"
	"gestionventas/internal/infra"
	"gestionventas/internal/repository"
	"gestionventas/internal/router"
	"gestionventas/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := infra.InitTracing(ctx, "gestionventas", cfg.OTelEndpoint, cfg.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init tracing")
	}
	shutdownMetrics, err := infra.InitMetrics(ctx, "gestionventas", cfg.OTelEndpoint, cfg.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init metrics")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	// Redis only carries jobs and cache; without it sales still work and
	// side effects fall back to synchronous writes.
	var rdb *redis.Client
	if rdb, err = infra.NewRedis(cfg.RedisURL); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running without queues and cache")
		rdb = nil
	}

	smtpCB := infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp"))
	mailer := infra.NewMailer(cfg, smtpCB)

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	var workersDone interface{ Wait() }
	if rdb != nil {
		dispatcher := worker.NewDispatcher(rdb)
		comprobanteRepo := repository.NewComprobanteRepository(db)
		ventaRepo := repository.NewVentaRepository(db)
		comprobanteWorker := worker.NewComprobanteWorker(comprobanteRepo, ventaRepo, dispatcher, cfg.PDFStoragePath, cfg.EmpresaNombre)

		workersDone = worker.StartWorkerPool(ctx, rdb, &worker.WorkerHandlers{
			Auditoria:   worker.NewAuditoriaWorker(repository.NewAuditoriaRepository(db)),
			Comprobante: comprobanteWorker,
			Email:       worker.NewEmailWorker(mailer, comprobanteRepo),
		}, cfg.WorkerPoolSize)

		worker.StartRetryCron(ctx, worker.RetryCronConfig{
			ComprobanteRepo: comprobanteRepo,
			VentaRepo:       ventaRepo,
			Worker:          comprobanteWorker,
			RDB:             rdb,
		})
	}

	eventos := infra.NewEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopicVentas)
	r := router.New(cfg, db, rdb, smtpCB, eventos)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("gestionventas backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	if workersDone != nil {
		workersDone.Wait()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown")
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("metrics shutdown")
	}
	if err := eventos.Close(); err != nil {
		log.Warn().Err(err).Msg("kafka producer close")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}
