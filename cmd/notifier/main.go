package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/notification-outbox/internal/api"
	"github.com/LeventeLantos/notification-outbox/internal/cache"
	"github.com/LeventeLantos/notification-outbox/internal/config"
	"github.com/LeventeLantos/notification-outbox/internal/engine"
	"github.com/LeventeLantos/notification-outbox/internal/notification"
	"github.com/LeventeLantos/notification-outbox/internal/provider"
	"github.com/LeventeLantos/notification-outbox/internal/scheduler"
	"github.com/LeventeLantos/notification-outbox/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.Database.PostgresURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	outbox := store.NewPostgresOutboxStore(db)
	if err := outbox.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate outbox schema: %v", err)
	}

	sink := notification.NewPostgresSink(db)
	if err := sink.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate notifications schema: %v", err)
	}

	var receipts engine.ReceiptCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		receipts = cache.NewRedisReceiptCache(rdb, cfg.Redis.TTL)
	}

	resolve := provider.Select(cfg.Provider.Environment, cfg.Provider.CarrierURL)

	eng := engine.New(outbox, resolve, receipts,
		logger.With(slog.String("component", "engine")),
		engine.Options{
			MaxRetries:  cfg.Dispatch.MaxRetries,
			BaseDelay:   cfg.Dispatch.BaseDelay,
			BatchSize:   cfg.Dispatch.BatchSize,
			SendTimeout: cfg.Dispatch.SendTimeout,
			Workers:     cfg.Dispatch.Workers,
		})

	sched, err := scheduler.New(cfg.Scheduler.Interval, func(ctx context.Context) {
		if err := eng.RunDispatchPass(ctx); err != nil {
			logger.Error("dispatch pass failed", "error", err.Error())
		}
	})
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	sched.Start()

	handler := api.NewHandler(eng, outbox, sched, sink)
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: loggingMiddleware(api.Router(handler)),
	}

	go func() {
		logger.Info("notifier starting",
			"addr", cfg.Server.Address,
			"env", cfg.Provider.Environment,
			"interval", cfg.Scheduler.Interval.String(),
			"batch", cfg.Dispatch.BatchSize,
			"redis", cfg.Redis.Enabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server closed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err.Error())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
