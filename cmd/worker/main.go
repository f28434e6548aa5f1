package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"booksync/internal/config"
	"booksync/internal/httpapi"
	"booksync/internal/obs"
	"booksync/internal/openlibrary"
	"booksync/internal/queue"
	"booksync/internal/store"
	"booksync/internal/syncer"
)

func main() {
	_ = godotenv.Load(".env.local")

	obs.InitLogger(slog.LevelInfo)
	cfg := config.Load()

	dbPool := mustOpenDB(cfg.DatabaseDSN)
	defer dbPool.Close()

	books := store.NewBookPG(dbPool)
	client := openlibrary.NewClient(openlibrary.Config{
		BaseURL:        cfg.OpenLibraryURL,
		UserAgent:      "booksync/1.0",
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		MaxAttempts:    cfg.MaxAttempts,
		Backoff:        cfg.RetryBackoff,
		RPS:            cfg.UpstreamRPS,
	})
	svc := syncer.NewService(client, books)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.New(cfg.QueueBuffer, cfg.MaxDeliveries)
	manager := queue.NewManager(q, svc, cfg.WorkerCount, cfg.RedeliverAfter)
	manager.Start(ctx)

	router := httpapi.NewRouter(
		httpapi.NewBookHandler(books),
		httpapi.NewSyncHandler(q),
		dbPool.Ping,
	)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		obs.Logger.Info("starting server", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obs.Logger.Error("server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		obs.Logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	q.CloseIntake()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		obs.Logger.Error("http shutdown failed", "error", err)
	}
	cancel()
	manager.Wait()
}

func mustOpenDB(dsn string) *pgxpool.Pool {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		obs.Logger.Error("cannot create db pool", "error", err)
		os.Exit(1)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		obs.Logger.Error("cannot ping database", "dsn", redactDSN(dsn), "error", err)
		os.Exit(1)
	}
	obs.Logger.Info("database connection OK")
	return pool
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
