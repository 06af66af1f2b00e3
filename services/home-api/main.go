package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 1. Načtení konfigurace
	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("Kritická chyba konfigurace", "error", err)
		os.Exit(1)
	}

	// 2. Nastavení logování na JSON (standard pro kontejnery)
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	logger.Info("Startuji Home API", "port", cfg.HTTPPort, "history_max", cfg.History.Max)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Připojení k Databázi (Postgres/TimescaleDB)
	dbPool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("Kritická chyba: Nelze se připojit k DB", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Připojení k Valkey (Redis)
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.ValkeyAddr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Kritická chyba: Nelze se připojit k Valkey", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// 5. Wiring
	svc := NewService(dbPool, rdb)
	api := NewAPIHandler(svc, cfg.History, cfg.QueryTimeout, logger)

	// 6. Router
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})

	// 7. HTTP server, obalený CorsMiddlewarem kvůli volání z frontendu.
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           CorsMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("HTTP server naslouchá", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server spadl", "error", err)
		os.Exit(1)
	}
	logger.Info("Home API ukončeno")
}
