package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/veilstead/realmd/internal/account"
	"github.com/veilstead/realmd/internal/config"
	"github.com/veilstead/realmd/internal/db"
)

const ConfigPath = "config/accountservice.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	slog.Info("realmd account service starting")

	cfgPath := ConfigPath
	if p := os.Getenv("REALMD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadAccountService(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port)

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	characters := db.NewCharacterRepository(database.Pool())
	tickets := account.NewMemoryStore()
	server := account.NewServer(database, characters, tickets, cfg.TicketTTL)

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	slog.Info("account service listening", "addr", addr)
	if err := account.ListenAndServeTLS(ctx, addr, cfg.TLSCertPath, cfg.TLSKeyPath, server); err != nil {
		return fmt.Errorf("serving account service: %w", err)
	}

	return nil
}
