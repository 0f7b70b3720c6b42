// Command realmd runs the game server: the fixed-rate tick scheduler
// (internal/tickserver) that drives every connection through the
// handshake and the steady-state tick stream.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/veilstead/realmd/internal/account"
	"github.com/veilstead/realmd/internal/config"
	"github.com/veilstead/realmd/internal/db"
	"github.com/veilstead/realmd/internal/saver"
	"github.com/veilstead/realmd/internal/session"
	"github.com/veilstead/realmd/internal/tickserver"
	"github.com/veilstead/realmd/internal/tofu"
)

const ConfigPath = "config/gameserver.yaml"

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
	slog.Info("realmd game server starting")

	cfgPath := ConfigPath
	if p := os.Getenv("REALMD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadGameServer(cfgPath)
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

	knownHosts, err := tofu.Open(cfg.TOFUKnownHostsPath)
	if err != nil {
		return fmt.Errorf("opening known-hosts store: %w", err)
	}
	accountClient := account.NewClient(cfg.AccountServiceURL, knownHosts.Verifier(cfg.AccountServiceURL))

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port))
	if err != nil {
		return fmt.Errorf("listening on %s:%d: %w", cfg.BindAddress, cfg.Port, err)
	}
	defer listener.Close()
	slog.Info("game server listening", "addr", listener.Addr())

	schedCfg := tickserver.DefaultConfig()
	schedCfg.TickInterval = cfg.TickInterval
	schedCfg.WriteTimeout = cfg.ReadTimeout
	schedCfg.LivenessGrace = cfg.ReadTimeout
	schedCfg.MaxConnections = cfg.MaxConnections

	sched := tickserver.NewScheduler(listener, schedCfg, accountClient.Consume, noopSimulator)
	bgSaver := saver.New(cfg.SaveInterval, slogPersister{}, collectConnectedCharacters(sched.Registry()))

	// The tick scheduler and the background saver both run until ctx is
	// cancelled; either returning an error tears down the other via the
	// group's derived context.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		bgSaver.Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("running tick scheduler: %w", err)
	}
	return nil
}

// noopSimulator leaves every session's tile grid untouched: the
// world-simulation phase itself is out of scope here (spec.md §1's own
// Non-goals) — the scheduler still needs a Simulator value that's safe
// to call every tick, even one that does nothing.
func noopSimulator(_ *session.Registry, _ uint64, _ map[*session.Session][]tickserver.Command) {}

// collectConnectedCharacters adapts the live session registry into the
// saver's collect hook. There is no per-character world state to persist
// yet (the simulation phase that would produce it is out of scope), so
// this reports an empty record set — wiring the saver's periodic-flush
// loop into the scheduler now means a future simulator only needs to
// start writing into session state for persistence to pick it up. The
// hook runs on the saver's goroutine, so it does not touch reg, which
// only the scheduler's goroutine may use.
func collectConnectedCharacters(reg *session.Registry) func() []saver.Record {
	return func() []saver.Record {
		records := make([]saver.Record, 0)
		return records
	}
}

// slogPersister is a Persister that only logs: there is nothing yet to
// persist per character (see collectConnectedCharacters), but the saver
// is wired end to end so a real Persister is a drop-in replacement.
type slogPersister struct{}

func (slogPersister) Save(_ context.Context, id uint64, _ any) error {
	slog.Debug("saver: nothing to persist yet", "character_id", id)
	return nil
}
