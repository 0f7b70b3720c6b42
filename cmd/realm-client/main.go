// Command realm-client is a headless reference client: it authenticates
// against the account service, redeems the resulting ticket against the
// game server, and then applies each tick's decoded packets to a local
// tile grid, answering every TICK marker with a CTICK; opcodes the grid
// does not handle are logged at debug level.
// The game loop itself (rendering, input) is out of scope — this is the
// network core's client half, exercised end to end.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veilstead/realmd/internal/account"
	"github.com/veilstead/realmd/internal/client"
	"github.com/veilstead/realmd/internal/clientview"
	"github.com/veilstead/realmd/internal/opcode"
	"github.com/veilstead/realmd/internal/tofu"
)

func main() {
	accountServiceURL := flag.String("account-service", "https://127.0.0.1:8443", "account service base URL")
	gameServerAddr := flag.String("game-server", "127.0.0.1:7777", "game server address")
	login := flag.String("login", "", "account login")
	password := flag.String("password", "", "account password")
	characterID := flag.Uint64("character", 0, "character id to log in as")
	knownHostsPath := flag.String("known-hosts", "known_hosts.json", "TOFU known-hosts file")
	clientVersion := flag.Uint("client-version", 1, "client version reported in the CHALLENGE reply")
	race := flag.Int("race", 0, "race selector reported in the CHALLENGE reply")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if *login == "" || *password == "" {
		slog.Error("login and password are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigCh; cancel() }()

	if err := run(ctx, *accountServiceURL, *gameServerAddr, *login, *password, *characterID, *knownHostsPath, uint32(*clientVersion), int32(*race)); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, accountServiceURL, gameServerAddr, login, password string, characterID uint64, knownHostsPath string, clientVersion uint32, race int32) error {
	knownHosts, err := tofu.Open(knownHostsPath)
	if err != nil {
		return err
	}

	accountClient := account.NewClient(accountServiceURL, knownHosts.Verifier(accountServiceURL))

	ticket, err := accountClient.Login(ctx, login, password, characterID)
	if err != nil {
		return err
	}
	slog.Info("account login succeeded, redeeming ticket against game server", "game_server", gameServerAddr)

	conn, err := client.Dial(gameServerAddr, ticket, clientVersion, race)
	if err != nil {
		return err
	}
	defer conn.Close()
	slog.Info("handshake complete, entering steady state")

	grid := clientview.NewGrid()
	names := clientview.NewNameCache(2 * time.Second)
	_ = names // available to the game loop (out of scope here) for autolook throttling

	// Packets arrive one at a time, but clientview.Grid.Apply's SETMAP
	// delta cursor is only valid across one tick's worth of packets at
	// once (it resets on every call) — buffer until the TICK marker that
	// ends each tick, then apply the whole batch together.
	var pending []opcode.Packet
	tickCounter := uint32(0)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-conn.Events():
			if !ok || ev.Closed {
				slog.Info("connection closed by server")
				return nil
			}
			if ev.Err != nil {
				return ev.Err
			}

			pending = append(pending, ev.Packet)
			if ev.Packet.Opcode != opcode.Tick {
				continue
			}

			unhandled, err := grid.Apply(pending)
			pending = pending[:0]
			if err != nil {
				return err
			}
			for _, pkt := range unhandled {
				slog.Debug("unhandled opcode", "opcode", pkt.Opcode)
			}
			tickCounter++
			conn.SendCTick(tickCounter)
		}
	}
}
