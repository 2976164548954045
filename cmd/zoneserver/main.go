package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/hotzone/internal/admin"
	"github.com/udisondev/hotzone/internal/admin/commands"
	"github.com/udisondev/hotzone/internal/config"
	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/db"
	"github.com/udisondev/hotzone/internal/events"
	"github.com/udisondev/hotzone/internal/game/buyerzone"
	"github.com/udisondev/hotzone/internal/game/delivery"
	"github.com/udisondev/hotzone/internal/game/negotiation"
	"github.com/udisondev/hotzone/internal/game/risk"
	"github.com/udisondev/hotzone/internal/game/security"
	"github.com/udisondev/hotzone/internal/game/zone"
	"github.com/udisondev/hotzone/internal/heat"
	"github.com/udisondev/hotzone/internal/inventory"
	"github.com/udisondev/hotzone/internal/journal"
	"github.com/udisondev/hotzone/internal/ledger"
	"github.com/udisondev/hotzone/internal/observer"
	"github.com/udisondev/hotzone/internal/session"
	"github.com/udisondev/hotzone/internal/world"
)

const (
	ConfigPath = "config/zoneserver.yaml"

	// devInventoryCapacity is the slot count of the in-process authority.
	devInventoryCapacity = 40
)

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
	cfgPath := ConfigPath
	if p := os.Getenv("HOTZONE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadZoneServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("hotzone server starting", "log_level", cfg.LogLevel, "config", cfgPath)

	store, closeStore, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer closeStore()

	catalog, err := data.NewRegistry(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading zone catalog: %w", err)
	}
	cat := catalog.Current()
	slog.Info("zone catalog loaded",
		"zones", len(cat.Zones),
		"items", len(cat.Items),
		"source", cfg.CatalogPath)

	// Event consumers
	obs := observer.NewServer(cfg.Observer, nil)
	var sinks events.Fanout
	if cfg.Observer.Enabled {
		sinks = append(sinks, obs)
	}
	var jrnl *journal.Journal
	if cfg.Journal.Enabled {
		jrnl = journal.New(journal.NewWriter(cfg.Journal.Dir, "economy"))
		sinks = append(sinks, jrnl)
	}

	hm := heat.NewManager(cfg.Heat, cfg.Reputation, store, sinks)
	if err := hm.LoadZones(ctx); err != nil {
		return fmt.Errorf("restoring zone heat: %w", err)
	}

	// Host capabilities. The in-process implementations stand in until a
	// host engine adapter is attached.
	w := world.NewStatic()
	auth := inventory.WithTimeout(inventory.NewMemory(devInventoryCapacity), cfg.AuthorityTimeout)
	lg := ledger.NewBestEffort(nil, cfg.AuthorityTimeout)

	zones := zone.NewManager(cat)
	resolver := risk.NewResolver(cfg.Risk, catalog, hm, auth, sinks, nil)
	engine := negotiation.NewEngine(cfg.Negotiation, catalog, hm, resolver, auth, lg, sinks, nil)
	buyers := buyerzone.NewController(cfg.Buyer, catalog, zones, hm, engine, w, sinks, nil)
	guards := security.NewController(cfg.Security, catalog, zones, auth, w, lg, sinks, nil)
	deliveries := delivery.NewManager(cfg.Delivery, catalog, hm, resolver, auth, w, lg, sinks, nil)
	sessions := session.NewRegistry(hm, zones, engine, deliveries)
	sessions.SetTracker(w)

	board := observer.NewBoard(zones, hm, buyers, guards)
	obs.SetSource(board)

	cmds := admin.NewHandler()
	commands.RegisterAll(cmds, commands.Deps{
		Heat:        hm,
		Zones:       zones,
		Catalog:     catalog,
		Controllers: []commands.Reloadable{buyers, guards},
		Snapshot:    board,
	})
	var adminLn net.Listener
	if cfg.Observer.Enabled {
		obs.Mount("POST /admin", cmds.HTTPHandler())
	} else {
		adminLn, err = net.Listen("tcp", cfg.Admin.Addr())
		if err != nil {
			return fmt.Errorf("admin listener: %w", err)
		}
	}
	slog.Info("admin commands registered",
		"admin", cmds.AdminCommandCount(),
		"user", cmds.UserCommandCount())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hm.RunDecayLoop(gctx)
	})
	g.Go(func() error {
		return hm.RunFlushLoop(gctx)
	})
	g.Go(func() error {
		return buyers.Run(gctx)
	})
	g.Go(func() error {
		return guards.Run(gctx)
	})
	g.Go(func() error {
		return sessions.RunIdleLoop(gctx, cfg.SessionIdleTTL, cfg.SweepInterval)
	})
	g.Go(func() error {
		return runSweeper(gctx, cfg.SweepInterval, engine, deliveries)
	})
	if jrnl != nil {
		g.Go(func() error {
			return jrnl.Run(gctx)
		})
	}
	if cfg.Observer.Enabled {
		g.Go(func() error {
			return obs.Run(gctx)
		})
	} else {
		g.Go(func() error {
			return cmds.Serve(gctx, adminLn)
		})
	}

	slog.Info("hotzone server ready",
		"buyer_zones", len(zones.ZonesByKind(data.KindBuyer)),
		"security_zones", len(zones.ZonesByKind(data.KindSecurity)))

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}

	slog.Info("hotzone server stopped", "sessions", sessions.Count())
	return nil
}

type expirer interface {
	ExpireStale() int
}

// runSweeper evicts expired negotiation and delivery sessions that nobody
// touched since they lapsed.
func runSweeper(ctx context.Context, interval time.Duration, targets ...expirer) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n := 0
			for _, t := range targets {
				n += t.ExpireStale()
			}
			if n > 0 {
				slog.Debug("expired sessions swept", "count", n)
			}
		}
	}
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
