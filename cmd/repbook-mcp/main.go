package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/repbook/internal/config"
	"github.com/meltforce/repbook/internal/handoff"
	"github.com/meltforce/repbook/internal/mcp"
	"github.com/meltforce/repbook/internal/remote"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("repbook-mcp", Version)
		return
	}

	// stdout carries the MCP protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateClient(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	client := remote.NewClient(cfg.Remote.ServerURL, cfg.Auth.APIKey)

	bridge, err := openBridge(cfg, log)
	if err != nil {
		log.Error("failed to open handoff store", "error", err)
		os.Exit(1)
	}
	defer bridge.Close()

	s := mcp.New(client, bridge, Version, log)

	log.Info("repbook-mcp serving on stdio", "server", cfg.Remote.ServerURL, "version", Version)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}

// openBridge picks the handoff store from config: redis when asked for,
// otherwise SQLite under handoff.dir or ~/.repbook.
func openBridge(cfg *config.Config, log *slog.Logger) (handoff.Store, error) {
	if cfg.Handoff.Driver == "redis" {
		store := handoff.NewRedis(cfg.Handoff.Redis.Addr, cfg.Handoff.Redis.Password, cfg.Handoff.Redis.DB, cfg.Handoff.Grace())
		if err := store.Ping(context.Background()); err != nil {
			store.Close()
			return nil, err
		}
		log.Info("using redis handoff store", "addr", cfg.Handoff.Redis.Addr)
		return store, nil
	}

	dir := cfg.Handoff.Dir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".repbook")
	}
	store, err := handoff.OpenSQLite(dir, cfg.Handoff.Grace())
	if err != nil {
		return nil, err
	}
	log.Info("using sqlite handoff store", "dir", dir)
	return store, nil
}
