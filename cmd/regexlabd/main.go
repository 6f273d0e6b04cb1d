// cmd/regexlabd/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/colebrumley/regexlab/internal/config"
	"github.com/colebrumley/regexlab/internal/logging"
	"github.com/colebrumley/regexlab/internal/mcp"
	"github.com/colebrumley/regexlab/internal/security"
	"github.com/colebrumley/regexlab/internal/server"
	"github.com/colebrumley/regexlab/internal/state"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "mcp-server":
			runMCPServer()
			return
		case "mcp-http-server":
			runMCPHTTPServer()
			return
		}
	}

	runDaemon()
}

func loadConfig() *config.Global {
	cfg, err := config.LoadOrDefault(config.DefaultPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived shutdown signal")
		cancel()
	}()
	return ctx, cancel
}

func newMCPServer(cfg *config.Global) *mcp.Server {
	opts, err := cfg.SessionOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	srv, err := mcp.NewServer(cfg.PresetsDBPath(), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating MCP server: %v\n", err)
		os.Exit(1)
	}
	return srv
}

func runMCPServer() {
	srv := newMCPServer(loadConfig())
	defer srv.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func runMCPHTTPServer() {
	cfg := loadConfig()
	srv := newMCPServer(cfg)
	defer srv.Close()

	ctx, cancel := signalContext()
	defer cancel()

	addr := fmt.Sprintf("%s:%d", cfg.Server.ListenAddress, cfg.MCP.ListenPort)
	fmt.Fprintf(os.Stderr, "MCP HTTP server listening on %s\n", addr)
	if err := srv.RunHTTP(ctx, addr); err != nil {
		fmt.Fprintf(os.Stderr, "MCP HTTP server error: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon() {
	cfg := loadConfig()

	logger, closer, err := logging.Setup(cfg.Logging.Format, cfg.Logging.Level, cfg.Logging.File, cfg.Logging.MaxSizeMB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := security.EnsurePrivateDir(filepath.Dir(cfg.Storage.Path)); err != nil {
		logger.Error("CRITICAL: data directory has unsafe permissions", "error", err)
	}

	store, err := state.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening state database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	srv, err := server.New(cfg, store, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("starting daemon", "config", config.DefaultPath(), "db", cfg.Storage.Path)
	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "daemon error: %v\n", err)
		os.Exit(1)
	}
}
