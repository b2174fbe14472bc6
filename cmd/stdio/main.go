package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload" // Automatically load .env file if present
	"github.com/rxtech-lab/nft-marketplace/internal/api"
	"github.com/rxtech-lab/nft-marketplace/internal/config"
	"github.com/rxtech-lab/nft-marketplace/internal/logger"
	"github.com/rxtech-lab/nft-marketplace/internal/mcp"
	"github.com/rxtech-lab/nft-marketplace/internal/server"
	"go.uber.org/zap"
)

// Build information (set via ldflags)
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

// configureAndStartServer starts the local HTTP API without authentication
// and attaches the MCP server that will serve stdio
func configureAndStartServer(svc *server.Services, port int, log *zap.Logger) (*api.APIServer, int, error) {
	apiServer := api.NewAPIServer(svc, api.Options{}, log)

	var portPtr *int
	if port != 0 {
		portPtr = &port
	}
	startedPort, err := apiServer.Start(portPtr)
	if err != nil {
		return nil, 0, err
	}

	apiServer.SetMCPServer(mcp.NewMCPServer(svc, Version, log))
	return apiServer, startedPort, nil
}

func main() {
	var showVersion = flag.Bool("version", false, "Show version information")
	var showHelp = flag.Bool("help", false, "Show help information")
	var enableLog = flag.Bool("log", false, "Enable logging output")
	flag.Parse()

	// Disable logging by default
	if !*enableLog {
		stdlog.SetOutput(io.Discard)
	}

	if *showVersion {
		fmt.Fprintf(os.Stderr, "NFT Marketplace MCP Server\n")
		fmt.Fprintf(os.Stderr, "Version: %s\n", Version)
		fmt.Fprintf(os.Stderr, "Commit: %s\n", CommitHash)
		fmt.Fprintf(os.Stderr, "Built: %s\n", BuildTime)
		return
	}

	if *showHelp {
		fmt.Fprintf(os.Stderr, "NFT Marketplace MCP Server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fmt.Fprintf(os.Stderr, "  --version    Show version information\n")
		fmt.Fprintf(os.Stderr, "  --help       Show this help message\n")
		fmt.Fprintf(os.Stderr, "  --log        Enable logging output\n\n")
		fmt.Fprintf(os.Stderr, "Description:\n")
		fmt.Fprintf(os.Stderr, "  Browse, mint, list and buy NFTs on an EVM marketplace contract.\n")
		fmt.Fprintf(os.Stderr, "  Configuration is read from the environment (RPC_URL, MARKETPLACE_ADDRESS,\n")
		fmt.Fprintf(os.Stderr, "  NFT_CONTRACT_ADDRESS, PRIVATE_KEY, PINATA_API_KEY, ...) or a .env file.\n\n")
		fmt.Fprintf(os.Stderr, "Database: SQLITE_PATH (default nft-marketplace.db) or POSTGRES_URL\n")
		fmt.Fprintf(os.Stderr, "Web Interface: http://localhost:[random-port]\n")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *enableLog); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		stop()
		os.Exit(1)
	}
}

// run serves MCP over stdio until ctx is cancelled or stdin fails
func run(ctx context.Context, enableLog bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout carries MCP frames, so logging stays off unless asked for
	log := zap.NewNop()
	if enableLog {
		log, err = logger.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	defer log.Sync()

	rt, err := server.Bootstrap(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer rt.Close()

	apiServer, port, err := configureAndStartServer(rt.Services, 0, log)
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	log.Info("API server started", zap.Int("port", port))
	rt.Start()

	stdioErr := make(chan error, 1)
	go func() {
		stdioErr <- apiServer.GetMCPServer().StartStdioServer()
	}()

	select {
	case <-ctx.Done():
	case err = <-stdioErr:
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if err != nil {
			err = fmt.Errorf("MCP stdio server failed: %w", err)
		}
	}

	log.Info("shutting down servers")
	if shutdownErr := apiServer.Shutdown(); shutdownErr != nil {
		log.Error("error shutting down API server", zap.Error(shutdownErr))
	}
	log.Info("servers shut down successfully")
	return err
}
