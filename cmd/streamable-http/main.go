package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload" // Automatically load .env file if present
	"github.com/rxtech-lab/nft-marketplace/internal/api"
	"github.com/rxtech-lab/nft-marketplace/internal/config"
	"github.com/rxtech-lab/nft-marketplace/internal/logger"
	"github.com/rxtech-lab/nft-marketplace/internal/mcp"
	"github.com/rxtech-lab/nft-marketplace/internal/server"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
	"go.uber.org/zap"
)

var Version = "dev"

// newAPIServer serves the REST API and the MCP streamable HTTP transport on
// one port. Bearer authentication guards mutating routes when a JWKS URI is set.
func newAPIServer(cfg *config.Config, svc *server.Services, log *zap.Logger) *api.APIServer {
	opts := api.Options{
		ResourceID:           cfg.Auth.ResourceID,
		AuthorizationServers: cfg.Auth.AuthorizationServers,
	}
	if cfg.Auth.JwksURI != "" {
		opts.Authenticator = utils.NewJwtAuthenticator(cfg.Auth.JwksURI)
	} else {
		log.Warn("JWKS_URI is not set, mutating routes are unauthenticated")
	}

	apiServer := api.NewAPIServer(svc, opts, log)
	apiServer.SetMCPServer(mcp.NewMCPServer(svc, Version, log))
	apiServer.EnableStreamableHttp()
	return apiServer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// run serves until ctx is cancelled
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	rt, err := server.Bootstrap(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer rt.Close()

	apiServer := newAPIServer(cfg, rt.Services, log)
	startedPort, err := apiServer.Start(&cfg.Port)
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	log.Info("API server started", zap.Int("port", startedPort))
	rt.Start()

	<-ctx.Done()

	log.Info("shutting down server")
	if err := apiServer.Shutdown(); err != nil {
		log.Error("error shutting down API server", zap.Error(err))
	}
	log.Info("server shut down successfully")
	return nil
}
