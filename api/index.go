package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rxtech-lab/nft-marketplace/internal/api"
	"github.com/rxtech-lab/nft-marketplace/internal/config"
	"github.com/rxtech-lab/nft-marketplace/internal/logger"
	"github.com/rxtech-lab/nft-marketplace/internal/mcp"
	"github.com/rxtech-lab/nft-marketplace/internal/server"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
)

var (
	apiServer *api.APIServer
	initOnce  sync.Once
	initErr   error
)

// Handler is the main Vercel function handler
func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(func() {
		initErr = initializeAPIServer()
	})
	if initErr != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize API server: %v\n", initErr)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	adaptor.FiberApp(apiServer.GetFiberApp())(w, r)
}

func initializeAPIServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// only /tmp is writable on Vercel
	if os.Getenv("VERCEL") == "1" && cfg.PostgresURL == "" {
		cfg.SqlitePath = "/tmp/nft-marketplace.db"
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	rt, err := server.Bootstrap(context.Background(), cfg, log)
	if err != nil {
		return err
	}

	opts := api.Options{
		ResourceID:           cfg.Auth.ResourceID,
		AuthorizationServers: cfg.Auth.AuthorizationServers,
	}
	if cfg.Auth.JwksURI != "" {
		opts.Authenticator = utils.NewJwtAuthenticator(cfg.Auth.JwksURI)
	}
	apiServer = api.NewAPIServer(rt.Services, opts, log)
	apiServer.SetMCPServer(mcp.NewMCPServer(rt.Services, "serverless", log))
	apiServer.EnableStreamableHttp()

	apiServer.GetFiberApp().Get("/", func(c *fiber.Ctx) error {
		return c.JSON(map[string]interface{}{
			"message": "NFT Marketplace API",
			"status":  "running",
		})
	})

	return nil
}
