package api

import (
	"fmt"
	"net"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/rxtech-lab/nft-marketplace/internal/api/middleware"
	"github.com/rxtech-lab/nft-marketplace/internal/constants"
	"github.com/rxtech-lab/nft-marketplace/internal/mcp"
	"github.com/rxtech-lab/nft-marketplace/internal/server"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
	"go.uber.org/zap"
)

// Options configure the API server
type Options struct {
	// Authenticator protects the mutating routes and /mcp when set
	Authenticator *utils.JwtAuthenticator
	ResourceID    string
	// AuthorizationServers are advertised in the protected resource metadata
	AuthorizationServers []string
}

type APIServer struct {
	app       *fiber.App
	services  *server.Services
	options   Options
	auth      fiber.Handler
	validator *validator.Validate
	mcpServer *mcp.MCPServer
	logger    *zap.Logger
	port      int
}

func NewAPIServer(svc *server.Services, opts Options, log *zap.Logger) *APIServer {
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// multipart mint uploads carry the image plus a few form fields
		BodyLimit: constants.MaxImageSize + 1024*1024,
	})

	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	s := &APIServer{
		app:       app,
		services:  svc,
		options:   opts,
		auth:      func(c *fiber.Ctx) error { return c.Next() },
		validator: validator.New(),
		logger:    log.Named("api"),
	}
	if opts.Authenticator != nil {
		s.auth = middleware.AuthMiddleware(middleware.AuthConfig{
			ResourceID:       opts.ResourceID,
			JWTAuthenticator: opts.Authenticator,
			SkipWellKnown:    true,
		})
	}
	s.setupRoutes()
	return s
}

func (s *APIServer) setupRoutes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})
	if s.options.Authenticator != nil {
		s.app.Get("/.well-known/oauth-protected-resource", s.handleOAuthProtectedResource)
		s.app.Get("/.well-known/oauth-protected-resource/mcp", s.handleOAuthProtectedResource)
	}

	// Catalog
	s.app.Get("/api/nfts", s.handleListNFTs)
	s.app.Get("/api/nfts/trending", s.handleTrendingNFTs)
	s.app.Get("/api/nfts/:id", s.handleGetNFT)
	s.app.Get("/api/nfts/:id/listing", s.handleGetActiveListing)
	s.app.Get("/api/nfts/:id/price-history", s.handlePriceHistory)
	s.app.Get("/api/nfts/:id/sales", s.handleSales)
	s.app.Get("/api/activity", s.handleActivity)

	// Estimates
	s.app.Get("/api/fees/quote", s.handleQuoteFee)
	s.app.Post("/api/users/sign-in", s.handleSignIn)
	s.app.Post("/api/estimate", s.handleEstimate)

	// Operations
	s.app.Post("/api/listings", s.auth, s.handleCreateListing)
	s.app.Post("/api/listings/:id/purchase", s.auth, s.handlePurchase)
	s.app.Post("/api/listings/:id/cancel", s.auth, s.handleCancelListing)
	s.app.Post("/api/mint", s.auth, s.handleMint)
	s.app.Post("/api/nfts/:id/reconcile", s.auth, s.handleReconcile)
}

// EnableStreamableHttp mounts the MCP server at /mcp behind the same auth as
// the mutating routes. SetMCPServer must be called first.
func (s *APIServer) EnableStreamableHttp() {
	if s.mcpServer == nil {
		s.logger.Warn("streamable http requested without an MCP server")
		return
	}
	handler := adaptor.HTTPHandler(s.mcpServer.StreamableHTTPServer())
	s.app.All("/mcp", s.auth, handler)
	s.app.All("/mcp/*", s.auth, handler)
}

// Start listens on port, or on a random free port when port is nil
func (s *APIServer) Start(port *int) (int, error) {
	if port == nil {
		listener, err := net.Listen("tcp", ":0")
		if err != nil {
			return 0, fmt.Errorf("failed to find available port: %w", err)
		}
		s.port = listener.Addr().(*net.TCPAddr).Port
		listener.Close()
	} else {
		s.port = *port
	}

	listenPort := s.port
	go func() {
		if err := s.app.Listen(fmt.Sprintf(":%d", listenPort)); err != nil {
			s.logger.Error("api server stopped", zap.Error(err))
		}
	}()

	return s.port, nil
}

func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}

func (s *APIServer) GetPort() int {
	return s.port
}

func (s *APIServer) GetFiberApp() *fiber.App {
	return s.app
}

// SetMCPServer sets the MCP server instance served by EnableStreamableHttp
func (s *APIServer) SetMCPServer(mcpServer *mcp.MCPServer) {
	s.mcpServer = mcpServer
}

func (s *APIServer) GetMCPServer() *mcp.MCPServer {
	return s.mcpServer
}
