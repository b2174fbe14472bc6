package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	appserver "github.com/rxtech-lab/nft-marketplace/internal/server"
	"github.com/rxtech-lab/nft-marketplace/internal/tools"
	"go.uber.org/zap"
)

type MCPServer struct {
	server   *server.MCPServer
	services *appserver.Services
	logger   *zap.Logger
}

func NewMCPServer(svc *appserver.Services, version string, logger *zap.Logger) *MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	mcpServer := &MCPServer{
		services: svc,
		logger:   logger.Named("mcp"),
	}
	mcpServer.InitializeTools(svc, version)
	return mcpServer
}

func (s *MCPServer) InitializeTools(svc *appserver.Services, version string) {
	srv := server.NewMCPServer(
		"NFT Marketplace MCP Server",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	srv.AddPrompt(mcp.NewPrompt("nft-marketplace-usage",
		mcp.WithPromptDescription("Instructions and guidance for using the NFT marketplace MCP tools"),
		mcp.WithArgument("tool_category",
			mcp.ArgumentDescription("Category of tools to get instructions for (catalog, trading, minting, or all)"),
			mcp.RequiredArgument(),
		),
	), func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		category := request.Params.Arguments["tool_category"]
		if category == "" {
			return nil, fmt.Errorf("tool_category is required")
		}

		return mcp.NewGetPromptResult(
			fmt.Sprintf("NFT Marketplace MCP Tools - %s", category),
			[]mcp.PromptMessage{
				mcp.NewPromptMessage(
					mcp.RoleUser,
					mcp.NewTextContent(getToolInstructions(category)),
				),
			},
		), nil
	})

	// Catalog Tools
	listNFTsTool, listNFTsHandler := tools.NewListNFTsTool(svc.NFTs)
	srv.AddTool(listNFTsTool, listNFTsHandler)

	getNFTTool, getNFTHandler := tools.NewGetNFTTool(svc.NFTs, svc.Listings, svc.Activities)
	srv.AddTool(getNFTTool, getNFTHandler)

	getActiveListingTool, getActiveListingHandler := tools.NewGetActiveListingTool(svc.Marketplace)
	srv.AddTool(getActiveListingTool, getActiveListingHandler)

	listActivityTool, listActivityHandler := tools.NewListActivityTool(svc.Activities)
	srv.AddTool(listActivityTool, listActivityHandler)

	// Estimates
	estimateGasTool := tools.NewEstimateGasTool(svc.Gas, svc.Operator)
	srv.AddTool(estimateGasTool.GetTool(), estimateGasTool.GetHandler())

	quoteFeeTool, quoteFeeHandler := tools.NewQuoteFeeTool(svc.Marketplace)
	srv.AddTool(quoteFeeTool, quoteFeeHandler)

	// Trading Tools
	listNFTTool := tools.NewListNFTTool(svc.Marketplace, svc.Operator)
	srv.AddTool(listNFTTool.GetTool(), listNFTTool.GetHandler())

	buyNFTTool := tools.NewBuyNFTTool(svc.Marketplace, svc.Operator)
	srv.AddTool(buyNFTTool.GetTool(), buyNFTTool.GetHandler())

	cancelListingTool := tools.NewCancelListingTool(svc.Marketplace, svc.Operator)
	srv.AddTool(cancelListingTool.GetTool(), cancelListingTool.GetHandler())

	// Minting
	mintNFTTool := tools.NewMintNFTTool(svc.Mint, svc.Operator, s.logger)
	srv.AddTool(mintNFTTool.GetTool(), mintNFTTool.GetHandler())

	// Maintenance
	reconcileTool, reconcileHandler := tools.NewReconcileNFTTool(svc.Reconcile)
	srv.AddTool(reconcileTool, reconcileHandler)

	s.server = srv
}

// StartStdioServer serves MCP over stdin/stdout until the input closes
func (s *MCPServer) StartStdioServer() error {
	return server.ServeStdio(s.server)
}

// StreamableHTTPServer returns an http.Handler serving MCP over streamable HTTP
func (s *MCPServer) StreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.server, server.WithStateLess(true))
}

func (s *MCPServer) GetServer() *server.MCPServer {
	return s.server
}

func getToolInstructions(category string) string {
	switch category {
	case "catalog":
		return `Catalog Tools:

1. list_nfts - Browse the catalog
   Usage: Filter by owner, order newest/oldest, or trending=true for the latest mints

2. get_nft - NFT details with attributes, active listing, sales and price history

3. get_active_listing - The listing currently for sale for an NFT, if any

4. list_activity - Recent minted/listed/sold/delisted/transfer events`

	case "trading":
		return `Trading Tools:

1. quote_fee - Platform fee and seller proceeds for a price

2. estimate_gas - Best-effort gas cost of approve, list, buy, cancel or mint
   Usage: available=false means no estimate, the operation can still run

3. list_nft - List an NFT at a fixed ETH price (approves the marketplace if needed)

4. buy_nft - Buy an active listing. Never retried automatically.
   If someone bought it first you get "listing is no longer available"

5. cancel_listing - Cancel your own active listing

6. reconcile_nft - Re-read owner and listing from the chain and fix drifted records`

	case "minting":
		return `Minting Tools:

1. mint_nft - Mint from a local image file
   Parameters:
   - name (required)
   - image_path (required): image file, max 100MB
   - description, recipient, attributes (optional)
   Stages: uploading-image, uploading-metadata, minting, saving, complete`

	case "all":
		return `NFT Marketplace MCP Tools Overview:

CATALOG (4 tools):
- list_nfts, get_nft, get_active_listing, list_activity

TRADING (6 tools):
- quote_fee, estimate_gas, list_nft, buy_nft, cancel_listing, reconcile_nft

MINTING (1 tool):
- mint_nft

Chain operations are signed with the operator wallet configured on the server.
Every chain operation is attempted once; the chain is the source of truth.`

	default:
		return `Invalid category. Available categories: catalog, trading, minting, all`
	}
}
