package tools

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
)

type listNFTTool struct {
	marketplaceService services.MarketplaceService
	operator           services.Operator
}

type ListNFTArguments struct {
	NFTID    string `json:"nft_id" validate:"required"`
	PriceEth string `json:"price_eth" validate:"required"`
}

func NewListNFTTool(marketplaceService services.MarketplaceService, operator services.Operator) *listNFTTool {
	return &listNFTTool{
		marketplaceService: marketplaceService,
		operator:           operator,
	}
}

func (l *listNFTTool) GetTool() mcp.Tool {
	return mcp.NewTool("list_nft",
		mcp.WithDescription("List an NFT for sale at a fixed ETH price. Approves the marketplace first when needed, then creates the listing on-chain and records it. Any earlier listing for the NFT is replaced."),
		mcp.WithString("nft_id",
			mcp.Required(),
			mcp.Description("ID of the NFT in the marketplace catalog"),
		),
		mcp.WithString("price_eth",
			mcp.Required(),
			mcp.Description("Asking price in ETH (e.g., 0.5)"),
		),
	)
}

func (l *listNFTTool) GetHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ListNFTArguments
		if err := request.BindArguments(&args); err != nil {
			return nil, fmt.Errorf("failed to bind arguments: %w", err)
		}
		if err := validator.New().Struct(args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		conn, err := l.operator.Connection()
		if err != nil {
			return errorResult(err), nil
		}

		result, err := l.marketplaceService.CreateListing(ctx, conn, args.NFTID, args.PriceEth)
		return operationResult("NFT listed successfully: ", result, err)
	}
}
