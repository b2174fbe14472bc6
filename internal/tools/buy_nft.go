package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
)

type buyNFTTool struct {
	marketplaceService services.MarketplaceService
	operator           services.Operator
}

func NewBuyNFTTool(marketplaceService services.MarketplaceService, operator services.Operator) *buyNFTTool {
	return &buyNFTTool{
		marketplaceService: marketplaceService,
		operator:           operator,
	}
}

func (b *buyNFTTool) GetTool() mcp.Tool {
	return mcp.NewTool("buy_nft",
		mcp.WithDescription("Buy a listed NFT at its listing price. The purchase is submitted once and never retried; if someone else bought it first the tool reports that the listing is no longer available."),
		mcp.WithString("listing_id",
			mcp.Required(),
			mcp.Description("ID of the active listing to buy"),
		),
	)
}

func (b *buyNFTTool) GetHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		listingID, err := request.RequireString("listing_id")
		if err != nil {
			return mcp.NewToolResultError("listing_id parameter is required"), nil
		}

		conn, err := b.operator.Connection()
		if err != nil {
			return errorResult(err), nil
		}

		result, err := b.marketplaceService.PurchaseNFT(ctx, conn, listingID)
		return operationResult("NFT purchased successfully: ", result, err)
	}
}
