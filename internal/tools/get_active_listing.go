package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
)

func NewGetActiveListingTool(marketplaceService services.MarketplaceService) (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("get_active_listing",
		mcp.WithDescription("Get the active listing for an NFT from the marketplace records. Returns listed=false when the NFT is not for sale."),
		mcp.WithString("nft_id",
			mcp.Required(),
			mcp.Description("ID of the NFT in the marketplace catalog"),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		nftID, err := request.RequireString("nft_id")
		if err != nil {
			return mcp.NewToolResultError("nft_id parameter is required"), nil
		}

		listing, err := marketplaceService.GetActiveListing(nftID)
		if err != nil {
			return errorResult(err), nil
		}

		return jsonResult("Active listing: ", map[string]any{
			"listed":  listing != nil,
			"listing": listing,
		})
	}

	return tool, handler
}
