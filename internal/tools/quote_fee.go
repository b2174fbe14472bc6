package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
)

func NewQuoteFeeTool(marketplaceService services.MarketplaceService) (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("quote_fee",
		mcp.WithDescription("Quote the platform fee and seller proceeds for a sale price. The fee percent is read from the marketplace contract and falls back to 2.5% when it cannot be read."),
		mcp.WithString("price_eth",
			mcp.Required(),
			mcp.Description("Sale price in ETH (e.g., 0.5)"),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		price, err := request.RequireString("price_eth")
		if err != nil {
			return mcp.NewToolResultError("price_eth parameter is required"), nil
		}

		quote, err := marketplaceService.QuoteFee(ctx, price)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult("Fee quote: ", quote)
	}

	return tool, handler
}
