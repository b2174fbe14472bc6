package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
)

type cancelListingTool struct {
	marketplaceService services.MarketplaceService
	operator           services.Operator
}

func NewCancelListingTool(marketplaceService services.MarketplaceService, operator services.Operator) *cancelListingTool {
	return &cancelListingTool{
		marketplaceService: marketplaceService,
		operator:           operator,
	}
}

func (c *cancelListingTool) GetTool() mcp.Tool {
	return mcp.NewTool("cancel_listing",
		mcp.WithDescription("Cancel an active listing. Only the seller can cancel."),
		mcp.WithString("listing_id",
			mcp.Required(),
			mcp.Description("ID of the active listing to cancel"),
		),
	)
}

func (c *cancelListingTool) GetHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		listingID, err := request.RequireString("listing_id")
		if err != nil {
			return mcp.NewToolResultError("listing_id parameter is required"), nil
		}

		conn, err := c.operator.Connection()
		if err != nil {
			return errorResult(err), nil
		}

		result, err := c.marketplaceService.CancelListing(ctx, conn, listingID)
		return operationResult("Listing cancelled successfully: ", result, err)
	}
}
