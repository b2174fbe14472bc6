package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
)

func NewListActivityTool(activityService services.ActivityService) (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("list_activity",
		mcp.WithDescription("List recent marketplace activity (minted, listed, sold, delisted, transfer), newest first. Optionally filter by NFT or by wallet."),
		mcp.WithString("nft_id",
			mcp.Description("Only return activity for this NFT"),
		),
		mcp.WithString("wallet",
			mcp.Description("Only return activity where this wallet was the sender or the receiver"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries to return (default: 50)"),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		activity, err := activityService.ListActivity(services.ActivityFilter{
			NFTID:  request.GetString("nft_id", ""),
			Wallet: request.GetString("wallet", ""),
			Limit:  request.GetInt("limit", services.DefaultActivityLimit),
		})
		if err != nil {
			return errorResult(err), nil
		}
		if activity == nil {
			activity = []models.ActivityFeed{}
		}

		return jsonResult("Activity listed: ", map[string]any{
			"activity": activity,
			"count":    len(activity),
		})
	}

	return tool, handler
}
