package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
)

func NewReconcileNFTTool(reconcileService services.ReconcileService) (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("reconcile_nft",
		mcp.WithDescription("Re-read an NFT's owner and listing from the chain and correct the marketplace records if they drifted. Read-only on the chain: no transaction is sent."),
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

		report, err := reconcileService.ReconcileNFT(ctx, nftID)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult("NFT reconciled: ", report)
	}

	return tool, handler
}
