package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
)

func NewGetNFTTool(nftService services.NFTService, listingService services.ListingService, activityService services.ActivityService) (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("get_nft",
		mcp.WithDescription("Get one NFT with its attributes, its active listing (if any), its sales and its price history."),
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

		nft, err := nftService.GetNFTByID(nftID)
		if err != nil {
			return errorResult(err), nil
		}

		active, err := listingService.GetActiveListing(nftID)
		if err != nil && !errors.Is(err, services.ErrListingNotFound) {
			return errorResult(err), nil
		}
		sales, err := listingService.ListSales(nftID)
		if err != nil {
			return errorResult(err), nil
		}
		history, err := activityService.ListPriceHistory(nftID)
		if err != nil {
			return errorResult(err), nil
		}

		return jsonResult("NFT found: ", map[string]any{
			"nft":            nft,
			"active_listing": active,
			"sales":          sales,
			"price_history":  history,
			"explorer_url":   utils.ExplorerTokenURL(nft.ChainID, nft.ContractAddress, nft.TokenID),
		})
	}

	return tool, handler
}
