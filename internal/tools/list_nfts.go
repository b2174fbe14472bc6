package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
)

func NewListNFTsTool(nftService services.NFTService) (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("list_nfts",
		mcp.WithDescription("List NFTs from the marketplace catalog. Filter by owner wallet, or page through all NFTs ordered by mint time. Use trending=true for the most recent mints."),
		mcp.WithString("owner",
			mcp.Description("Only return NFTs owned by this wallet address"),
		),
		mcp.WithString("order",
			mcp.Description("Sort order when no owner is given: newest (default) or oldest"),
			mcp.Enum(string(services.NFTOrderNewest), string(services.NFTOrderOldest)),
		),
		mcp.WithBoolean("trending",
			mcp.Description("Return the trending NFTs instead of the full catalog"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of NFTs to return (default: 20)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of NFTs to skip"),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		owner := request.GetString("owner", "")
		order := services.NFTOrder(request.GetString("order", string(services.NFTOrderNewest)))
		limit := request.GetInt("limit", 20)
		offset := request.GetInt("offset", 0)

		if order != services.NFTOrderNewest && order != services.NFTOrderOldest {
			return mcp.NewToolResultError("Invalid order. Supported values: newest, oldest"), nil
		}

		var (
			nfts  []models.NFT
			total int64
			err   error
		)
		switch {
		case owner != "":
			nfts, err = nftService.ListNFTsByOwner(owner)
			if err == nil {
				total, err = nftService.CountNFTsByOwner(owner)
			}
		case request.GetBool("trending", false):
			nfts, err = nftService.ListTrending(limit)
			total = int64(len(nfts))
		default:
			nfts, err = nftService.ListNFTs(order, limit, offset)
			if err == nil {
				total, err = nftService.CountNFTs()
			}
		}
		if err != nil {
			return errorResult(err), nil
		}

		if nfts == nil {
			nfts = []models.NFT{}
		}
		return jsonResult("NFTs listed successfully: ", map[string]any{
			"nfts":  nfts,
			"count": len(nfts),
			"total": total,
		})
	}

	return tool, handler
}
