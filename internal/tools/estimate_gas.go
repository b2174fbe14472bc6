package tools

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
)

type estimateGasTool struct {
	gasEstimator services.GasEstimator
	operator     services.Operator
}

type EstimateGasArguments struct {
	Operation string `json:"operation" validate:"required,oneof=approve list buy cancel mint"`
	TokenID   string `json:"token_id,omitempty"`
	PriceEth  string `json:"price_eth,omitempty"`
	TokenURI  string `json:"token_uri,omitempty"`
}

func NewEstimateGasTool(gasEstimator services.GasEstimator, operator services.Operator) *estimateGasTool {
	return &estimateGasTool{
		gasEstimator: gasEstimator,
		operator:     operator,
	}
}

func (e *estimateGasTool) GetTool() mcp.Tool {
	return mcp.NewTool("estimate_gas",
		mcp.WithDescription("Estimate the gas cost of a marketplace operation before running it. Estimates are best effort: when the network cannot answer in time the result has available=false and the operation may still be attempted."),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("Operation to estimate"),
			mcp.Enum("approve", "list", "buy", "cancel", "mint"),
		),
		mcp.WithString("token_id",
			mcp.Description("Token id for approve, list, buy and cancel"),
		),
		mcp.WithString("price_eth",
			mcp.Description("Price in ETH for list and buy (e.g., 0.5)"),
		),
		mcp.WithString("token_uri",
			mcp.Description("ipfs:// metadata URI for mint"),
		),
	)
}

func (e *estimateGasTool) GetHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args EstimateGasArguments
		if err := request.BindArguments(&args); err != nil {
			return nil, fmt.Errorf("failed to bind arguments: %w", err)
		}
		if err := validator.New().Struct(args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		req := services.GasEstimateRequest{
			Operation: services.GasOperation(args.Operation),
			TokenID:   args.TokenID,
			PriceEth:  args.PriceEth,
			TokenURI:  args.TokenURI,
		}
		// estimates work without a signer, the sender just stays empty
		if conn, err := e.operator.Connection(); err == nil {
			req.From = conn.Address
		}

		return jsonResult("Gas estimate: ", e.gasEstimator.Estimate(ctx, req))
	}
}
