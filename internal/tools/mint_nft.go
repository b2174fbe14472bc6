package tools

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rxtech-lab/nft-marketplace/internal/constants"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
	"go.uber.org/zap"
)

type mintNFTTool struct {
	mintService services.MintService
	operator    services.Operator
	logger      *zap.Logger
}

type MintNFTArguments struct {
	Name        string                   `json:"name" validate:"required"`
	Description string                   `json:"description,omitempty"`
	ImagePath   string                   `json:"image_path" validate:"required"`
	Recipient   string                   `json:"recipient,omitempty" validate:"omitempty,eth_addr"`
	Attributes  []services.MintAttribute `json:"attributes,omitempty" validate:"dive"`
}

func NewMintNFTTool(mintService services.MintService, operator services.Operator, logger *zap.Logger) *mintNFTTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &mintNFTTool{
		mintService: mintService,
		operator:    operator,
		logger:      logger,
	}
}

func (m *mintNFTTool) GetTool() mcp.Tool {
	return mcp.NewTool("mint_nft",
		mcp.WithDescription("Mint a new NFT from a local image file. Uploads the image and its metadata to IPFS, mints the token on-chain and adds it to the catalog. Progress notifications are sent for each stage when the client provides a progress token."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the NFT"),
		),
		mcp.WithString("description",
			mcp.Description("Description of the NFT"),
		),
		mcp.WithString("image_path",
			mcp.Required(),
			mcp.Description("Absolute path of the image file to mint (max 100MB)"),
		),
		mcp.WithString("recipient",
			mcp.Description("Wallet that receives the token. Defaults to the operator wallet"),
		),
		mcp.WithArray("attributes",
			mcp.Description("Traits stored in the metadata, e.g. [{\"trait_type\": \"Color\", \"value\": \"Blue\"}]"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"trait_type": map[string]any{"type": "string"},
					"value":      map[string]any{"type": "string"},
				},
				"required": []string{"trait_type", "value"},
			}),
		),
	)
}

func (m *mintNFTTool) GetHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args MintNFTArguments
		if err := request.BindArguments(&args); err != nil {
			return nil, fmt.Errorf("failed to bind arguments: %w", err)
		}
		if err := validator.New().Struct(args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		image, err := readImage(args.ImagePath)
		if err != nil {
			return errorResult(err), nil
		}

		conn, err := m.operator.Connection()
		if err != nil {
			return errorResult(err), nil
		}

		req := services.MintRequest{
			Name:             args.Name,
			Description:      args.Description,
			Attributes:       args.Attributes,
			Image:            image,
			ImageFileName:    filepath.Base(args.ImagePath),
			ImageContentType: mime.TypeByExtension(filepath.Ext(args.ImagePath)),
		}
		if args.Recipient != "" {
			req.Recipient = common.HexToAddress(args.Recipient)
		}

		outcome, err := m.mintService.Mint(ctx, conn, req, m.progressReporter(ctx, request))
		return operationResult("NFT minted successfully: ", outcome, err)
	}
}

// progressReporter forwards mint stages as MCP progress notifications
func (m *mintNFTTool) progressReporter(ctx context.Context, request mcp.CallToolRequest) services.ProgressFunc {
	if request.Params.Meta == nil || request.Params.Meta.ProgressToken == nil {
		return nil
	}
	srv := server.ServerFromContext(ctx)
	if srv == nil {
		return nil
	}
	token := request.Params.Meta.ProgressToken

	return func(p services.MintProgress) {
		err := srv.SendNotificationToClient(ctx, "notifications/progress", map[string]any{
			"progressToken": token,
			"progress":      p.Progress,
			"total":         100,
			"message":       p.Message,
		})
		if err != nil {
			m.logger.Debug("failed to send mint progress", zap.String("step", string(p.Step)), zap.Error(err))
		}
	}
}

func readImage(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrInvalidImage, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", services.ErrInvalidImage, path)
	}
	if info.Size() > constants.MaxImageSize {
		return nil, services.ErrImageTooLarge
	}
	return os.ReadFile(path)
}
