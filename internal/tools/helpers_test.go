package tools

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
	"github.com/stretchr/testify/require"
)

var (
	testChainID     = big.NewInt(11155111)
	operatorAddress = common.HexToAddress("0xA11CE00000000000000000000000000000000001")
)

type catalog struct {
	nfts       services.NFTService
	listings   services.ListingService
	activities services.ActivityService
}

func setupCatalog(t *testing.T) *catalog {
	db, err := services.NewSqliteDBService(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &catalog{
		nfts:       services.NewNFTService(db.GetDB()),
		listings:   services.NewListingService(db.GetDB()),
		activities: services.NewActivityService(db.GetDB()),
	}
}

func (c *catalog) mint(t *testing.T, tokenID, name string, mintedAt time.Time) *models.NFT {
	nft, _, err := c.nfts.SaveMintedNFT(&models.NFT{
		TokenID:         tokenID,
		ContractAddress: "0x1000000000000000000000000000000000000001",
		ChainID:         testChainID.Int64(),
		OwnerWallet:     operatorAddress.Hex(),
		Name:            name,
		MintTxHash:      "0xmint" + tokenID,
		MintedAt:        mintedAt,
	})
	require.NoError(t, err)
	return nft
}

func keyedOperator() services.Operator {
	return services.NewKeyedOperator(&bind.TransactOpts{From: operatorAddress}, services.NewConnectionService(testChainID))
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult, index int) string {
	require.NotNil(t, result)
	require.Greater(t, len(result.Content), index)
	textContent, ok := result.Content[index].(mcp.TextContent)
	require.True(t, ok)
	return textContent.Text
}

// decodeResult parses the JSON payload of a successful tool result
func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]any {
	require.Len(t, result.Content, 2)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(resultText(t, result, 1))), &decoded))
	return decoded
}

type stubMarketplace struct {
	listResult     *services.ListingResult
	listErr        error
	purchaseResult *services.PurchaseResult
	purchaseErr    error
	cancelResult   *services.CancelResult
	cancelErr      error
	active         *models.Listing
	quote          *services.FeeQuote
	quoteErr       error

	lastConn      services.Connection
	lastListingID string
	lastPrice     string
}

func (s *stubMarketplace) CreateListing(ctx context.Context, conn services.Connection, nftID, priceEth string) (*services.ListingResult, error) {
	s.lastConn, s.lastPrice = conn, priceEth
	return s.listResult, s.listErr
}

func (s *stubMarketplace) PurchaseNFT(ctx context.Context, conn services.Connection, listingID string) (*services.PurchaseResult, error) {
	s.lastConn, s.lastListingID = conn, listingID
	return s.purchaseResult, s.purchaseErr
}

func (s *stubMarketplace) CancelListing(ctx context.Context, conn services.Connection, listingID string) (*services.CancelResult, error) {
	s.lastConn, s.lastListingID = conn, listingID
	return s.cancelResult, s.cancelErr
}

func (s *stubMarketplace) GetActiveListing(nftID string) (*models.Listing, error) {
	return s.active, nil
}

func (s *stubMarketplace) QuoteFee(ctx context.Context, priceEth string) (*services.FeeQuote, error) {
	s.lastPrice = priceEth
	return s.quote, s.quoteErr
}

type stubMint struct {
	outcome *services.MintOutcome
	err     error
	lastReq services.MintRequest
	calls   int
}

func (s *stubMint) Mint(ctx context.Context, conn services.Connection, req services.MintRequest, progress services.ProgressFunc) (*services.MintOutcome, error) {
	s.calls++
	s.lastReq = req
	return s.outcome, s.err
}

func (s *stubMint) ResolveMetadata(ctx context.Context, tokenID string) (*services.NFTMetadata, error) {
	return nil, services.ErrInvalidMetadata
}

type stubReconcile struct {
	report *services.ReconcileReport
	err    error
}

func (s *stubReconcile) ReconcileNFT(ctx context.Context, nftID string) (*services.ReconcileReport, error) {
	return s.report, s.err
}

func (s *stubReconcile) ReconcileActiveListings(ctx context.Context) ([]services.ReconcileReport, error) {
	return nil, s.err
}

type stubGas struct {
	lastReq services.GasEstimateRequest
}

func (s *stubGas) Estimate(ctx context.Context, req services.GasEstimateRequest) *services.GasEstimate {
	s.lastReq = req
	return &services.GasEstimate{Operation: req.Operation, Available: false, Reason: "estimate timed out"}
}
