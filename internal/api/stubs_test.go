package api

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
)

var operatorAddress = common.HexToAddress("0xA11CE00000000000000000000000000000000001")

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
	lastNFTID     string
	lastPrice     string
	lastListingID string
}

func (s *stubMarketplace) CreateListing(ctx context.Context, conn services.Connection, nftID, priceEth string) (*services.ListingResult, error) {
	s.lastConn, s.lastNFTID, s.lastPrice = conn, nftID, priceEth
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
	return &services.GasEstimate{Operation: req.Operation, Available: true, GasLimit: 50000, GasCostEth: "0.0001"}
}

func operatorSigner() *bind.TransactOpts {
	return &bind.TransactOpts{From: operatorAddress}
}
