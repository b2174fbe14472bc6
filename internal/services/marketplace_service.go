package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rxtech-lab/nft-marketplace/internal/constants"
	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ListingResult struct {
	Listing        *models.Listing `json:"listing"`
	ApprovalTxHash string          `json:"approval_tx_hash,omitempty"`
	ListTxHash     string          `json:"list_tx_hash"`
	ExplorerURL    string          `json:"explorer_url"`
}

type PurchaseResult struct {
	Sale        *models.Sale `json:"sale"`
	TxHash      string       `json:"tx_hash"`
	ExplorerURL string       `json:"explorer_url"`
}

type CancelResult struct {
	ListingID   string `json:"listing_id"`
	TxHash      string `json:"tx_hash"`
	ExplorerURL string `json:"explorer_url"`
}

type FeeQuote struct {
	PriceEth          string `json:"price_eth"`
	FeePercent        string `json:"fee_percent"`
	PlatformFeeEth    string `json:"platform_fee_eth"`
	SellerProceedsEth string `json:"seller_proceeds_eth"`
}

// MarketplaceService sequences chain calls and mirror writes for the listing
// lifecycle. The chain call always completes first; mirror writes only follow a
// confirmed transaction. A mirror failure after confirmation returns the result
// together with a *MirrorDivergenceError and is never retried.
type MarketplaceService interface {
	CreateListing(ctx context.Context, conn Connection, nftID, priceEth string) (*ListingResult, error)
	PurchaseNFT(ctx context.Context, conn Connection, listingID string) (*PurchaseResult, error)
	CancelListing(ctx context.Context, conn Connection, listingID string) (*CancelResult, error)
	// GetActiveListing reads the mirror only and may lag the chain. It returns nil when none.
	GetActiveListing(nftID string) (*models.Listing, error)
	// QuoteFee is a display estimate and may use the default fee percent
	QuoteFee(ctx context.Context, priceEth string) (*FeeQuote, error)
}

type marketplaceService struct {
	chain       ChainClient
	connections ConnectionService
	nfts        NFTService
	listings    ListingService
	hooks       HookService
	chainID     int64
	logger      *zap.Logger
	now         func() time.Time
}

func NewMarketplaceService(chain ChainClient, connections ConnectionService, nfts NFTService, listings ListingService, hooks HookService, logger *zap.Logger) MarketplaceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &marketplaceService{
		chain:       chain,
		connections: connections,
		nfts:        nfts,
		listings:    listings,
		hooks:       hooks,
		chainID:     connections.TargetChainID().Int64(),
		logger:      logger.Named("marketplace"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *marketplaceService) CreateListing(ctx context.Context, conn Connection, nftID, priceEth string) (*ListingResult, error) {
	price, err := utils.ParsePriceEth(priceEth)
	if err != nil {
		return nil, err
	}
	if err := s.connections.Validate(conn); err != nil {
		return nil, err
	}

	nft, err := s.nfts.GetNFTByID(nftID)
	if err != nil {
		return nil, err
	}
	tokenID, err := s.tokenOf(nft)
	if err != nil {
		return nil, err
	}

	if owner, err := s.chain.OwnerOf(ctx, tokenID); err != nil {
		s.logger.Warn("owner pre-check failed", zap.String("nft_id", nft.ID), zap.Error(err))
	} else if owner != conn.Address {
		return nil, ErrNotOwner
	}

	result := &ListingResult{}
	if !s.chain.IsMarketplaceApproved(ctx, conn, tokenID) {
		approval, err := s.chain.ApproveMarketplace(ctx, conn, tokenID)
		if err != nil {
			return nil, err
		}
		result.ApprovalTxHash = approval.TxHash
	}

	listed, err := s.chain.ListNFT(ctx, conn, tokenID, price)
	if err != nil {
		return nil, err
	}
	result.ListTxHash = listed.TxHash
	result.ExplorerURL = utils.ExplorerTxURL(s.chainID, listed.TxHash)

	listing := &models.Listing{
		NFTID:           nft.ID,
		TokenID:         nft.TokenID,
		ContractAddress: nft.ContractAddress,
		ChainID:         nft.ChainID,
		SellerWallet:    conn.Address.Hex(),
		PriceEth:        price.String(),
		TxHash:          &listed.TxHash,
	}
	result.Listing = listing

	if err := s.listings.CreateActiveListing(listing); err != nil {
		return result, s.diverged("list", listed.TxHash, nft.ID, err)
	}

	err = s.hooks.OnTransactionConfirmed(models.MarketEvent{
		Type:       models.TransactionTypeList,
		NFTID:      nft.ID,
		TokenID:    nft.TokenID,
		PriceEth:   listing.PriceEth,
		FromWallet: listing.SellerWallet,
		TxHash:     listed.TxHash,
		ChainID:    nft.ChainID,
		OccurredAt: s.now(),
		Metadata:   models.JSON{"listing_id": listing.ID},
	})
	if err != nil {
		return result, s.diverged("list", listed.TxHash, nft.ID, err)
	}

	s.logger.Info("nft listed",
		zap.String("nft_id", nft.ID),
		zap.String("listing_id", listing.ID),
		zap.String("price_eth", listing.PriceEth),
		zap.String("tx_hash", listed.TxHash),
	)
	return result, nil
}

func (s *marketplaceService) PurchaseNFT(ctx context.Context, conn Connection, listingID string) (*PurchaseResult, error) {
	if err := s.connections.Validate(conn); err != nil {
		return nil, err
	}

	listing, err := s.listings.GetListing(listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingStatusActive {
		return nil, newChainError(ChainErrorStaleListing, fmt.Sprintf("listing %s is %s", listing.ID, listing.Status), nil)
	}
	price, err := decimal.NewFromString(listing.PriceEth)
	if err != nil {
		return nil, fmt.Errorf("listing %s has an unreadable price %q: %w", listing.ID, listing.PriceEth, err)
	}
	tokenID, err := utils.ParseTokenID(listing.TokenID)
	if err != nil {
		return nil, err
	}

	bought, err := s.chain.BuyNFT(ctx, conn, tokenID, price)
	if err != nil {
		return nil, err
	}

	// the event is authoritative for what was actually paid and to whom
	salePrice := price
	if bought.PriceEth != "" {
		if p, err := decimal.NewFromString(bought.PriceEth); err == nil {
			salePrice = p
		}
	}
	seller := listing.SellerWallet
	if bought.Seller != "" {
		seller = bought.Seller
	}

	feePercent, feeSource := s.realizedFeePercent(ctx, bought)
	fee, proceeds := utils.ComputeFee(salePrice, feePercent)

	sale := &models.Sale{
		NFTID:             listing.NFTID,
		BuyerWallet:       conn.Address.Hex(),
		SellerWallet:      seller,
		PriceEth:          salePrice.String(),
		PlatformFeeEth:    utils.FormatFeeAmount(fee),
		SellerProceedsEth: utils.FormatFeeAmount(proceeds),
		FeePercent:        feePercent.String(),
		FeeSource:         feeSource,
		TxHash:            bought.TxHash,
		SoldAt:            s.now(),
	}
	result := &PurchaseResult{
		Sale:        sale,
		TxHash:      bought.TxHash,
		ExplorerURL: utils.ExplorerTxURL(s.chainID, bought.TxHash),
	}

	if err := s.listings.RecordSale(listing.ID, sale); err != nil {
		return result, s.diverged("purchase", bought.TxHash, listing.NFTID, err)
	}

	err = s.hooks.OnTransactionConfirmed(models.MarketEvent{
		Type:       models.TransactionTypePurchase,
		NFTID:      listing.NFTID,
		TokenID:    listing.TokenID,
		PriceEth:   sale.PriceEth,
		FromWallet: sale.SellerWallet,
		ToWallet:   sale.BuyerWallet,
		TxHash:     bought.TxHash,
		ChainID:    listing.ChainID,
		OccurredAt: sale.SoldAt,
		Metadata: models.JSON{
			"listing_id":       listing.ID,
			"platform_fee_eth": sale.PlatformFeeEth,
			"fee_source":       string(sale.FeeSource),
		},
	})
	if err != nil {
		return result, s.diverged("purchase", bought.TxHash, listing.NFTID, err)
	}

	s.logger.Info("nft sold",
		zap.String("nft_id", listing.NFTID),
		zap.String("listing_id", listing.ID),
		zap.String("buyer", sale.BuyerWallet),
		zap.String("price_eth", sale.PriceEth),
		zap.String("platform_fee_eth", sale.PlatformFeeEth),
		zap.String("fee_source", string(sale.FeeSource)),
		zap.String("tx_hash", bought.TxHash),
	)
	return result, nil
}

func (s *marketplaceService) CancelListing(ctx context.Context, conn Connection, listingID string) (*CancelResult, error) {
	if err := s.connections.Validate(conn); err != nil {
		return nil, err
	}

	listing, err := s.listings.GetListing(listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingStatusActive {
		return nil, ErrListingNotActive
	}
	if !strings.EqualFold(listing.SellerWallet, conn.Address.Hex()) {
		return nil, ErrNotOwner
	}
	tokenID, err := utils.ParseTokenID(listing.TokenID)
	if err != nil {
		return nil, err
	}

	cancelled, err := s.chain.CancelListing(ctx, conn, tokenID)
	if err != nil {
		return nil, err
	}
	result := &CancelResult{
		ListingID:   listing.ID,
		TxHash:      cancelled.TxHash,
		ExplorerURL: utils.ExplorerTxURL(s.chainID, cancelled.TxHash),
	}

	if err := s.listings.MarkCancelled(listing.ID); err != nil {
		return result, s.diverged("cancel", cancelled.TxHash, listing.NFTID, err)
	}

	err = s.hooks.OnTransactionConfirmed(models.MarketEvent{
		Type:       models.TransactionTypeCancel,
		NFTID:      listing.NFTID,
		TokenID:    listing.TokenID,
		FromWallet: listing.SellerWallet,
		TxHash:     cancelled.TxHash,
		ChainID:    listing.ChainID,
		OccurredAt: s.now(),
		Metadata:   models.JSON{"listing_id": listing.ID},
	})
	if err != nil {
		return result, s.diverged("cancel", cancelled.TxHash, listing.NFTID, err)
	}

	s.logger.Info("listing cancelled", zap.String("listing_id", listing.ID), zap.String("tx_hash", cancelled.TxHash))
	return result, nil
}

func (s *marketplaceService) GetActiveListing(nftID string) (*models.Listing, error) {
	listing, err := s.listings.GetActiveListing(nftID)
	if errors.Is(err, ErrListingNotFound) {
		return nil, nil
	}
	return listing, err
}

func (s *marketplaceService) QuoteFee(ctx context.Context, priceEth string) (*FeeQuote, error) {
	price, err := utils.ParsePriceEth(priceEth)
	if err != nil {
		return nil, err
	}
	percent := s.chain.GetPlatformFee(ctx)
	fee, proceeds := utils.ComputeFee(price, percent)
	return &FeeQuote{
		PriceEth:          price.String(),
		FeePercent:        percent.String(),
		PlatformFeeEth:    utils.FormatFeeAmount(fee),
		SellerProceedsEth: utils.FormatFeeAmount(proceeds),
	}, nil
}

// realizedFeePercent reads the fee in effect at the purchase block. The
// default is only used when that read fails and is recorded as such.
func (s *marketplaceService) realizedFeePercent(ctx context.Context, bought *TxResult) (decimal.Decimal, models.FeeSource) {
	percent, err := s.chain.PlatformFeeAt(ctx, bought.BlockNumber)
	if err != nil {
		s.logger.Warn("failed to read platform fee at sale block, recording default",
			zap.String("tx_hash", bought.TxHash), zap.Error(err))
		return decimal.RequireFromString(constants.DefaultPlatformFeePercent), models.FeeSourceDefault
	}
	return percent, models.FeeSourceContract
}

func (s *marketplaceService) tokenOf(nft *models.NFT) (*big.Int, error) {
	if !strings.EqualFold(nft.ContractAddress, s.chain.NFTContract().Hex()) {
		return nil, fmt.Errorf("nft %s belongs to contract %s, not the marketplace collection", nft.ID, nft.ContractAddress)
	}
	return utils.ParseTokenID(nft.TokenID)
}

func (s *marketplaceService) diverged(operation, txHash, nftID string, err error) error {
	s.logger.Error("mirror diverged from chain",
		zap.String("operation", operation),
		zap.String("tx_hash", txHash),
		zap.String("nft_id", nftID),
		zap.Error(err),
	)
	return &MirrorDivergenceError{Operation: operation, TxHash: txHash, NFTID: nftID, Err: err}
}
