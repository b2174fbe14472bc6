package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rxtech-lab/nft-marketplace/internal/constants"
	"github.com/rxtech-lab/nft-marketplace/internal/contracts"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ChainBackend is satisfied by *ethclient.Client
type ChainBackend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// TxResult is returned once a transaction is confirmed
type TxResult struct {
	TxHash      string         `json:"tx_hash"`
	PriceEth    string         `json:"price_eth,omitempty"`
	Seller      string         `json:"seller,omitempty"`
	BlockNumber *big.Int       `json:"block_number"`
	Receipt     *types.Receipt `json:"-"`
}

// OnChainListing is the marketplace's view of a listing
type OnChainListing struct {
	Seller   string   `json:"seller"`
	PriceEth string   `json:"price_eth"`
	PriceWei *big.Int `json:"price_wei"`
	Active   bool     `json:"active"`
}

type MintResult struct {
	TxHash      string    `json:"tx_hash"`
	TokenID     string    `json:"token_id"`
	Owner       string    `json:"owner"`
	TokenURI    string    `json:"token_uri"`
	BlockNumber *big.Int  `json:"block_number"`
	MintedAt    time.Time `json:"minted_at"`
}

// ChainClient wraps the NFT and marketplace contracts. Every mutating call is a
// single attempt that waits for one confirmation; failures come back as *ChainError.
type ChainClient interface {
	NFTContract() common.Address
	MarketplaceContract() common.Address

	// IsMarketplaceApproved is advisory: read failures report false
	IsMarketplaceApproved(ctx context.Context, conn Connection, tokenID *big.Int) bool
	ApproveMarketplace(ctx context.Context, conn Connection, tokenID *big.Int) (*TxResult, error)
	ListNFT(ctx context.Context, conn Connection, tokenID *big.Int, price decimal.Decimal) (*TxResult, error)
	BuyNFT(ctx context.Context, conn Connection, tokenID *big.Int, price decimal.Decimal) (*TxResult, error)
	CancelListing(ctx context.Context, conn Connection, tokenID *big.Int) (*TxResult, error)
	MintNFT(ctx context.Context, conn Connection, to common.Address, tokenURI string) (*MintResult, error)

	// GetListingFromContract returns nil, nil when the listing is inactive
	GetListingFromContract(ctx context.Context, tokenID *big.Int) (*OnChainListing, error)
	// GetPlatformFee returns the fee percent, falling back to the default for estimates
	GetPlatformFee(ctx context.Context) decimal.Decimal
	// PlatformFeeAt returns the fee percent in effect at a block, without fallback
	PlatformFeeAt(ctx context.Context, blockNumber *big.Int) (decimal.Decimal, error)
	OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error)
	TokenURI(ctx context.Context, tokenID *big.Int) (string, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
}

type chainClient struct {
	backend     ChainBackend
	marketplace *contracts.Marketplace
	nft         *contracts.NFT
	chainID     *big.Int
	logger      *zap.Logger
}

func NewChainClient(backend ChainBackend, marketplaceAddress, nftAddress common.Address, chainID *big.Int, logger *zap.Logger) (ChainClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	marketplace, err := contracts.NewMarketplace(marketplaceAddress, backend)
	if err != nil {
		return nil, err
	}
	nft, err := contracts.NewNFT(nftAddress, backend)
	if err != nil {
		return nil, err
	}
	return &chainClient{
		backend:     backend,
		marketplace: marketplace,
		nft:         nft,
		chainID:     new(big.Int).Set(chainID),
		logger:      logger.Named("chain"),
	}, nil
}

func (c *chainClient) NFTContract() common.Address {
	return c.nft.Address()
}

func (c *chainClient) MarketplaceContract() common.Address {
	return c.marketplace.Address()
}

func (c *chainClient) IsMarketplaceApproved(ctx context.Context, conn Connection, tokenID *big.Int) bool {
	opts := &bind.CallOpts{Context: ctx, From: conn.Address}

	approved, err := c.nft.GetApproved(opts, tokenID)
	if err != nil {
		c.logger.Warn("failed to read token approval", zap.String("token_id", tokenID.String()), zap.Error(err))
		return false
	}
	if strings.EqualFold(approved.Hex(), c.marketplace.Address().Hex()) {
		return true
	}

	approvedForAll, err := c.nft.IsApprovedForAll(opts, conn.Address, c.marketplace.Address())
	if err != nil {
		c.logger.Warn("failed to read operator approval", zap.String("owner", conn.Address.Hex()), zap.Error(err))
		return false
	}
	return approvedForAll
}

func (c *chainClient) ApproveMarketplace(ctx context.Context, conn Connection, tokenID *big.Int) (*TxResult, error) {
	receipt, err := c.submit(ctx, conn, "approve", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.nft.Approve(opts, c.marketplace.Address(), tokenID)
	})
	if err != nil {
		return nil, err
	}
	return txResult(receipt, ""), nil
}

func (c *chainClient) ListNFT(ctx context.Context, conn Connection, tokenID *big.Int, price decimal.Decimal) (*TxResult, error) {
	priceWei := utils.ToWei(price)
	receipt, err := c.submit(ctx, conn, "listNFT", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.marketplace.ListNFT(opts, c.nft.Address(), tokenID, priceWei)
	})
	if err != nil {
		return nil, err
	}
	return txResult(receipt, price.String()), nil
}

func (c *chainClient) BuyNFT(ctx context.Context, conn Connection, tokenID *big.Int, price decimal.Decimal) (*TxResult, error) {
	priceWei := utils.ToWei(price)

	listing, err := c.GetListingFromContract(ctx, tokenID)
	switch {
	case err != nil:
		// the contract still rejects inactive listings; only the distinct error is lost
		c.logger.Warn("listing pre-check failed, submitting anyway", zap.String("token_id", tokenID.String()), zap.Error(err))
	case listing == nil:
		return nil, newChainError(ChainErrorStaleListing, "listing is no longer active", nil)
	case listing.PriceWei.Cmp(priceWei) != 0:
		return nil, newChainError(ChainErrorStaleListing, fmt.Sprintf("listing price changed to %s ETH", listing.PriceEth), nil)
	}

	receipt, err := c.submit(ctx, conn, "buyNFT", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		opts.Value = priceWei
		return c.marketplace.BuyNFT(opts, c.nft.Address(), tokenID)
	})
	if err != nil {
		if errors.Is(err, ErrContractReverted) && c.listingInactive(ctx, tokenID) {
			return nil, newChainError(ChainErrorStaleListing, "listing was sold or cancelled before this purchase", err)
		}
		return nil, err
	}

	result := txResult(receipt, price.String())
	if sold, err := c.marketplace.FindNFTSold(receipt); err == nil && sold != nil {
		result.PriceEth = utils.FormatEther(sold.Price)
		result.Seller = utils.NormalizeAddress(sold.Seller.Hex())
	}
	return result, nil
}

func (c *chainClient) CancelListing(ctx context.Context, conn Connection, tokenID *big.Int) (*TxResult, error) {
	receipt, err := c.submit(ctx, conn, "cancelListing", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.marketplace.CancelListing(opts, c.nft.Address(), tokenID)
	})
	if err != nil {
		return nil, err
	}
	return txResult(receipt, ""), nil
}

func (c *chainClient) MintNFT(ctx context.Context, conn Connection, to common.Address, tokenURI string) (*MintResult, error) {
	if to == (common.Address{}) {
		return nil, ErrInvalidRecipient
	}
	if !strings.HasPrefix(tokenURI, constants.IPFSScheme) {
		return nil, ErrInvalidTokenURI
	}

	data, err := c.nft.Pack("mintNFT", to, tokenURI)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mint call: %w", err)
	}
	nftAddress := c.nft.Address()
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: conn.Address, To: &nftAddress, Data: data})
	if err != nil {
		return nil, classifyChainError(err)
	}

	receipt, err := c.submit(ctx, conn, "mintNFT", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		opts.GasLimit = gas + gas*constants.MintGasBufferPercent/100
		return c.nft.MintNFT(opts, to, tokenURI)
	})
	if err != nil {
		return nil, err
	}

	minted, err := c.nft.FindMinted(receipt)
	if err != nil {
		return nil, fmt.Errorf("mint %s succeeded on-chain but the result is unparsable: %w", receipt.TxHash.Hex(), err)
	}

	return &MintResult{
		TxHash:      receipt.TxHash.Hex(),
		TokenID:     minted.TokenId.String(),
		Owner:       utils.NormalizeAddress(minted.Owner.Hex()),
		TokenURI:    minted.TokenURI,
		BlockNumber: receipt.BlockNumber,
		MintedAt:    time.Unix(minted.Timestamp.Int64(), 0).UTC(),
	}, nil
}

func (c *chainClient) GetListingFromContract(ctx context.Context, tokenID *big.Int) (*OnChainListing, error) {
	listing, err := c.marketplace.GetListing(&bind.CallOpts{Context: ctx}, c.nft.Address(), tokenID)
	if err != nil {
		return nil, classifyChainError(err)
	}
	if !listing.Active {
		return nil, nil
	}
	return &OnChainListing{
		Seller:   utils.NormalizeAddress(listing.Seller.Hex()),
		PriceEth: utils.FormatEther(listing.Price),
		PriceWei: listing.Price,
		Active:   true,
	}, nil
}

func (c *chainClient) GetPlatformFee(ctx context.Context) decimal.Decimal {
	percent, err := c.PlatformFeeAt(ctx, nil)
	if err != nil {
		c.logger.Warn("failed to read platform fee, using default", zap.Error(err))
		return decimal.RequireFromString(constants.DefaultPlatformFeePercent)
	}
	return percent
}

func (c *chainClient) PlatformFeeAt(ctx context.Context, blockNumber *big.Int) (decimal.Decimal, error) {
	bps, err := c.marketplace.PlatformFee(&bind.CallOpts{Context: ctx, BlockNumber: blockNumber})
	if err != nil {
		return decimal.Zero, classifyChainError(err)
	}
	return utils.FeePercentFromBps(bps), nil
}

func (c *chainClient) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	owner, err := c.nft.OwnerOf(&bind.CallOpts{Context: ctx}, tokenID)
	if err != nil {
		return common.Address{}, classifyChainError(err)
	}
	return owner, nil
}

func (c *chainClient) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	uri, err := c.nft.TokenURI(&bind.CallOpts{Context: ctx}, tokenID)
	if err != nil {
		return "", classifyChainError(err)
	}
	return uri, nil
}

func (c *chainClient) TotalSupply(ctx context.Context) (*big.Int, error) {
	supply, err := c.nft.TotalSupply(&bind.CallOpts{Context: ctx})
	if err != nil {
		return nil, classifyChainError(err)
	}
	return supply, nil
}

// submit sends one transaction and waits for its receipt. There is no retry and
// no deadline beyond the caller's context.
func (c *chainClient) submit(ctx context.Context, conn Connection, method string, send func(*bind.TransactOpts) (*types.Transaction, error)) (*types.Receipt, error) {
	opts, err := c.transactOpts(ctx, conn)
	if err != nil {
		return nil, err
	}

	tx, err := send(opts)
	if err != nil {
		return nil, classifyChainError(err)
	}
	c.logger.Info("transaction submitted",
		zap.String("method", method),
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.String("from", conn.Address.Hex()),
	)

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, classifyChainError(err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, newChainError(ChainErrorContractReverted,
			fmt.Sprintf("transaction %s reverted in block %s", tx.Hash().Hex(), receipt.BlockNumber), nil)
	}

	c.logger.Info("transaction confirmed",
		zap.String("method", method),
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.Uint64("gas_used", receipt.GasUsed),
	)
	return receipt, nil
}

func (c *chainClient) transactOpts(ctx context.Context, conn Connection) (*bind.TransactOpts, error) {
	if conn.Signer == nil {
		return nil, ErrNoSigner
	}
	if conn.ChainID == nil || conn.ChainID.Cmp(c.chainID) != 0 {
		return nil, newChainError(ChainErrorNetworkMismatch,
			fmt.Sprintf("signer is on chain %s, marketplace is on chain %s", chainIDString(conn.ChainID), c.chainID), nil)
	}
	opts := *conn.Signer
	opts.Context = ctx
	return &opts, nil
}

func (c *chainClient) listingInactive(ctx context.Context, tokenID *big.Int) bool {
	listing, err := c.GetListingFromContract(ctx, tokenID)
	return err == nil && listing == nil
}

func txResult(receipt *types.Receipt, priceEth string) *TxResult {
	return &TxResult{
		TxHash:      receipt.TxHash.Hex(),
		PriceEth:    priceEth,
		BlockNumber: receipt.BlockNumber,
		Receipt:     receipt,
	}
}
