package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/nft-marketplace/internal/constants"
	"github.com/rxtech-lab/nft-marketplace/internal/contracts"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
	"go.uber.org/zap"
)

type GasOperation string

const (
	GasOperationApprove GasOperation = "approve"
	GasOperationList    GasOperation = "list"
	GasOperationBuy     GasOperation = "buy"
	GasOperationCancel  GasOperation = "cancel"
	GasOperationMint    GasOperation = "mint"
)

// GasBackend is the read-only subset of the RPC client used for estimates
type GasBackend interface {
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

type GasEstimateRequest struct {
	Operation GasOperation   `json:"operation" validate:"required,oneof=approve list buy cancel mint"`
	From      common.Address `json:"from"`
	TokenID   string         `json:"token_id" validate:"omitempty,numeric"`
	PriceEth  string         `json:"price_eth"`
	TokenURI  string         `json:"token_uri"`
}

// GasEstimate is never persisted. When Available is false the other cost
// fields are empty and Reason says why.
type GasEstimate struct {
	Operation    GasOperation `json:"operation"`
	Available    bool         `json:"available"`
	GasLimit     uint64       `json:"gas_limit,omitempty"`
	GasPriceWei  string       `json:"gas_price_wei,omitempty"`
	GasCostWei   string       `json:"gas_cost_wei,omitempty"`
	GasCostEth   string       `json:"gas_cost_eth,omitempty"`
	TotalCostEth string       `json:"total_cost_eth,omitempty"`
	Reason       string       `json:"reason,omitempty"`
}

// GasEstimator produces best-effort cost estimates. It never returns an error:
// failures and timeouts yield an unavailable estimate so they cannot block the action.
type GasEstimator interface {
	Estimate(ctx context.Context, req GasEstimateRequest) *GasEstimate
}

type gasEstimator struct {
	backend        GasBackend
	marketplace    common.Address
	nft            common.Address
	marketplaceABI abi.ABI
	nftABI         abi.ABI
	timeout        time.Duration
	validator      *validator.Validate
	logger         *zap.Logger
}

func NewGasEstimator(backend GasBackend, marketplace, nft common.Address, timeout time.Duration, logger *zap.Logger) (GasEstimator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	marketplaceABI, err := contracts.MarketplaceABI()
	if err != nil {
		return nil, err
	}
	nftABI, err := contracts.NFTABI()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &gasEstimator{
		backend:        backend,
		marketplace:    marketplace,
		nft:            nft,
		marketplaceABI: marketplaceABI,
		nftABI:         nftABI,
		timeout:        timeout,
		validator:      validator.New(),
		logger:         logger.Named("gas"),
	}, nil
}

func (g *gasEstimator) Estimate(ctx context.Context, req GasEstimateRequest) *GasEstimate {
	estimate, err := g.estimate(ctx, req)
	if err != nil {
		g.logger.Debug("gas estimate unavailable", zap.String("operation", string(req.Operation)), zap.Error(err))
		return &GasEstimate{Operation: req.Operation, Available: false, Reason: err.Error()}
	}
	return estimate
}

func (g *gasEstimator) estimate(ctx context.Context, req GasEstimateRequest) (*GasEstimate, error) {
	if err := g.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid estimate request: %w", err)
	}

	call, priceWei, err := g.buildCall(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	gasLimit, err := g.backend.EstimateGas(ctx, call)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	if req.Operation == GasOperationMint {
		gasLimit += gasLimit * constants.MintGasBufferPercent / 100
	}

	gasPrice, err := g.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	gasCost := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), gasPrice)
	estimate := &GasEstimate{
		Operation:   req.Operation,
		Available:   true,
		GasLimit:    gasLimit,
		GasPriceWei: gasPrice.String(),
		GasCostWei:  gasCost.String(),
		GasCostEth:  utils.FormatEther(gasCost),
	}
	if req.Operation == GasOperationBuy {
		estimate.TotalCostEth = utils.FormatEther(new(big.Int).Add(gasCost, priceWei))
	}
	return estimate, nil
}

func (g *gasEstimator) buildCall(req GasEstimateRequest) (ethereum.CallMsg, *big.Int, error) {
	call := ethereum.CallMsg{From: req.From}

	var tokenID *big.Int
	if req.TokenID != "" {
		id, err := utils.ParseTokenID(req.TokenID)
		if err != nil {
			return call, nil, err
		}
		tokenID = id
	}

	var priceWei *big.Int
	if req.PriceEth != "" {
		price, err := utils.ParsePriceEth(req.PriceEth)
		if err != nil {
			return call, nil, err
		}
		priceWei = utils.ToWei(price)
	}

	if tokenID == nil && req.Operation != GasOperationMint {
		return call, nil, fmt.Errorf("%s estimate requires a token id", req.Operation)
	}
	if priceWei == nil && (req.Operation == GasOperationList || req.Operation == GasOperationBuy) {
		return call, nil, fmt.Errorf("%s estimate requires a price", req.Operation)
	}

	var (
		data []byte
		err  error
	)
	switch req.Operation {
	case GasOperationApprove:
		call.To = &g.nft
		data, err = g.nftABI.Pack("approve", g.marketplace, tokenID)
	case GasOperationList:
		call.To = &g.marketplace
		data, err = g.marketplaceABI.Pack("listNFT", g.nft, tokenID, priceWei)
	case GasOperationBuy:
		call.To = &g.marketplace
		call.Value = priceWei
		data, err = g.marketplaceABI.Pack("buyNFT", g.nft, tokenID)
	case GasOperationCancel:
		call.To = &g.marketplace
		data, err = g.marketplaceABI.Pack("cancelListing", g.nft, tokenID)
	case GasOperationMint:
		uri := req.TokenURI
		if uri == "" {
			uri = constants.IPFSScheme
		}
		call.To = &g.nft
		data, err = g.nftABI.Pack("mintNFT", req.From, uri)
	default:
		return call, nil, fmt.Errorf("unsupported operation %q", req.Operation)
	}
	if err != nil {
		return call, nil, fmt.Errorf("failed to encode %s call: %w", req.Operation, err)
	}
	call.Data = data
	return call, priceWei, nil
}
