package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Listing mirrors the struct returned by NFTMarketplace.getListing
type Listing struct {
	Seller      common.Address
	NftContract common.Address
	TokenId     *big.Int
	Price       *big.Int
	Active      bool
}

// NFTSold is emitted by buyNFT once payment and transfer settled
type NFTSold struct {
	Buyer       common.Address
	Seller      common.Address
	NftContract common.Address
	TokenId     *big.Int
	Price       *big.Int
}

// Marketplace is a thin binding over a deployed NFTMarketplace contract.
// Signers are passed per call so one binding can serve every connection.
type Marketplace struct {
	abi      abi.ABI
	address  common.Address
	contract *bind.BoundContract
}

func NewMarketplace(address common.Address, backend bind.ContractBackend) (*Marketplace, error) {
	parsed, err := MarketplaceABI()
	if err != nil {
		return nil, err
	}
	return &Marketplace{
		abi:      parsed,
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

func (m *Marketplace) Address() common.Address {
	return m.address
}

// Pack encodes calldata for a marketplace method, used for gas estimation
func (m *Marketplace) Pack(method string, args ...interface{}) ([]byte, error) {
	return m.abi.Pack(method, args...)
}

func (m *Marketplace) ListNFT(opts *bind.TransactOpts, nftContract common.Address, tokenID, price *big.Int) (*types.Transaction, error) {
	return m.contract.Transact(opts, "listNFT", nftContract, tokenID, price)
}

// BuyNFT submits a purchase; opts.Value must carry the listing price in wei.
func (m *Marketplace) BuyNFT(opts *bind.TransactOpts, nftContract common.Address, tokenID *big.Int) (*types.Transaction, error) {
	return m.contract.Transact(opts, "buyNFT", nftContract, tokenID)
}

func (m *Marketplace) CancelListing(opts *bind.TransactOpts, nftContract common.Address, tokenID *big.Int) (*types.Transaction, error) {
	return m.contract.Transact(opts, "cancelListing", nftContract, tokenID)
}

func (m *Marketplace) GetListing(opts *bind.CallOpts, nftContract common.Address, tokenID *big.Int) (*Listing, error) {
	var out []interface{}
	if err := m.contract.Call(opts, &out, "getListing", nftContract, tokenID); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("getListing returned no values")
	}
	listing, ok := abi.ConvertType(out[0], new(Listing)).(*Listing)
	if !ok {
		return nil, fmt.Errorf("unexpected getListing output type %T", out[0])
	}
	return listing, nil
}

// PlatformFee returns the marketplace fee in basis points
func (m *Marketplace) PlatformFee(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	if err := m.contract.Call(opts, &out, "platformFee"); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// FindNFTSold returns the first NFTSold event emitted by this marketplace in the receipt
func (m *Marketplace) FindNFTSold(receipt *types.Receipt) (*NFTSold, error) {
	event := m.abi.Events["NFTSold"]
	for _, log := range receipt.Logs {
		if log.Address != m.address || len(log.Topics) == 0 || log.Topics[0] != event.ID {
			continue
		}
		sold := new(NFTSold)
		if err := m.contract.UnpackLog(sold, "NFTSold", *log); err != nil {
			return nil, err
		}
		return sold, nil
	}
	return nil, nil
}
