package contracts

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrMintedEventNotFound means a mint receipt carried no Minted log from the collection
var ErrMintedEventNotFound = errors.New("Minted event not found")

// Minted is emitted by mintNFT with the freshly assigned token id
type Minted struct {
	Owner     common.Address
	TokenId   *big.Int
	TokenURI  string
	Timestamp *big.Int
}

// NFT is a binding over the ERC-721 collection listed on the marketplace
type NFT struct {
	abi      abi.ABI
	address  common.Address
	contract *bind.BoundContract
}

func NewNFT(address common.Address, backend bind.ContractBackend) (*NFT, error) {
	parsed, err := NFTABI()
	if err != nil {
		return nil, err
	}
	return &NFT{
		abi:      parsed,
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

func (n *NFT) Address() common.Address {
	return n.address
}

func (n *NFT) Pack(method string, args ...interface{}) ([]byte, error) {
	return n.abi.Pack(method, args...)
}

func (n *NFT) Approve(opts *bind.TransactOpts, to common.Address, tokenID *big.Int) (*types.Transaction, error) {
	return n.contract.Transact(opts, "approve", to, tokenID)
}

func (n *NFT) SetApprovalForAll(opts *bind.TransactOpts, operator common.Address, approved bool) (*types.Transaction, error) {
	return n.contract.Transact(opts, "setApprovalForAll", operator, approved)
}

func (n *NFT) MintNFT(opts *bind.TransactOpts, to common.Address, uri string) (*types.Transaction, error) {
	return n.contract.Transact(opts, "mintNFT", to, uri)
}

func (n *NFT) GetApproved(opts *bind.CallOpts, tokenID *big.Int) (common.Address, error) {
	var out []interface{}
	if err := n.contract.Call(opts, &out, "getApproved", tokenID); err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (n *NFT) IsApprovedForAll(opts *bind.CallOpts, owner, operator common.Address) (bool, error) {
	var out []interface{}
	if err := n.contract.Call(opts, &out, "isApprovedForAll", owner, operator); err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (n *NFT) OwnerOf(opts *bind.CallOpts, tokenID *big.Int) (common.Address, error) {
	var out []interface{}
	if err := n.contract.Call(opts, &out, "ownerOf", tokenID); err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (n *NFT) TokenURI(opts *bind.CallOpts, tokenID *big.Int) (string, error) {
	var out []interface{}
	if err := n.contract.Call(opts, &out, "tokenURI", tokenID); err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (n *NFT) TotalSupply(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	if err := n.contract.Call(opts, &out, "totalSupply"); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// FindMinted locates the Minted event in a mint receipt. A missing event is
// reported as ErrMintedEventNotFound; the token id is never guessed.
func (n *NFT) FindMinted(receipt *types.Receipt) (*Minted, error) {
	event := n.abi.Events["Minted"]
	for _, log := range receipt.Logs {
		if log.Address != n.address || len(log.Topics) == 0 || log.Topics[0] != event.ID {
			continue
		}
		minted := new(Minted)
		if err := n.contract.UnpackLog(minted, "Minted", *log); err != nil {
			return nil, err
		}
		return minted, nil
	}
	return nil, ErrMintedEventNotFound
}
