package contracts

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed abi/NFTMarketplace.json
var marketplaceABIJSON []byte

//go:embed abi/MarketplaceNFT.json
var nftABIJSON []byte

var (
	marketplaceABI = sync.OnceValues(func() (abi.ABI, error) {
		return parseABI("NFTMarketplace", marketplaceABIJSON)
	})
	nftABI = sync.OnceValues(func() (abi.ABI, error) {
		return parseABI("MarketplaceNFT", nftABIJSON)
	})
)

// MarketplaceABI returns the parsed ABI of the NFTMarketplace contract
func MarketplaceABI() (abi.ABI, error) {
	return marketplaceABI()
}

// NFTABI returns the parsed ABI of the ERC-721 collection the marketplace trades
func NFTABI() (abi.ABI, error) {
	return nftABI()
}

func parseABI(name string, data []byte) (abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse %s ABI: %w", name, err)
	}
	return parsed, nil
}
