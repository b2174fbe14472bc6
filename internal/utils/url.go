package utils

import (
	"fmt"
	"strings"

	"github.com/rxtech-lab/nft-marketplace/internal/constants"
)

// ExplorerBaseURL returns the block explorer for a chain, empty when unknown
func ExplorerBaseURL(chainID int64) string {
	switch chainID {
	case constants.SepoliaChainID:
		return "https://sepolia.etherscan.io"
	case constants.MainnetChainID:
		return "https://etherscan.io"
	default:
		return ""
	}
}

func ExplorerTxURL(chainID int64, txHash string) string {
	return explorerURL(chainID, "tx", txHash)
}

func ExplorerAddressURL(chainID int64, address string) string {
	return explorerURL(chainID, "address", address)
}

func ExplorerTokenURL(chainID int64, contractAddress, tokenID string) string {
	base := explorerURL(chainID, "token", contractAddress)
	if base == "" || tokenID == "" {
		return base
	}
	return fmt.Sprintf("%s?a=%s", base, tokenID)
}

func explorerURL(chainID int64, kind, value string) string {
	base := ExplorerBaseURL(chainID)
	if base == "" || value == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", base, kind, value)
}

// IPFSURI converts a content hash into an ipfs:// URI
func IPFSURI(hash string) string {
	return constants.IPFSScheme + hash
}

// IPFSHash strips the ipfs:// scheme (and an optional ipfs/ prefix) from a URI
func IPFSHash(uri string) string {
	hash := strings.TrimPrefix(uri, constants.IPFSScheme)
	return strings.TrimPrefix(hash, "ipfs/")
}

// GatewayURL resolves a hash or ipfs:// URI through an HTTP gateway
func GatewayURL(gateway, uri string) string {
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return gateway + IPFSHash(uri)
}
