package constants

const (
	IPFSScheme         = "ipfs://"
	DefaultIPFSGateway = "https://ipfs.io/ipfs/"
	PinataAPIURL       = "https://api.pinata.cloud"
)

// IPFSGateways is the fixed fallback order used when fetching pinned content
var IPFSGateways = []string{
	"https://ipfs.io/ipfs/",
	"https://cloudflare-ipfs.com/ipfs/",
	"https://dweb.link/ipfs/",
	"https://gateway.pinata.cloud/ipfs/",
}
