package constants

const (
	SepoliaChainID = 11155111
	MainnetChainID = 1

	// DefaultPlatformFeeBps is used for fee estimates when the marketplace cannot be read
	DefaultPlatformFeeBps     = 250
	DefaultPlatformFeePercent = "2.5"
	BpsBase                   = 10000

	// WeiDecimals is the number of decimals between wei and ether
	WeiDecimals = 18
	// FeeDecimals is the precision of fee and proceeds amounts stored in the mirror
	FeeDecimals = 8

	// MintGasBufferPercent is added on top of the estimated mint gas limit
	MintGasBufferPercent = 20
	// MaxImageSize bounds uploaded NFT images (100 MB)
	MaxImageSize = 100 * 1024 * 1024
)
