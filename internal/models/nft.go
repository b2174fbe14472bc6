package models

import "time"

type WalletType string

const (
	WalletTypeMetamask WalletType = "metamask"
	WalletTypePhantom  WalletType = "phantom"
)

// User is a wallet that connected to the marketplace
type User struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	WalletAddress string     `gorm:"uniqueIndex;type:varchar(42);not null" json:"wallet_address"`
	WalletType    WalletType `gorm:"type:varchar(16);not null;default:metamask" json:"wallet_type"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NFT is the mirror row of a minted token. OwnerWallet caches ownerOf and is
// only refreshed after confirmed purchases or reconciliation.
type NFT struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TokenID         string    `gorm:"uniqueIndex:idx_nfts_token;type:varchar(78);not null" json:"token_id"`
	ContractAddress string    `gorm:"uniqueIndex:idx_nfts_token;type:varchar(42);not null" json:"contract_address"`
	ChainID         int64     `gorm:"uniqueIndex:idx_nfts_token;not null" json:"chain_id"`
	OwnerWallet     string    `gorm:"index;type:varchar(42);not null" json:"owner_wallet"`
	Name            string    `gorm:"not null" json:"name"`
	Description     *string   `gorm:"type:text" json:"description"`
	ImageURL        *string   `json:"image_url"`
	MetadataURI     *string   `json:"metadata_uri"`
	MintTxHash      string    `gorm:"uniqueIndex;type:varchar(66);not null" json:"mint_tx_hash"`
	MintedAt        time.Time `gorm:"index" json:"minted_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Attributes []NFTAttribute `gorm:"foreignKey:NFTID" json:"attributes"`
}

// NFTAttribute is a single trait of an NFT's metadata
type NFTAttribute struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	NFTID     string    `gorm:"index;type:varchar(36);not null" json:"nft_id"`
	TraitType string    `gorm:"not null" json:"trait_type"`
	Value     string    `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
}
