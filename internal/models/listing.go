package models

import "time"

type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusSold      ListingStatus = "sold"
	ListingStatusCancelled ListingStatus = "cancelled"
)

// IsTerminal reports whether a listing in this status may no longer change
func (s ListingStatus) IsTerminal() bool {
	return s == ListingStatusSold || s == ListingStatusCancelled
}

// Listing is an offer to sell one NFT. At most one row per NFT may be active,
// enforced by a partial unique index.
type Listing struct {
	ID              string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	NFTID           string        `gorm:"type:varchar(36);not null;uniqueIndex:idx_listings_active_nft,where:status = 'active'" json:"nft_id"`
	TokenID         string        `gorm:"type:varchar(78);not null" json:"token_id"`
	ContractAddress string        `gorm:"type:varchar(42);not null" json:"contract_address"`
	ChainID         int64         `gorm:"not null" json:"chain_id"`
	SellerWallet    string        `gorm:"index;type:varchar(42);not null" json:"seller_wallet"`
	PriceEth        string        `gorm:"type:varchar(80);not null" json:"price_eth"`
	Status          ListingStatus `gorm:"index;type:varchar(16);not null;default:active" json:"status"`
	TxHash          *string       `gorm:"type:varchar(66)" json:"tx_hash"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	NFT *NFT `gorm:"foreignKey:NFTID" json:"nft,omitempty"`
}

type FeeSource string

const (
	// FeeSourceContract means the fee percent was read from the marketplace at the sale block
	FeeSourceContract FeeSource = "contract"
	// FeeSourceDefault means the read failed and the default percent was used
	FeeSourceDefault FeeSource = "default"
)

// Sale is the immutable settlement record of a purchase
type Sale struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	NFTID             string    `gorm:"index;type:varchar(36);not null" json:"nft_id"`
	ListingID         *string   `gorm:"index;type:varchar(36)" json:"listing_id"`
	BuyerWallet       string    `gorm:"index;type:varchar(42);not null" json:"buyer_wallet"`
	SellerWallet      string    `gorm:"index;type:varchar(42);not null" json:"seller_wallet"`
	PriceEth          string    `gorm:"type:varchar(80);not null" json:"price_eth"`
	PlatformFeeEth    string    `gorm:"type:varchar(80);not null" json:"platform_fee_eth"`
	SellerProceedsEth string    `gorm:"type:varchar(80);not null" json:"seller_proceeds_eth"`
	FeePercent        string    `gorm:"type:varchar(16);not null" json:"fee_percent"`
	FeeSource         FeeSource `gorm:"type:varchar(16);not null" json:"fee_source"`
	TxHash            string    `gorm:"uniqueIndex;type:varchar(66);not null" json:"tx_hash"`
	SoldAt            time.Time `gorm:"index" json:"sold_at"`
	CreatedAt         time.Time `json:"created_at"`
}
