package models

import "time"

type PriceEvent string

const (
	PriceEventListed       PriceEvent = "listed"
	PriceEventSold         PriceEvent = "sold"
	PriceEventDelisted     PriceEvent = "delisted"
	PriceEventPriceUpdated PriceEvent = "price_updated"
)

// PriceHistory is an append-only ledger entry used for charting
type PriceHistory struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	NFTID      string     `gorm:"index;type:varchar(36);not null" json:"nft_id"`
	PriceEth   string     `gorm:"type:varchar(80);not null" json:"price_eth"`
	Event      PriceEvent `gorm:"type:varchar(16);not null" json:"event"`
	FromWallet *string    `gorm:"type:varchar(42)" json:"from_wallet"`
	ToWallet   *string    `gorm:"type:varchar(42)" json:"to_wallet"`
	TxHash     *string    `gorm:"type:varchar(66)" json:"tx_hash"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (PriceHistory) TableName() string {
	return "price_history"
}

type ActivityType string

const (
	ActivityTypeMinted   ActivityType = "minted"
	ActivityTypeListed   ActivityType = "listed"
	ActivityTypeSold     ActivityType = "sold"
	ActivityTypeDelisted ActivityType = "delisted"
	ActivityTypeTransfer ActivityType = "transfer"
)

// ActivityFeed is an append-only, display-only log of marketplace events
type ActivityFeed struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	NFTID        string       `gorm:"index;type:varchar(36);not null" json:"nft_id"`
	ActivityType ActivityType `gorm:"index;type:varchar(16);not null" json:"activity_type"`
	FromWallet   *string      `gorm:"index;type:varchar(42)" json:"from_wallet"`
	ToWallet     *string      `gorm:"index;type:varchar(42)" json:"to_wallet"`
	PriceEth     *string      `gorm:"type:varchar(80)" json:"price_eth"`
	TxHash       *string      `gorm:"type:varchar(66)" json:"tx_hash"`
	Metadata     JSON         `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt    time.Time    `gorm:"index" json:"created_at"`
}

func (ActivityFeed) TableName() string {
	return "activity_feed"
}
