package models

import "time"

type TransactionType string

const (
	TransactionTypeMint     TransactionType = "mint"
	TransactionTypeApproval TransactionType = "approval"
	TransactionTypeList     TransactionType = "list"
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypeCancel   TransactionType = "cancel"
)

// MarketEvent describes a confirmed on-chain operation. Hooks turn it into
// ledger rows once the state rows it refers to are written.
type MarketEvent struct {
	Type       TransactionType
	NFTID      string
	TokenID    string
	PriceEth   string
	FromWallet string
	ToWallet   string
	TxHash     string
	ChainID    int64
	OccurredAt time.Time
	Metadata   JSON
}
