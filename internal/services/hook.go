package services

import "github.com/rxtech-lab/nft-marketplace/internal/models"

// Hook is used to perform actions when a marketplace transaction is confirmed base on its transaction type
type Hook interface {
	// CanHandle is used to check if the hook can handle the transaction type
	CanHandle(txType models.TransactionType) bool
	// OnTransactionConfirmed is called after the state rows for the event are written
	OnTransactionConfirmed(event models.MarketEvent) error
}
