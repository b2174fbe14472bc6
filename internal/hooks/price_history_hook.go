package hooks

import (
	"fmt"

	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
)

// PriceHistoryHook records listing and sale prices for charting. Cancellations
// carry no price and are left to the activity feed.
type PriceHistoryHook struct {
	activityService services.ActivityService
}

func NewPriceHistoryHook(activityService services.ActivityService) services.Hook {
	return &PriceHistoryHook{
		activityService: activityService,
	}
}

// CanHandle implements Hook.
func (p *PriceHistoryHook) CanHandle(txType models.TransactionType) bool {
	return txType == models.TransactionTypeList || txType == models.TransactionTypePurchase
}

// OnTransactionConfirmed implements Hook.
func (p *PriceHistoryHook) OnTransactionConfirmed(event models.MarketEvent) error {
	var priceEvent models.PriceEvent
	switch event.Type {
	case models.TransactionTypeList:
		priceEvent = models.PriceEventListed
	case models.TransactionTypePurchase:
		priceEvent = models.PriceEventSold
	default:
		return fmt.Errorf("price history hook cannot handle %s", event.Type)
	}
	if event.PriceEth == "" {
		return fmt.Errorf("%s event for nft %s has no price", event.Type, event.NFTID)
	}

	entry := &models.PriceHistory{
		NFTID:      event.NFTID,
		PriceEth:   event.PriceEth,
		Event:      priceEvent,
		FromWallet: optional(event.FromWallet),
		ToWallet:   optional(event.ToWallet),
		TxHash:     optional(event.TxHash),
	}
	if !event.OccurredAt.IsZero() {
		entry.CreatedAt = event.OccurredAt
	}
	return p.activityService.AppendPriceHistory(entry)
}
