package hooks

import (
	"fmt"

	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
)

var activityTypes = map[models.TransactionType]models.ActivityType{
	models.TransactionTypeMint:     models.ActivityTypeMinted,
	models.TransactionTypeList:     models.ActivityTypeListed,
	models.TransactionTypePurchase: models.ActivityTypeSold,
	models.TransactionTypeCancel:   models.ActivityTypeDelisted,
}

// ActivityHook appends an activity feed row for every confirmed mint, listing,
// purchase and cancellation
type ActivityHook struct {
	activityService services.ActivityService
}

func NewActivityHook(activityService services.ActivityService) services.Hook {
	return &ActivityHook{
		activityService: activityService,
	}
}

// CanHandle implements Hook.
func (a *ActivityHook) CanHandle(txType models.TransactionType) bool {
	_, ok := activityTypes[txType]
	return ok
}

// OnTransactionConfirmed implements Hook.
func (a *ActivityHook) OnTransactionConfirmed(event models.MarketEvent) error {
	activityType, ok := activityTypes[event.Type]
	if !ok {
		return fmt.Errorf("activity hook cannot handle %s", event.Type)
	}

	metadata := models.JSON{
		"token_id": event.TokenID,
		"chain_id": event.ChainID,
	}
	for k, v := range event.Metadata {
		metadata[k] = v
	}

	entry := &models.ActivityFeed{
		NFTID:        event.NFTID,
		ActivityType: activityType,
		FromWallet:   optional(event.FromWallet),
		ToWallet:     optional(event.ToWallet),
		PriceEth:     optional(event.PriceEth),
		TxHash:       optional(event.TxHash),
		Metadata:     metadata,
	}
	if !event.OccurredAt.IsZero() {
		entry.CreatedAt = event.OccurredAt
	}
	return a.activityService.AppendActivity(entry)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
